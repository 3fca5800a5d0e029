package pagination

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
)

const (
	// DefaultLimit is the page size used when the caller does not ask for one.
	DefaultLimit = 25
	// MaxLimit caps how many rows a single page can request.
	MaxLimit = 100

	cursorSeparator = "@"
)

// Params carries the cursor inputs a listing endpoint accepts.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor pins a page boundary to the (created_at, id) sort key.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps the requested limit into [1, MaxLimit].
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer requests one extra row so the caller can tell whether a
// next page exists without a second query.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor serializes the boundary into an opaque URL-safe token.
func EncodeCursor(cursor Cursor) string {
	raw := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token produced by EncodeCursor. An empty token means
// first page and yields a nil cursor. Malformed tokens are a client error.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed cursor")
	}

	stamp, rawID, found := strings.Cut(string(decoded), cursorSeparator)
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed cursor")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed cursor timestamp")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed cursor id")
	}

	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}
