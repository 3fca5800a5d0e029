// Package geocode implements the compact location-code codec used across the
// delivery APIs. A code names a cell of a recursively subdivided 4x4 grid over
// the full latitude/longitude range; eight subdivision levels give roughly
// 300 m of latitude precision. Codes are grouped XXX-XXX-XX and are
// case-insensitive on input, canonicalized to uppercase.
package geocode

import (
	"regexp"
	"strings"

	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
)

const (
	levels = 8

	minLat = -90.0
	maxLat = 90.0
	minLon = -180.0
	maxLon = 180.0
)

// Precision bounds of a decoded coordinate: half the smallest grid cell.
const (
	LatToleranceDeg = (maxLat - minLat) / (2 * 65536) // 4^8 cells per axis
	LonToleranceDeg = (maxLon - minLon) / (2 * 65536)
)

// symbolGrid lays out the 16 cell symbols; row 0 is the northernmost band.
var symbolGrid = [4][4]byte{
	{'F', 'C', '9', '8'},
	{'J', '3', '2', '7'},
	{'K', '4', '5', '6'},
	{'L', 'M', 'P', 'T'},
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{3}-[A-Z0-9]{3}-[A-Z0-9]{2}$`)

// Encode converts coordinates into a location code.
func Encode(lat, lon float64) (string, error) {
	if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
		return "", pkgerrors.New(pkgerrors.CodeInvalidCoordinate, "latitude or longitude out of range").
			WithDetails(map[string]float64{"lat": lat, "lon": lon})
	}

	loLat, hiLat := minLat, maxLat
	loLon, hiLon := minLon, maxLon

	var raw [levels]byte
	for level := 0; level < levels; level++ {
		latDiv := (hiLat - loLat) / 4
		lonDiv := (hiLon - loLon) / 4

		// Row 0 is the top band, so count down from the northern edge.
		row := int((hiLat - lat) / latDiv)
		if row > 3 {
			row = 3
		}
		col := int((lon - loLon) / lonDiv)
		if col > 3 {
			col = 3
		}

		raw[level] = symbolGrid[row][col]

		hiLat -= float64(row) * latDiv
		loLat = hiLat - latDiv
		loLon += float64(col) * lonDiv
		hiLon = loLon + lonDiv
	}

	code := string(raw[:])
	return code[:3] + "-" + code[3:6] + "-" + code[6:], nil
}

// Decode resolves a location code back to the center of its grid cell.
func Decode(code string) (lat, lon float64, err error) {
	canonical := strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(canonical) {
		return 0, 0, pkgerrors.New(pkgerrors.CodeInvalidCodeFormat, "location code must match XXX-XXX-XX").
			WithDetails(map[string]string{"code": code})
	}

	loLat, hiLat := minLat, maxLat
	loLon, hiLon := minLon, maxLon

	for _, symbol := range []byte(strings.ReplaceAll(canonical, "-", "")) {
		row, col, ok := gridPosition(symbol)
		if !ok {
			return 0, 0, pkgerrors.New(pkgerrors.CodeDecodeFailure, "location code contains an unresolvable symbol").
				WithDetails(map[string]string{"code": canonical, "symbol": string(symbol)})
		}

		latDiv := (hiLat - loLat) / 4
		lonDiv := (hiLon - loLon) / 4

		hiLat -= float64(row) * latDiv
		loLat = hiLat - latDiv
		loLon += float64(col) * lonDiv
		hiLon = loLon + lonDiv
	}

	return (loLat + hiLat) / 2, (loLon + hiLon) / 2, nil
}

// Canonicalize uppercases and validates a code without resolving it.
func Canonicalize(code string) (string, error) {
	canonical := strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(canonical) {
		return "", pkgerrors.New(pkgerrors.CodeInvalidCodeFormat, "location code must match XXX-XXX-XX").
			WithDetails(map[string]string{"code": code})
	}
	return canonical, nil
}

func gridPosition(symbol byte) (row, col int, ok bool) {
	for r := range symbolGrid {
		for c := range symbolGrid[r] {
			if symbolGrid[r][c] == symbol {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}
