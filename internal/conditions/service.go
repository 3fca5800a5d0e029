package conditions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/geo"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/redis"
)

// Report is a driver-reported road condition. Reports live in Redis for the
// configured validity window and expire on their own.
type Report struct {
	ID           uuid.UUID               `json:"id"`
	LocationCode string                  `json:"location_code"`
	Lat          float64                 `json:"lat"`
	Lon          float64                 `json:"lon"`
	Type         enums.ConditionType     `json:"type"`
	Severity     enums.ConditionSeverity `json:"severity"`
	Description  string                  `json:"description,omitempty"`
	ReporterID   uuid.UUID               `json:"reporter_id"`
	ReportedAt   time.Time               `json:"reported_at"`
}

// Service ingests road-condition reports and answers proximity queries.
type Service interface {
	Report(ctx context.Context, report Report) (*Report, error)
	ActiveNear(ctx context.Context, lat, lon float64) ([]Report, error)
}

type service struct {
	store redis.ConditionStore
	cfg   config.ConditionsConfig
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires the condition report dependencies.
func NewService(store redis.ConditionStore, cfg config.ConditionsConfig, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "condition store required")
	}
	return &service{
		store: store,
		cfg:   cfg,
		logg:  logg,
		now:   time.Now,
	}, nil
}

// Report validates and stores one report under the validity-window TTL.
func (s *service) Report(ctx context.Context, report Report) (*Report, error) {
	if !report.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown condition type").
			WithDetails(map[string]any{"type": string(report.Type)})
	}
	if report.Severity != "" && !report.Severity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown condition severity").
			WithDetails(map[string]any{"severity": string(report.Severity)})
	}
	if report.Lat < -90 || report.Lat > 90 || report.Lon < -180 || report.Lon > 180 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoordinate, "report coordinates out of range")
	}

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.ReportedAt.IsZero() {
		report.ReportedAt = s.now().UTC()
	}
	if report.Severity == "" {
		report.Severity = enums.SeverityMedium
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal condition report")
	}

	key := s.store.ConditionKey(report.ID.String())
	if err := s.store.Set(ctx, key, string(payload), s.cfg.TTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store condition report")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"condition_type": string(report.Type),
			"severity":       string(report.Severity),
			"location_code":  report.LocationCode,
		})
		s.logg.Info(logCtx, "condition.reported")
	}

	return &report, nil
}

// ActiveNear returns every unexpired report within the applicability radius of
// the given position. Redis TTL handles expiry, so every stored report is
// inside its validity window by construction.
func (s *service) ActiveNear(ctx context.Context, lat, lon float64) ([]Report, error) {
	keys, err := s.store.ScanKeys(ctx, s.store.ConditionPattern())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan condition reports")
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.store.MGet(ctx, keys...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch condition reports")
	}

	radius := s.cfg.RadiusKm
	if radius <= 0 {
		radius = 5
	}

	var nearby []Report
	for _, value := range values {
		raw, ok := value.(string)
		if !ok || raw == "" {
			continue
		}
		var report Report
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			continue
		}
		if geo.HaversineKm(lat, lon, report.Lat, report.Lon) <= radius {
			nearby = append(nearby, report)
		}
	}
	return nearby, nil
}
