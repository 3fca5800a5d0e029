package conditions

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/enums"
)

type fakeConditionStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeConditionStore() *fakeConditionStore {
	return &fakeConditionStore{
		data: map[string]string{},
		ttls: map[string]time.Duration{},
	}
}

func (f *fakeConditionStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeConditionStore) MGet(ctx context.Context, keys ...string) ([]any, error) {
	out := make([]any, 0, len(keys))
	for _, key := range keys {
		if v, ok := f.data[key]; ok {
			out = append(out, v)
		} else {
			out = append(out, nil)
		}
	}
	return out, nil
}

func (f *fakeConditionStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key := range f.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeConditionStore) ConditionKey(id string) string {
	return "cl:condition:" + id
}

func (f *fakeConditionStore) ConditionPattern() string {
	return "cl:condition:*"
}

func newTestService(t *testing.T, store *fakeConditionStore) Service {
	t.Helper()
	svc, err := NewService(store, config.ConditionsConfig{TTL: 30 * time.Minute, RadiusKm: 5}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestReportStoresWithValidityWindow(t *testing.T) {
	store := newFakeConditionStore()
	svc := newTestService(t, store)

	report, err := svc.Report(context.Background(), Report{
		Lat:        12.97,
		Lon:        77.59,
		Type:       enums.ConditionPothole,
		ReporterID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if report.ID == uuid.Nil {
		t.Fatal("expected generated report id")
	}
	if report.Severity != enums.SeverityMedium {
		t.Fatalf("expected default severity, got %s", report.Severity)
	}

	key := store.ConditionKey(report.ID.String())
	if _, ok := store.data[key]; !ok {
		t.Fatal("report not stored")
	}
	if store.ttls[key] != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", store.ttls[key])
	}
}

func TestReportRejectsUnknownType(t *testing.T) {
	svc := newTestService(t, newFakeConditionStore())
	_, err := svc.Report(context.Background(), Report{
		Type: enums.ConditionType("traffic jamboree"),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReportRejectsOutOfRangeCoordinates(t *testing.T) {
	svc := newTestService(t, newFakeConditionStore())
	_, err := svc.Report(context.Background(), Report{
		Type: enums.ConditionAccident,
		Lat:  91,
	})
	if err == nil {
		t.Fatal("expected coordinate error")
	}
}

func TestActiveNearFiltersByRadius(t *testing.T) {
	store := newFakeConditionStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	// ~0.1 degrees of latitude is ~11 km; inside report sits well under 5 km.
	if _, err := svc.Report(ctx, Report{Lat: 12.97, Lon: 77.59, Type: enums.ConditionHeavyTraffic}); err != nil {
		t.Fatalf("report inside: %v", err)
	}
	if _, err := svc.Report(ctx, Report{Lat: 13.2, Lon: 77.59, Type: enums.ConditionWeather}); err != nil {
		t.Fatalf("report outside: %v", err)
	}

	nearby, err := svc.ActiveNear(ctx, 12.97, 77.59)
	if err != nil {
		t.Fatalf("active near: %v", err)
	}
	if len(nearby) != 1 {
		t.Fatalf("expected 1 nearby report, got %d", len(nearby))
	}
	if nearby[0].Type != enums.ConditionHeavyTraffic {
		t.Fatalf("unexpected report %v", nearby[0].Type)
	}
}

func TestActiveNearEmptyStore(t *testing.T) {
	svc := newTestService(t, newFakeConditionStore())
	nearby, err := svc.ActiveNear(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("active near: %v", err)
	}
	if nearby != nil {
		t.Fatalf("expected no reports, got %v", nearby)
	}
}

func TestNewServiceRequiresStore(t *testing.T) {
	if _, err := NewService(nil, config.ConditionsConfig{}, nil); err == nil {
		t.Fatal("expected dependency error")
	}
}
