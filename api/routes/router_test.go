package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/internal/conditions"
	"github.com/courierloop/courierloop-backend/internal/drivers"
	ordersvc "github.com/courierloop/courierloop-backend/internal/orders"
	"github.com/courierloop/courierloop-backend/internal/realtime"
	"github.com/courierloop/courierloop-backend/internal/refresh"
	pkgAuth "github.com/courierloop/courierloop-backend/pkg/auth"
	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/db/models"
	"github.com/courierloop/courierloop-backend/pkg/enums"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRefreshService struct{}

func (stubRefreshService) Optimize(ctx context.Context, input refresh.Input) (*refresh.Result, error) {
	return &refresh.Result{Route: &models.DriverRoute{DriverID: input.DriverID}}, nil
}

func (stubRefreshService) Refresh(ctx context.Context, input refresh.Input) (*refresh.Result, error) {
	return &refresh.Result{Route: &models.DriverRoute{DriverID: input.DriverID}}, nil
}

func (stubRefreshService) Current(ctx context.Context, driverID uuid.UUID) (*models.DriverRoute, error) {
	return &models.DriverRoute{DriverID: driverID}, nil
}

type stubDriversService struct{}

func (stubDriversService) UpdateLocation(ctx context.Context, input drivers.UpdateLocationInput) (*models.DriverLocation, error) {
	return &models.DriverLocation{DriverID: input.DriverID, Lat: input.Lat, Lon: input.Lon}, nil
}

func (stubDriversService) LastKnown(ctx context.Context, driverID uuid.UUID) (*models.DriverLocation, error) {
	return &models.DriverLocation{DriverID: driverID}, nil
}

type stubConditionsService struct{}

func (stubConditionsService) Report(ctx context.Context, report conditions.Report) (*conditions.Report, error) {
	report.ID = uuid.New()
	return &report, nil
}

func (stubConditionsService) ActiveNear(ctx context.Context, lat, lon float64) ([]conditions.Report, error) {
	return nil, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, input ordersvc.CreateInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

func (stubOrdersService) Assign(ctx context.Context, input ordersvc.AssignInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (stubOrdersService) UpdateStatus(ctx context.Context, input ordersvc.UpdateStatusInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (stubOrdersService) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

func (stubOrdersService) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*ordersvc.OrderList, error) {
	return &ordersvc.OrderList{}, nil
}

func (stubOrdersService) ListActiveByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (stubOrdersService) ListAll(ctx context.Context, filter ordersvc.AdminListFilter, params pagination.Params) (*ordersvc.OrderList, error) {
	return &ordersvc.OrderList{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	hub := realtime.NewHub(cfg.Broadcast, nil, logg)
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // redis; rate limit policies are disabled with a zero window
		stubRefreshService{},
		stubDriversService{},
		stubConditionsService{},
		stubOrdersService{},
		hub,
		nil, // no metrics endpoint
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveOpenWithoutAuth(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/route/current/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	driverID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/route/current/"+driverID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleDriver, driverID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with driver token got %d", resp.Code)
	}
}

func TestAdminOrderListRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	driver := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	driver.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleDriver, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, driver)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for driver listing all orders got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin, uuid.New()))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin listing all orders got %d", resp.Code)
	}
}

func TestDriverRouteScopedToOwnID(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	self := uuid.New()

	other := httptest.NewRequest(http.MethodGet, "/api/v1/route/current/"+uuid.NewString(), nil)
	other.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleDriver, self))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, other)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another driver's route got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/route/current/"+uuid.NewString(), nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin, uuid.New()))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin reading any route got %d", resp.Code)
	}
}

func TestRouteRefreshRejectsForeignDriverID(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	self := uuid.New()

	body := `{"driver_id":"` + uuid.NewString() + `","current_location":{"lat":40.0,"lon":-74.0}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route/refresh", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleDriver, self))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 refreshing another driver's route got %d", resp.Code)
	}

	own := `{"driver_id":"` + self.String() + `","current_location":{"lat":40.0,"lon":-74.0}}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/route/refresh", strings.NewReader(own))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleDriver, self))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 refreshing own route got %d", resp.Code)
	}
}
