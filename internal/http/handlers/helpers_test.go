package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// ---------- test plumbing ----------

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// tokens maps bearer tokens to principals.
type tokens map[string]auth.Principal

func (tk tokens) Verify(raw string) (auth.Principal, error) {
	if p, ok := tk[raw]; ok {
		return p, nil
	}
	return auth.Principal{}, auth.ErrInvalidToken
}

var testTokens = tokens{
	"admin":  {UserID: "admin-1", Role: auth.RoleAdmin},
	"viewer": {UserID: "viewer-1", Role: "viewer"},
}

// newRouter mounts h the way the production router does, minus the
// cross-cutting middleware that is tested on its own.
func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Authenticate(testTokens))
	admin := r.Group("/admin", middleware.RequireAdmin())
	admin.POST("/shipments", h.CreateShipment)
	admin.GET("/shipments", h.ListShipments)
	admin.DELETE("/shipments/:id", h.DeleteShipment)
	admin.POST("/update-tracking", h.UpdateTracking)
	r.GET("/tracking/:trackingId", h.GetTracking)
	r.GET("/tracking/:trackingId/report.pdf", h.GetTrackingReport)
	r.POST("/contact", h.SubmitContact)
	return r
}

func do(r http.Handler, method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}

// ---------- service stubs ----------

type stubShipSvc struct {
	create   func(ctx context.Context, p auth.Principal, in services.CreateShipmentInput) (*domain.Shipment, error)
	list     func(ctx context.Context, p auth.Principal, q string, page, size int) ([]domain.Shipment, int64, error)
	stats    func(ctx context.Context, q string) (int64, *time.Time, error)
	del      func(ctx context.Context, p auth.Principal, id string) error
	listHits int
}

func (s *stubShipSvc) Create(ctx context.Context, p auth.Principal, in services.CreateShipmentInput) (*domain.Shipment, error) {
	return s.create(ctx, p, in)
}

func (s *stubShipSvc) ListPage(ctx context.Context, p auth.Principal, q string, page, size int) ([]domain.Shipment, int64, error) {
	s.listHits++
	return s.list(ctx, p, q, page, size)
}

func (s *stubShipSvc) Stats(ctx context.Context, q string) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, errors.New("no stats")
	}
	return s.stats(ctx, q)
}

func (s *stubShipSvc) Delete(ctx context.Context, p auth.Principal, id string) error {
	return s.del(ctx, p, id)
}

type stubTrackSvc func(ctx context.Context, p auth.Principal, in services.UpdateTrackingInput) (*domain.TrackingEvent, error)

func (f stubTrackSvc) UpdateTracking(ctx context.Context, p auth.Principal, in services.UpdateTrackingInput) (*domain.TrackingEvent, error) {
	return f(ctx, p, in)
}

type stubViewSvc func(ctx context.Context, id string) (*services.TrackingView, error)

func (f stubViewSvc) Get(ctx context.Context, id string) (*services.TrackingView, error) { return f(ctx, id) }

type stubContactSvc func(ctx context.Context, in services.ContactInput) error

func (f stubContactSvc) Submit(ctx context.Context, in services.ContactInput) error { return f(ctx, in) }

type stubRenderer struct {
	out []byte
	err error
}

func (s stubRenderer) RenderBytes(services.TrackingView) ([]byte, error) { return s.out, s.err }
