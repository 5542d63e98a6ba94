package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ohyerin/magpress-backend/internal/magazines"
	"github.com/ohyerin/magpress-backend/internal/payments"
	"github.com/ohyerin/magpress-backend/internal/subscriptions"
	webhooksvc "github.com/ohyerin/magpress-backend/internal/webhooks/portone"
	pkgauth "github.com/ohyerin/magpress-backend/pkg/auth"
	"github.com/ohyerin/magpress-backend/pkg/config"
	"github.com/ohyerin/magpress-backend/pkg/db/models"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
	gateway "github.com/ohyerin/magpress-backend/pkg/portone"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubWebhookService struct{}

func (stubWebhookService) HandleEvent(ctx context.Context, event webhooksvc.Event) (*webhooksvc.Result, error) {
	return &webhooksvc.Result{Outcome: webhooksvc.OutcomeIgnored}, nil
}

type stubPaymentService struct{}

func (stubPaymentService) Checkout(ctx context.Context, userID uuid.UUID, input payments.CheckoutInput) (*payments.CheckoutResult, error) {
	return &payments.CheckoutResult{PaymentID: "payment_1"}, nil
}

func (stubPaymentService) Cancel(ctx context.Context, userID uuid.UUID, input payments.CancelInput) (*gateway.CancelledPayment, error) {
	return &gateway.CancelledPayment{}, nil
}

type stubSubscriptionService struct{}

func (stubSubscriptionService) Status(ctx context.Context, userID uuid.UUID) (*subscriptions.Status, error) {
	return &subscriptions.Status{Subscribed: false, Status: "free"}, nil
}

func (stubSubscriptionService) StatusByTransactionKeys(ctx context.Context, keys []string) (*subscriptions.Status, error) {
	return &subscriptions.Status{Subscribed: false, Status: "free"}, nil
}

type stubMagazineService struct{}

func (stubMagazineService) List(ctx context.Context, filter magazines.ListFilter) ([]magazines.Summary, error) {
	return []magazines.Summary{}, nil
}

func (stubMagazineService) Get(ctx context.Context, id uuid.UUID, readerID uuid.UUID) (*models.Magazine, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "magazine not found")
}

func (stubMagazineService) Create(ctx context.Context, userID uuid.UUID, input magazines.CreateInput) (*models.Magazine, error) {
	return &models.Magazine{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "magpress-test", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Config:        testConfig(),
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:            stubPinger{},
		Redis:         stubPinger{},
		Webhooks:      stubWebhookService{},
		Payments:      stubPaymentService{},
		Subscriptions: stubSubscriptionService{},
		Magazines:     stubMagazineService{},
	})
}

func TestRouterHealthAndPing(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/api/public/ping"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestRouterMetricsExposed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w.Code)
	}
}

func TestRouterWebhookIsPublic(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/portone",
		strings.NewReader(`{"payment_id":"p1","status":"Ready"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRouterSubscriptionRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRouterSubscriptionWithToken(t *testing.T) {
	router := newTestRouter(t)
	cfg := testConfig()

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "reader@example.com",
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data subscriptions.Status `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Status != "free" {
		t.Fatalf("expected free status, got %q", body.Data.Status)
	}
}

func TestRouterMagazineListIsPublic(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/magazines/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRouterMagazineCreateRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/magazines/",
		strings.NewReader(`{"category":"tech","title":"x","content":"y"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRouterPaymentsRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments",
		strings.NewReader(`{"billingKey":"bk","orderName":"sub","amount":9900,"customer":{"id":"x"}}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
