package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprintf("%v", value)
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryRedis) RateLimitKey(parts ...string) string {
	return "rl:" + strings.Join(parts, ":")
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubAuth struct{}

func (stubAuth) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (stubAuth) Logout(context.Context, string) error { return nil }

func (stubAuth) Profile(_ context.Context, id uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: id, Username: "shopper"}, nil
}

type stubRegister struct{}

func (stubRegister) Register(context.Context, auth.RegisterRequest) (*auth.RegisterResponse, error) {
	return &auth.RegisterResponse{Message: "User created successfully"}, nil
}

type stubProducts struct{}

func (stubProducts) ListProducts(context.Context, product.ListProductsInput) (*product.ProductListResult, error) {
	return &product.ProductListResult{Items: []product.ProductDTO{}}, nil
}

func (stubProducts) GetProduct(_ context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	return &product.ProductDTO{ID: id, Name: "Lamp", Price: "10.00"}, nil
}

type stubCart struct{}

func (stubCart) List(context.Context, uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{Items: []cart.CartLineDTO{}, Total: "0.00"}, nil
}

func (stubCart) Add(_ context.Context, _ uuid.UUID, req cart.AddItemRequest) (*cart.CartLineDTO, error) {
	return &cart.CartLineDTO{ID: uuid.New(), Quantity: req.Quantity}, nil
}

func (stubCart) Update(_ context.Context, _, id uuid.UUID, req cart.UpdateItemRequest) (*cart.CartLineDTO, error) {
	return &cart.CartLineDTO{ID: id, Quantity: req.Quantity}, nil
}

func (stubCart) Remove(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type countingCheckout struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCheckout) Checkout(context.Context, uuid.UUID, checkout.CheckoutRequest, string) (*orders.OrderDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &orders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusProcessing, TotalAmount: "23.50"}, nil
}

type stubOrders struct{}

func (stubOrders) ListForUser(context.Context, uuid.UUID) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "dev"},
		JWT:  config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginIPLimit:       100,
			LoginUsernameLimit: 2,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *countingCheckout, *config.Config) {
	t.Helper()
	cfg := testConfig()
	co := &countingCheckout{}
	reg := prometheus.NewRegistry()
	h := NewRouter(Deps{
		Config:   cfg,
		Logger:   logger.Nop(),
		DB:       stubPinger{},
		Redis:    newMemoryRedis(),
		Sessions: stubSessions{},
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Auth:     stubAuth{},
		Register: stubRegister{},
		Products: stubProducts{},
		Cart:     stubCart{},
		Checkout: co,
		Orders:   stubOrders{},
	})
	return h, co, cfg
}

func bearer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Username: "shopper"})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	h, _, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/products", "/products/" + uuid.NewString(), "/metrics"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"new","email":"new@example.com","password":"longenough"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _, cfg := newTestRouter(t)

	for _, path := range []string{"/cart", "/orders", "/user"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer(t, cfg))
		rec = serve(h, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCartItemRoutes(t *testing.T) {
	h, _, cfg := newTestRouter(t)
	token := bearer(t, cfg)
	itemID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPut, "/cart/"+itemID, strings.NewReader(`{"quantity":2}`))
	req.Header.Set("Authorization", token)
	assert.Equal(t, http.StatusOK, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/cart/"+itemID, nil)
	req.Header.Set("Authorization", token)
	assert.Equal(t, http.StatusNoContent, serve(h, req).Code)
}

func TestOrderCreateReplaysIdempotentRequest(t *testing.T) {
	h, co, cfg := newTestRouter(t)
	token := bearer(t, cfg)
	body := `{"shipping_address":"1 Main St","payment_method_id":"pm_card_visa"}`

	var first string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders/create", strings.NewReader(body))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "order-1")
		rec := serve(h, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		if i == 0 {
			first = rec.Body.String()
		} else {
			assert.Equal(t, first, rec.Body.String())
		}
	}
	assert.Equal(t, 1, co.calls)
}

func TestLoginRateLimitedPerUsername(t *testing.T) {
	h, _, _ := newTestRouter(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"shopper","password":"pw"}`))
		codes = append(codes, serve(h, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestWebhooksNotMountedWithoutProvider(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
