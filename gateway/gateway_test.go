package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/mailer"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/reminder"
	"github.com/example/storefront/pkg/repository/memory"
	"github.com/example/storefront/pkg/scheduler"
	"github.com/example/storefront/pkg/service"
	"github.com/example/storefront/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type queue struct {
	mu   sync.Mutex
	msgs []mailer.Message
}

func (q *queue) Enqueue(msg mailer.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
}

type okGateway struct{}

func (okGateway) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.Authorization, error) {
	return &payment.Authorization{Reference: req.Reference, AuthorizationURL: "https://pay.example/" + req.Reference}, nil
}

func (okGateway) Verify(ctx context.Context, reference string) (*payment.Verification, error) {
	return &payment.Verification{Reference: reference, Status: payment.StatusSuccess, Amount: 50}, nil
}

type harness struct {
	t      *testing.T
	gw     *Gateway
	store  *memory.Store
	sched  *scheduler.Memory
	tokens *auth.Tokens
}

func newHarness(t *testing.T, checks map[string]HealthCheck) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{
		Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: 0},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret",
			TokenTTL:      time.Hour,
			ResetTokenTTL: 15 * time.Minute,
			AdminEmail:    "admin@example.com",
			AdminPassword: "admin-pass",
		},
	}

	store := memory.New()
	tokens := auth.NewTokens(&cfg.Auth)
	composer := mailer.NewComposer("https://shop.example.com", "GHS")
	q := &queue{}

	var reminders *reminder.Service
	sched := scheduler.NewMemory(func(ctx context.Context, key string) { reminders.Fire(ctx, key) }, logger)
	t.Cleanup(sched.Close)
	reminders = reminder.New(sched, store, store, mailer.New(mailer.NewLogTransport(logger), &config.MailConfig{Retries: 1}, logger), composer, time.Hour, logger)

	products := service.NewProductService(store, nil, storage.NewMemory("http://cdn.example"), logger)
	orders := service.NewOrderService(service.OrderDeps{
		Accounts:  store,
		Catalog:   products,
		Orders:    store,
		Audit:     store,
		Tx:        store,
		Reminders: reminders,
		Notifier:  q,
		Composer:  composer,
	}, 0, logger)

	gw := NewGateway(cfg, logger, tokens, Services{
		Carts:    service.NewCartService(store, reminders, logger),
		Wishlist: service.NewWishlistService(store),
		Orders:   orders,
		Payments: service.NewPaymentService(orders, store, okGateway{}, "GHS", time.Hour, logger),
		Products: products,
		Accounts: service.NewAccountService(store, tokens, q, composer, &cfg.Auth, logger),
	}, checks)
	gw.SetupRoutes()

	return &harness{t: t, gw: gw, store: store, sched: sched, tokens: tokens}
}

func (h *harness) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.gw.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (h *harness) customer() (string, *models.Account) {
	h.t.Helper()
	w, body := h.do(http.MethodPost, "/api/user/register", "", map[string]string{
		"name": "Ama", "email": "ama@example.com", "password": "supersecret",
	})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	token := body["token"].(string)

	claims, err := h.tokens.Verify(token)
	require.NoError(h.t, err)
	acc, err := h.store.GetAccount(context.Background(), claims.AccountID)
	require.NoError(h.t, err)
	return token, acc
}

func (h *harness) admin() string {
	h.t.Helper()
	w, body := h.do(http.MethodPost, "/api/user/admin", "", map[string]string{
		"email": "admin@example.com", "password": "admin-pass",
	})
	require.Equal(h.t, http.StatusOK, w.Code)
	return body["token"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, map[string]HealthCheck{
		"mongo": func(context.Context) error { return nil },
	})
	w, body := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	h = newHarness(t, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w, body = h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestCartFlow(t *testing.T) {
	h := newHarness(t, nil)
	token, acc := h.customer()

	w, body := h.do(http.MethodPost, "/api/cart/add", token, map[string]string{"itemId": "p1", "size": "M"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"p1": map[string]any{"M": float64(1)}}, body["cartData"])

	_, body = h.do(http.MethodPost, "/api/cart/add", token, map[string]string{"itemId": "p1", "size": "M"})
	assert.Equal(t, map[string]any{"p1": map[string]any{"M": float64(2)}}, body["cartData"])

	pending, err := h.sched.Pending(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, 1, h.sched.Len())

	_, body = h.do(http.MethodPost, "/api/cart/update", token, map[string]any{"itemId": "p1", "size": "M", "quantity": 0})
	assert.Equal(t, map[string]any{}, body["cartData"])
	assert.Equal(t, 0, h.sched.Len())

	w, body = h.do(http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{}, body["cartData"])

	w, body = h.do(http.MethodPost, "/api/cart/add", token, map[string]string{"itemId": "p1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, nil)

	w, body := h.do(http.MethodPost, "/api/cart/add", "", map[string]string{"itemId": "p1", "size": "M"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not Authorized Login Again", body["message"])

	w, _ = h.do(http.MethodGet, "/api/cart", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// legacy header
	token, _ := h.customer()
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("token", token)
	rec := httptest.NewRecorder()
	h.gw.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// customers are not admins
	w, _ = h.do(http.MethodPost, "/api/order/list", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrderFlow(t *testing.T) {
	h := newHarness(t, nil)
	token, acc := h.customer()
	admin := h.admin()
	ctx := context.Background()
	require.NoError(t, h.store.CreateProduct(ctx, &models.Product{ID: "p1", Name: "Linen Shirt", Price: 50, Sizes: []string{"M"}}))

	h.do(http.MethodPost, "/api/cart/add", token, map[string]string{"itemId": "p1", "size": "M"})
	h.do(http.MethodPost, "/api/cart/add", token, map[string]string{"itemId": "p1", "size": "M"})

	order := map[string]any{
		"items":  []map[string]any{{"_id": "p1", "quantity": 2, "price": 50, "size": "M"}},
		"amount": 100,
		"address": map[string]string{
			"firstName": "Ama", "lastName": "Mensah", "city": "Accra", "country": "Ghana", "phone": "0200000000",
		},
	}
	w, body := h.do(http.MethodPost, "/api/order/place", token, order)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	orderID := body["orderId"].(string)

	_, body = h.do(http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, map[string]any{}, body["cartData"])
	assert.Equal(t, 0, h.sched.Len())

	_, body = h.do(http.MethodPost, "/api/order/userorders", token, nil)
	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, "Packing", orders[0].(map[string]any)["status"])

	w, _ = h.do(http.MethodPost, "/api/order/status", admin, map[string]string{"orderId": orderID, "status": "Delivered"})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := h.store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, stored.Status)
	assert.Equal(t, acc.ID, stored.UserID)

	w, _ = h.do(http.MethodPost, "/api/order/status", admin, map[string]string{"orderId": orderID, "status": "Lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, body = h.do(http.MethodPost, "/api/order/list", admin, nil)
	assert.Len(t, body["orders"], 1)

	w, body = h.do(http.MethodPost, "/api/order/history", admin, map[string]string{"orderId": orderID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	history := body["history"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "status_changed", history[0].(map[string]any)["action"])
	assert.Equal(t, "order_placed", history[1].(map[string]any)["action"])

	w, _ = h.do(http.MethodPost, "/api/order/history", token, map[string]string{"orderId": orderID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = h.do(http.MethodPost, "/api/order/history", admin, map[string]string{"orderId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderIdempotencyHeader(t *testing.T) {
	h := newHarness(t, nil)
	token, _ := h.customer()
	require.NoError(t, h.store.CreateProduct(context.Background(), &models.Product{ID: "p1", Name: "Shirt", Price: 50, Sizes: []string{"M"}}))

	order := map[string]any{
		"items":   []map[string]any{{"_id": "p1", "quantity": 1, "size": "M"}},
		"amount":  50,
		"address": map[string]string{"firstName": "A", "lastName": "B", "city": "C", "country": "D", "phone": "1"},
	}
	send := func() string {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(order))
		req := httptest.NewRequest(http.MethodPost, "/api/order/place", &buf)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(headerIdempotencyKey, "abc")
		rec := httptest.NewRecorder()
		h.gw.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out["orderId"].(string)
	}
	assert.Equal(t, send(), send())
}

func TestGatewayPaymentFlow(t *testing.T) {
	h := newHarness(t, nil)
	token, _ := h.customer()
	require.NoError(t, h.store.CreateProduct(context.Background(), &models.Product{ID: "p1", Name: "Shirt", Price: 50, Sizes: []string{"M"}}))

	w, body := h.do(http.MethodPost, "/api/order/gateway", token, map[string]any{
		"items":   []map[string]any{{"_id": "p1", "quantity": 1, "size": "M"}},
		"amount":  50,
		"address": map[string]string{"firstName": "A", "lastName": "B", "city": "C", "country": "D", "phone": "1"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ref := body["reference"].(string)
	assert.Equal(t, "https://pay.example/"+ref, body["authorizationUrl"])

	w, body = h.do(http.MethodPost, "/api/order/verify", token, map[string]string{"reference": ref})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", body["paymentStatus"])

	w, _ = h.do(http.MethodPost, "/api/order/verify", token, map[string]string{"reference": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductAdmin(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.admin()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Linen Shirt"))
	require.NoError(t, mw.WriteField("price", "49.5"))
	require.NoError(t, mw.WriteField("category", "Men"))
	require.NoError(t, mw.WriteField("sizes", `["M","L"]`))
	require.NoError(t, mw.WriteField("bestseller", "true"))
	fw, err := mw.CreateFormFile("image1", "front.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/product/add", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	h.gw.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Product models.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{"M", "L"}, out.Product.Sizes)
	assert.True(t, out.Product.Bestseller)
	require.Len(t, out.Product.Images, 1)

	w, body := h.do(http.MethodGet, "/api/product/list", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["products"], 1)

	w, body = h.do(http.MethodPost, "/api/product/single", "", map[string]string{"productId": out.Product.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Linen Shirt", body["product"].(map[string]any)["name"])

	w, _ = h.do(http.MethodPost, "/api/product/remove", admin, map[string]string{"id": out.Product.ID})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(http.MethodPost, "/api/product/single", "", map[string]string{"productId": out.Product.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseSizes(t *testing.T) {
	sizes, err := parseSizes(`["S","M"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "M"}, sizes)

	sizes, err = parseSizes("S, M ,L")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "M", "L"}, sizes)

	_, err = parseSizes(`["S"`)
	assert.Error(t, err)
}
