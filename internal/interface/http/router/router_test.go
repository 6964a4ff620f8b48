package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apporder "github.com/xiebiao/fastorder/internal/application/order"
	appayment "github.com/xiebiao/fastorder/internal/application/payment"
	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/internal/domain/product"
	"github.com/xiebiao/fastorder/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/fastorder/internal/interface/http/handler"
	"github.com/xiebiao/fastorder/internal/interface/http/middleware"
	"github.com/xiebiao/fastorder/pkg/circuitbreaker"
	"github.com/xiebiao/fastorder/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type orderData struct {
	ID           uint   `json:"id"`
	Status       string `json:"status"`
	PaymentState string `json:"payment_status"`
	TotalPrice   int64  `json:"total_price"`
	TotalYuan    string `json:"total_yuan"`
	RefundAmount *int64 `json:"refund_amount"`
}

type blacklist map[string]bool

func (b blacklist) Contains(_ context.Context, token string) (bool, error) {
	return b[token], nil
}

type server struct {
	engine    *gin.Engine
	jwt       *jwt.Manager
	revoked   blacklist
	productID uint
}

func newServer(t *testing.T, gw payment.Gateway, limiter *middleware.RateLimiter) *server {
	t.Helper()

	orders := memory.NewOrderRepository()
	products := memory.NewProductRepository()
	payments := memory.NewPaymentRepository()
	locker := memory.NewOrderLocker()
	notifier := notification.Nop{}

	p, err := product.NewProduct("降噪耳机", 5000, 10)
	require.NoError(t, err)
	require.NoError(t, products.Create(context.Background(), p))

	pipeline := appayment.NewPipeline(gw,
		appayment.NewGatewayBreaker("router-test", circuitbreaker.Config{}),
		appayment.DefaultOptions())

	orderHandler := handler.NewOrderHandler(
		apporder.NewCreateOrderUseCase(orders, products, notifier, time.Now),
		apporder.NewAcceptOrderUseCase(orders, products, locker, notifier, time.Now),
		apporder.NewCancelOrderUseCase(orders, products, payments, locker, notifier, time.Now),
		apporder.NewListOrdersUseCase(orders),
	)
	paymentHandler := handler.NewPaymentHandler(
		apporder.NewPayOrderUseCase(orders, payments, pipeline, locker, notifier, time.Now),
	)

	s := &server{
		jwt:       jwt.NewManager("test-secret", time.Hour, 24*time.Hour),
		revoked:   blacklist{},
		productID: p.ID,
	}
	s.engine = New(zerolog.Nop(), orderHandler, paymentHandler,
		middleware.NewAuthMiddleware(s.jwt, s.revoked),
		Options{MetricsPath: "/metrics", RateLimiter: limiter})
	return s
}

func (s *server) token(t *testing.T, userID uint, role string) string {
	t.Helper()
	pair, err := s.jwt.GenerateToken(userID, fmt.Sprintf("u%d@example.com", userID), "user", role)
	require.NoError(t, err)
	return pair.AccessToken
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decodeOrder(t *testing.T, env envelope) orderData {
	t.Helper()
	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	return o
}

func okGateway() payment.Gateway {
	return payment.GatewayFunc(func(context.Context, payment.ChargeRequest) (payment.ChargeResult, error) {
		return payment.ChargeResult{GatewayRef: "ok"}, nil
	})
}

func TestPing(t *testing.T) {
	s := newServer(t, okGateway(), nil)
	w, env := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestOrderFlow(t *testing.T) {
	s := newServer(t, okGateway(), nil)
	buyer := s.token(t, 1, jwt.RoleBuyer)
	admin := s.token(t, 99, jwt.RoleAdmin)

	w, env := s.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"product_id": s.productID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decodeOrder(t, env)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, int64(10000), created.TotalPrice)
	assert.Equal(t, "100.00", created.TotalYuan)

	// 买家不能接单
	w, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%d/accept", created.ID), buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%d/accept", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "accepted", decodeOrder(t, env).Status)

	w, _ = s.do(t, http.MethodPost, "/api/v1/payments", buyer, map[string]interface{}{"order_id": created.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 重复支付
	w, env = s.do(t, http.MethodPost, "/api/v1/payments", buyer, map[string]interface{}{"order_id": created.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40007, env.Code)

	w, env = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/cancel", created.ID), buyer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decodeOrder(t, env)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "refunded", cancelled.PaymentState)
	require.NotNil(t, cancelled.RefundAmount)
	assert.Equal(t, int64(9000), *cancelled.RefundAmount)

	w, env = s.do(t, http.MethodGet, "/api/v1/orders/mine", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		List       []orderData `json:"list"`
		Total      int64       `json:"total"`
		Page       int         `json:"page"`
		PageSize   int         `json:"page_size"`
		TotalPages int         `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 10, list.PageSize, "未传page_size时使用默认值")
	assert.Equal(t, 1, list.TotalPages)
	require.Len(t, list.List, 1)
	assert.Equal(t, created.ID, list.List[0].ID)

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/orders?page=1&page_size=5", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 5, list.PageSize)
}

func TestOrderAccess(t *testing.T) {
	s := newServer(t, okGateway(), nil)
	buyer := s.token(t, 1, jwt.RoleBuyer)
	stranger := s.token(t, 2, jwt.RoleBuyer)

	_, env := s.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"product_id": s.productID,
		"quantity":   1,
	})
	id := decodeOrder(t, env).ID

	w, _ := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", id), stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/cancel", id), stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/payments", stranger, map[string]interface{}{"order_id": id})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40104, env.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/orders/12345", buyer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth(t *testing.T) {
	s := newServer(t, okGateway(), nil)

	w, env := s.do(t, http.MethodGet, "/api/v1/orders/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40100, env.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/orders/mine", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.token(t, 1, jwt.RoleBuyer)
	s.revoked[token] = true
	w, env = s.do(t, http.MethodGet, "/api/v1/orders/mine", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40103, env.Code)
}

func TestCreateOrder_BadRequest(t *testing.T) {
	s := newServer(t, okGateway(), nil)
	buyer := s.token(t, 1, jwt.RoleBuyer)

	w, env := s.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"product_id": s.productID,
		"quantity":   0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40900, env.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"product_id": s.productID,
		"quantity":   11,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPay_GatewayFailures(t *testing.T) {
	declined := payment.GatewayFunc(func(context.Context, payment.ChargeRequest) (payment.ChargeResult, error) {
		return payment.ChargeResult{}, errors.New("declined")
	})
	s := newServer(t, declined, nil)
	buyer := s.token(t, 1, jwt.RoleBuyer)
	admin := s.token(t, 99, jwt.RoleAdmin)

	_, env := s.do(t, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"product_id": s.productID,
		"quantity":   1,
	})
	id := decodeOrder(t, env).ID
	s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%d/accept", id), admin, nil)

	w, env := s.do(t, http.MethodPost, "/api/v1/payments", buyer, map[string]interface{}{"order_id": id})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, 50200, env.Code)

	// 三次失败后熔断器打开
	w, env = s.do(t, http.MethodPost, "/api/v1/payments", buyer, map[string]interface{}{"order_id": id})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 50300, env.Code)

	w, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", id), buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decodeOrder(t, env).PaymentState)
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, okGateway(), middleware.NewRateLimiter(2, time.Hour))
	buyer := s.token(t, 1, jwt.RoleBuyer)

	for i := 0; i < 2; i++ {
		w, _ := s.do(t, http.MethodGet, "/api/v1/orders/mine", buyer, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w, env := s.do(t, http.MethodGet, "/api/v1/orders/mine", buyer, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 42900, env.Code)

	// /ping不限流
	w, _ = s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
