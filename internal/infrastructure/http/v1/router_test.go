package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/app"
	"pharmledger/internal/core/apperror"
	"pharmledger/internal/domain/auth"
	v1 "pharmledger/internal/infrastructure/http/v1"
	"pharmledger/internal/infrastructure/http/v1/dto"
	"pharmledger/internal/infrastructure/storage/memory"
	"pharmledger/pkg/logger"
)

const (
	adminEmail    = "admin@pharmacy.test"
	adminPassword = "admin-password"
)

type testAPI struct {
	t        *testing.T
	router   http.Handler
	services *app.Services
	store    *memory.Store
}

func newTestAPI(t *testing.T, mutate ...func(*v1.RouterConfig)) *testAPI {
	t.Helper()
	store := memory.New()
	services, err := app.NewServices(app.MemoryRepositories(store), app.Options{
		JWT:  auth.DefaultJWTConfig("router-test-secret-with-enough-length"),
		Auth: auth.ServiceConfig{MaxLoginAttempts: 5, LockDuration: time.Minute, PasswordMinLength: 8, BcryptCost: 4},
	})
	require.NoError(t, err)

	_, err = services.Auth.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	cfg := v1.RouterConfig{
		Services:    services,
		Logger:      logger.Nop(),
		DB:          store,
		Idempotency: store.Idempotency(),
		Version:     "test",
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return &testAPI{t: t, router: v1.NewRouter(cfg), services: services, store: store}
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.LoginResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token.AccessToken
}

func (a *testAPI) createUser(adminToken, email string, role auth.Role) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/auth/users", adminToken, dto.RegisterRequest{
		Email: email, Password: "staff-password", FullName: "Staff " + string(role), Role: string(role),
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return a.login(email, "staff-password")
}

func (a *testAPI) createMedicine(token, name string, qty int, price string) dto.MedicineResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/medicines", token, map[string]any{
		"name":         name,
		"sellingPrice": price,
		"unitCost":     "10.00",
		"quantity":     qty,
		"reorderLevel": 5,
		"expiryDate":   time.Now().AddDate(1, 0, 0).Format(time.DateOnly),
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var m dto.MedicineResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"healthy"`)

	w = api.do(http.MethodGet, "/health/info", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
}

func TestTraceHeaders(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health/live", "", nil, "X-Request-ID", "req-123")
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	t.Run("missing_token", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/v1/medicines", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.CodeUnauthorized, decodeError(t, w).Code)
	})

	t.Run("garbage_token", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/v1/medicines", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong_password", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: adminEmail, Password: "nope-nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("me", func(t *testing.T) {
		token := api.login(adminEmail, adminPassword)
		w := api.do(http.MethodGet, "/api/v1/auth/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var me dto.UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
		assert.Equal(t, adminEmail, me.Email)
		assert.True(t, me.IsAdmin)
	})
}

func TestPermissions(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(adminEmail, adminPassword)
	cashier := api.createUser(admin, "cashier@pharmacy.test", auth.RoleCashier)

	w := api.do(http.MethodGet, "/api/v1/medicines", cashier, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/v1/categories", cashier, dto.CategoryRequest{Name: "Analgesics"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperror.CodeForbidden, body.Code)
	assert.Equal(t, auth.PermCatalogWrite, body.Details["required_permission"])

	w = api.do(http.MethodPost, "/api/v1/auth/users", cashier, dto.RegisterRequest{
		Email: "x@pharmacy.test", Password: "long-enough", FullName: "X", Role: "cashier",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCategoryCRUD(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)

	w := api.do(http.MethodPost, "/api/v1/categories", token, dto.CategoryRequest{Name: "Antibiotics"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.CategoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Antibiotics", created.Name)

	w = api.do(http.MethodPost, "/api/v1/categories", token, dto.CategoryRequest{Name: "Antibiotics"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeDuplicate, decodeError(t, w).Code)

	desc := "penicillins and friends"
	w = api.do(http.MethodPut, "/api/v1/categories/"+created.ID, token, dto.CategoryRequest{Name: "Antibiotics", Description: &desc})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ListResponse[dto.CategoryResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, &desc, list.Items[0].Description)

	w = api.do(http.MethodDelete, "/api/v1/categories/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodGet, "/api/v1/categories/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/v1/categories/not-an-id", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, decodeError(t, w).Code)
}

func TestMedicineStockFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)
	med := api.createMedicine(token, "Amoxicillin 500mg", 20, "50.00")
	assert.Equal(t, 20, med.Quantity)
	assert.Equal(t, "50.00", med.SellingPrice)

	w := api.do(http.MethodPost, "/api/v1/medicines/"+med.ID+"/adjust", token, dto.AdjustRequest{Delta: -18, Reason: "damaged"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var adj dto.AdjustResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adj))
	assert.Equal(t, 2, adj.Quantity)
	assert.Equal(t, "adjustment", adj.Movement.MovementType)

	w = api.do(http.MethodPost, "/api/v1/medicines/"+med.ID+"/adjust", token, dto.AdjustRequest{Delta: -5, Reason: "damaged"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, decodeError(t, w).Code)

	w = api.do(http.MethodGet, "/api/v1/medicines/low-stock", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var low dto.ListResponse[dto.MedicineResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &low))
	require.Len(t, low.Items, 1)
	assert.True(t, low.Items[0].LowStock)

	w = api.do(http.MethodGet, "/api/v1/medicines/"+med.ID+"/movements", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var moves dto.ListResponse[dto.MovementResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moves))
	assert.Len(t, moves.Items, 2, "opening stock and the adjustment")

	w = api.do(http.MethodGet, "/api/v1/stock/totals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totals"`)
}

func TestRecordSale(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)
	med := api.createMedicine(token, "Paracetamol", 10, "5.50")

	sale := dto.RecordSaleRequest{
		PaymentMethod: "cash",
		Items:         []dto.SaleItemRequest{{MedicineID: med.ID, Quantity: 3}},
	}
	w := api.do(http.MethodPost, "/api/v1/sales", token, sale)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.SaleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SaleNumber)
	assert.Equal(t, "16.50", resp.TotalAmount)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "Paracetamol", resp.Lines[0].MedicineName)

	w = api.do(http.MethodGet, "/api/v1/medicines/"+med.ID, token, nil)
	var after dto.MedicineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.Equal(t, 7, after.Quantity)

	t.Run("insufficient_stock_rolls_back", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/v1/sales", token, dto.RecordSaleRequest{
			PaymentMethod: "cash",
			Items:         []dto.SaleItemRequest{{MedicineID: med.ID, Quantity: 100}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, apperror.CodeInsufficientStock, body.Code)

		w = api.do(http.MethodGet, "/api/v1/sales", token, nil)
		var list dto.ListResponse[dto.SaleResponse]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Len(t, list.Items, 1)
	})

	t.Run("empty_line_items", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/v1/sales", token, dto.RecordSaleRequest{PaymentMethod: "cash"})
		assert.Equal(t, apperror.CodeEmptyLineItems, decodeError(t, w).Code)
	})

	t.Run("export", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/v1/sales/export", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
		assert.NotEmpty(t, w.Body.Bytes())
	})
}

func TestRecordSale_Idempotent(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)
	med := api.createMedicine(token, "Ibuprofen", 10, "8.00")

	sale := dto.RecordSaleRequest{
		PaymentMethod: "mpesa",
		Items:         []dto.SaleItemRequest{{MedicineID: med.ID, Quantity: 2}},
	}
	first := api.do(http.MethodPost, "/api/v1/sales", token, sale, "Idempotency-Key", "sale-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := api.do(http.MethodPost, "/api/v1/sales", token, sale, "Idempotency-Key", "sale-1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	w := api.do(http.MethodGet, "/api/v1/medicines/"+med.ID, token, nil)
	var after dto.MedicineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.Equal(t, 8, after.Quantity, "stock decremented once")

	sale.Items[0].Quantity = 1
	conflict := api.do(http.MethodPost, "/api/v1/sales", token, sale, "Idempotency-Key", "sale-1")
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, apperror.CodeConflict, decodeError(t, conflict).Code)
}

func TestRecordSale_IdempotencyKeysArePerUser(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.login(adminEmail, adminPassword)
	cashierToken := api.createUser(adminToken, "cashier@pharmacy.test", auth.RoleCashier)
	med := api.createMedicine(adminToken, "Cetirizine", 10, "3.00")

	sale := dto.RecordSaleRequest{
		PaymentMethod: "cash",
		Items:         []dto.SaleItemRequest{{MedicineID: med.ID, Quantity: 1}},
	}
	first := api.do(http.MethodPost, "/api/v1/sales", adminToken, sale, "Idempotency-Key", "shared-key")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := api.do(http.MethodPost, "/api/v1/sales", cashierToken, sale, "Idempotency-Key", "shared-key")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Empty(t, second.Header().Get("Idempotent-Replayed"))
	assert.NotEqual(t, first.Body.String(), second.Body.String())

	w := api.do(http.MethodGet, "/api/v1/medicines/"+med.ID, adminToken, nil)
	var after dto.MedicineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	assert.Equal(t, 8, after.Quantity, "each user's sale is recorded")
}

func TestLoginRateLimit(t *testing.T) {
	api := newTestAPI(t, func(cfg *v1.RouterConfig) {
		cfg.LoginRateLimit = 0.001
		cfg.LoginRateBurst = 2
	})

	creds := dto.LoginRequest{Email: adminEmail, Password: "wrong-password"}
	for i := 0; i < 2; i++ {
		w := api.do(http.MethodPost, "/api/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := api.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperror.CodeRateLimited, decodeError(t, w).Code)
}

func TestDashboardAndAlerts(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)
	api.createMedicine(token, "Cetirizine", 2, "3.00")

	w := api.do(http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dash dto.DashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
	assert.Equal(t, int64(1), dash.TotalMedicines)
	assert.Equal(t, int64(1), dash.LowStockCount)

	w = api.do(http.MethodGet, "/api/v1/alerts", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"low_stock"`)

	// no queue configured: the scan runs inline
	w = api.do(http.MethodPost, "/api/v1/alerts/scan", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	today := time.Now().UTC().Format(time.DateOnly)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)
	w = api.do(http.MethodGet, "/api/v1/reports/sales-summary?from="+today+"&to="+tomorrow, token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/reports/sales-summary", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
