package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caterly/internal/auth"
	"caterly/internal/bills"
	"caterly/internal/customers"
	"caterly/internal/documents"
	"caterly/internal/expenses"
	"caterly/internal/menuitems"
	"caterly/internal/middleware"
	"caterly/internal/orders"
	"caterly/internal/workforce"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router *gin.Engine
	auth   *auth.Service
	tokens *auth.TokenManager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	authService := auth.NewService(auth.NewInMemoryUserRepository(), tokens)

	customerService := customers.NewService(customers.NewInMemoryRepository())
	workforceService := workforce.NewService(workforce.NewInMemoryRepository())
	orderService := orders.NewService(orders.NewInMemoryRepository())
	billService := bills.NewService(bills.NewInMemoryRepository(), orderService)
	orderService.SetBillLinker(billService)
	expenseService := expenses.NewService(expenses.NewInMemoryRepository(), orderService, 100)
	docService := documents.NewService(documents.Sources{
		Bills:     billService,
		Orders:    orderService,
		Customers: customerService,
		Expenses:  expenseService,
		Workforce: workforceService,
	}, documents.Company{Name: "Caterly"})

	r := NewRouter(Handlers{
		Auth:      auth.NewHandler(authService, false),
		Customers: customers.NewHandler(customerService),
		MenuItems: menuitems.NewHandler(menuitems.NewService(menuitems.NewInMemoryRepository())),
		Workforce: workforce.NewHandler(workforceService),
		Orders:    orders.NewHandler(orderService),
		Bills:     bills.NewHandler(billService),
		Expenses:  expenses.NewHandler(expenseService),
		Documents: documents.NewHandler(docService),
	}, Options{
		Tokens:      tokens,
		CORSOrigins: []string{"http://localhost:3000"},
		AuthLimiter: middleware.NewRateLimiter(100, 100),
	})
	return &testApp{router: r, auth: authService, tokens: tokens}
}

func (a *testApp) token(t *testing.T, role string) string {
	t.Helper()
	u, err := a.auth.Register(context.Background(), role+" user", role+"@caterly.in", "pass1234", role)
	require.NoError(t, err)
	tok, err := a.tokens.GenerateAccess(u)
	require.NoError(t, err)
	return tok
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/health", "", nil)

	w := app.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestBusinessRoutesNeedAuthentication(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/customers", "/orders", "/bills", "/expenses", "/workforce", "/menu-items", "/documents/bill/1"} {
		w := app.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestWritesNeedManager(t *testing.T) {
	app := newTestApp(t)
	supervisor := app.token(t, auth.RoleSupervisor)
	manager := app.token(t, auth.RoleManager)

	w := app.do(http.MethodGet, "/customers", supervisor, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodPost, "/customers", supervisor, customers.Input{Name: "Mehta"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodPost, "/customers", manager, customers.Input{Name: "Mehta"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRegisterIsAdminOnly(t *testing.T) {
	app := newTestApp(t)
	manager := app.token(t, auth.RoleManager)
	admin := app.token(t, auth.RoleAdmin)

	body := map[string]string{"name": "Neha", "email": "neha@caterly.in", "password": "pass1234"}

	w := app.do(http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/auth/register", manager, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodPost, "/auth/register", admin, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRefreshWithBadTokenClearsCookies(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: "garbage"})
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired refresh token"}`, w.Body.String())

	cleared := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		if c.Value == "" && c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	assert.True(t, cleared[auth.AccessCookie])
	assert.True(t, cleared[auth.RefreshCookie])
}

func TestBillSendRouteIsMounted(t *testing.T) {
	app := newTestApp(t)
	manager := app.token(t, auth.RoleManager)

	w := app.do(http.MethodPost, "/bills/nope/send", manager, map[string]string{"channel": "email"})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}
