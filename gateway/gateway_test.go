package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/testutil"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// echoed is what the fake upstream saw
type echoed struct {
	Method    string      `json:"method"`
	Path      string      `json:"path"`
	Query     string      `json:"query"`
	Body      string      `json:"body"`
	Header    http.Header `json:"header"`
	RequestID string      `json:"request_id"`
}

func echoUpstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoed{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			Body:      string(body),
			Header:    r.Header,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		})
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func newTestGateway(t *testing.T, upstream string) (*gin.Engine, *ServiceClients) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.RedisClient = nil

	clients := &ServiceClients{
		AuthService:     NewServiceClient("auth", upstream),
		CompanyService:  NewServiceClient("company", upstream),
		TerminalService: NewServiceClient("terminal", upstream),
		OrderService:    NewServiceClient("order", upstream),
		AuditService:    NewServiceClient("audit", upstream),
	}
	return newRouter(clients, middleware.NewAuthMiddleware(testutil.AppConfig()), nil), clients
}

func adminUser() *models.User {
	companyID := uuid.New()
	return &models.User{
		ID:        uuid.New(),
		CompanyID: &companyID,
		Email:     "admin@acme.example.com",
		Role:      models.RoleCompanyAdmin,
		IsActive:  true,
	}
}

func decodeEcho(t *testing.T, w *httptest.ResponseRecorder) echoed {
	t.Helper()
	var got echoed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got), w.Body.String())
	return got
}

func TestLoginIsForwardedWithoutToken(t *testing.T) {
	upstream, _ := echoUpstream(t)
	router, _ := newTestGateway(t, upstream.URL)

	req := testutil.JSON(t, http.MethodPost, "/auth/login", gin.H{"email": "a@example.com", "password": "secret"})
	w := testutil.Do(router, req, "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeEcho(t, w)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/auth/login", got.Path)
	assert.JSONEq(t, `{"email":"a@example.com","password":"secret"}`, got.Body)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, got.RequestID, w.Header().Get(middleware.RequestIDHeader))
}

func TestAuthenticatedRequestCarriesIdentity(t *testing.T) {
	upstream, _ := echoUpstream(t)
	router, _ := newTestGateway(t, upstream.URL)
	user := adminUser()

	path := "/companies/" + user.CompanyID.String() + "/terminals?search=north"
	req := testutil.JSON(t, http.MethodGet, path, nil)
	req.Header.Set(HeaderUserRole, string(models.RoleSuperAdmin))
	req.Header.Set(middleware.RequestIDHeader, "req-123")

	w := testutil.Do(router, req, testutil.Token(t, user))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeEcho(t, w)
	assert.Equal(t, "search=north", got.Query)
	assert.Equal(t, "req-123", got.RequestID)
	assert.Equal(t, user.ID.String(), got.Header.Get(HeaderUserID))
	assert.Equal(t, user.CompanyID.String(), got.Header.Get(HeaderCompanyID))
	assert.Equal(t, []string{string(models.RoleCompanyAdmin)}, got.Header.Values(HeaderUserRole))
	assert.True(t, strings.HasPrefix(got.Header.Get("Authorization"), "Bearer "))
}

func TestAnonymousRequestIsRedirectedAtTheEdge(t *testing.T) {
	upstream, hits := echoUpstream(t)
	router, _ := newTestGateway(t, upstream.URL)

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/orders/"+uuid.NewString(), nil), "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/users/sign_in", w.Header().Get("Location"))
	assert.Zero(t, hits.Load())
}

func TestUpstreamRedirectIsPassedThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/vendors", http.StatusFound)
	}))
	t.Cleanup(upstream.Close)
	router, _ := newTestGateway(t, upstream.URL)

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/terminals/"+uuid.NewString(), nil), testutil.Token(t, adminUser()))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/vendors", w.Header().Get("Location"))
}

func TestCircuitOpensOnFailingUpstream(t *testing.T) {
	var hits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(upstream.Close)
	router, clients := newTestGateway(t, upstream.URL)
	token := testutil.Token(t, adminUser())

	for i := 0; i < 5; i++ {
		w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/menu_items/sample_file", nil), token)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
	assert.Equal(t, utils.StateOpen, clients.TerminalService.breaker.GetState())

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/menu_items/sample_file", nil), token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, int64(5), hits.Load())

	// other services keep their own breaker
	assert.Equal(t, utils.StateClosed, clients.OrderService.breaker.GetState())
}

func TestUnreachableUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstream.Close()
	router, _ := newTestGateway(t, upstream.URL)

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/me", nil), testutil.Token(t, adminUser()))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServiceStatus(t *testing.T) {
	upstream, _ := echoUpstream(t)
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	router, clients := newTestGateway(t, upstream.URL)
	clients.AuditService = NewServiceClient("audit", down.URL)

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/health/services", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]ServiceStatus
	testutil.Decode(t, w, &status)
	require.Len(t, status, 5)
	assert.True(t, status["company_service"].Healthy)
	assert.Equal(t, "closed", status["company_service"].Circuit)
	assert.False(t, status["audit_service"].Healthy)
	assert.NotEmpty(t, status["audit_service"].Error)
}

func TestCORSPreflight(t *testing.T) {
	upstream, hits := echoUpstream(t)
	router, _ := newTestGateway(t, upstream.URL)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := testutil.Do(router, req, "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, hits.Load())
}

func TestCORSConfigRestrictsOrigins(t *testing.T) {
	cfg := corsConfig([]string{"https://admin.example.com"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://admin.example.com"}, cfg.AllowOrigins)
	assert.NoError(t, cfg.Validate())
}
