package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/testutil"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

func setup(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	testutil.NewRedis(t)
	st := store.New(db)

	cfg := testutil.AppConfig()
	router := newRouter(dependencies{
		store:    st,
		auth:     middleware.NewAuthMiddleware(cfg),
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.TokenTTL,
	})
	return router, st
}

func login(t *testing.T, router *gin.Engine, email, password string) (int, LoginResponse) {
	t.Helper()

	req := testutil.JSON(t, http.MethodPost, "/auth/login", gin.H{"email": email, "password": password})
	w := testutil.Do(router, req, "")

	var resp LoginResponse
	if w.Code == http.StatusOK {
		testutil.Decode(t, w, &resp)
	}
	return w.Code, resp
}

func TestLogin(t *testing.T) {
	router, st := setup(t)
	_, admin := testutil.CreateCompany(t, st.DB(), "Acme")

	code, resp := login(t, router, "  "+admin.Email+" ", testutil.Password)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(time.Hour.Seconds()), resp.ExpiresIn)
	assert.Equal(t, admin.ID, resp.User.UserID)
	assert.Equal(t, models.RoleCompanyAdmin, resp.User.Role)

	stored, err := st.GetUser(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejections(t *testing.T) {
	router, st := setup(t)
	company, _ := testutil.CreateCompany(t, st.DB(), "Acme")
	employee := testutil.CreateEmployee(t, st.DB(), company)
	inactive := testutil.CreateEmployee(t, st.DB(), company)
	require.NoError(t, st.SetUserActive(context.Background(), inactive, false))

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{name: "wrong password", email: employee.Email, password: "not-the-password", want: http.StatusUnauthorized},
		{name: "unknown email", email: "nobody@example.com", password: testutil.Password, want: http.StatusUnauthorized},
		{name: "inactive user", email: inactive.Email, password: testutil.Password, want: http.StatusUnauthorized},
		{name: "missing password", email: employee.Email, password: "", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := login(t, router, tt.email, tt.password)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	router, st := setup(t)
	company, _ := testutil.CreateCompany(t, st.DB(), "Acme")
	employee := testutil.CreateEmployee(t, st.DB(), company)

	code, session := login(t, router, employee.Email, testutil.Password)
	require.Equal(t, http.StatusOK, code)

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/me", nil), session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me models.User
	testutil.Decode(t, w, &me)
	assert.Equal(t, employee.ID, me.ID)
	assert.Equal(t, employee.Email, me.Email)

	w = testutil.Do(router, testutil.JSON(t, http.MethodPost, "/auth/logout", nil), session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Logout successful", testutil.Decode(t, w, nil).Message)

	w = testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/me", nil), session.AccessToken)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/users/sign_in", w.Header().Get("Location"))
}

func TestMeRequiresToken(t *testing.T) {
	router, _ := setup(t)

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/me", nil), "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/users/sign_in", w.Header().Get("Location"))
}

func TestConfirmSetsPassword(t *testing.T) {
	router, st := setup(t)
	company, _ := testutil.CreateCompany(t, st.DB(), "Acme")
	pending := models.NewEmployee(company.ID, "Imported", "imported@example.com", "9123456780")
	require.NoError(t, st.CreateUser(context.Background(), pending, ""))

	code, _ := login(t, router, pending.Email, "")
	assert.Equal(t, http.StatusBadRequest, code)

	token, err := utils.IssueConfirmationToken(pending.ID, time.Hour)
	require.NoError(t, err)

	confirm := func(body gin.H) *httptest.ResponseRecorder {
		return testutil.Do(router, testutil.JSON(t, http.MethodPost, "/auth/confirm", body), "")
	}

	w := confirm(gin.H{"token": token, "password": "short"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.NotEmpty(t, testutil.Decode(t, w, nil).Errors["password"])

	w = confirm(gin.H{"token": token, "password": "a-new-password", "password_confirmation": "something-else"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, []string{"doesn't match Password"}, testutil.Decode(t, w, nil).Errors["password_confirmation"])

	w = confirm(gin.H{"token": token, "password": "a-new-password", "password_confirmation": "a-new-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Password set successfully", testutil.Decode(t, w, nil).Message)

	code, resp := login(t, router, pending.Email, "a-new-password")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, pending.ID, resp.User.UserID)

	w = confirm(gin.H{"token": token, "password": "another-password"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, []string{"is invalid"}, testutil.Decode(t, w, nil).Errors["token"])
}

func TestConfirmRefusesInactiveUser(t *testing.T) {
	router, st := setup(t)
	company, _ := testutil.CreateCompany(t, st.DB(), "Acme")
	employee := testutil.CreateEmployee(t, st.DB(), company)
	token, err := utils.IssueConfirmationToken(employee.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, st.SetUserActive(context.Background(), employee, false))

	body := gin.H{"token": token, "password": "a-new-password"}
	w := testutil.Do(router, testutil.JSON(t, http.MethodPost, "/auth/confirm", body), "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	stored, err := st.GetUser(context.Background(), employee.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword(testutil.Password))
}

func TestSessions(t *testing.T) {
	router, st := setup(t)
	company, _ := testutil.CreateCompany(t, st.DB(), "Acme")
	employee := testutil.CreateEmployee(t, st.DB(), company)
	other := testutil.CreateEmployee(t, st.DB(), company)

	_, laptop := login(t, router, employee.Email, testutil.Password)
	_, phone := login(t, router, employee.Email, testutil.Password)
	_, foreign := login(t, router, other.Email, testutil.Password)

	w := testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/sessions", nil), laptop.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listed SessionsResponse
	testutil.Decode(t, w, &listed)
	require.Equal(t, 2, listed.TotalSessions)
	for _, s := range listed.ActiveSessions {
		assert.Equal(t, s.SessionID == laptop.SessionID, s.IsCurrent, s.SessionID)
	}

	w = testutil.Do(router, testutil.JSON(t, http.MethodDelete, "/auth/sessions/"+foreign.SessionID, nil), laptop.AccessToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.Do(router, testutil.JSON(t, http.MethodDelete, "/auth/sessions/"+phone.SessionID, nil), laptop.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/me", nil), phone.AccessToken)
	assert.Equal(t, http.StatusFound, w.Code)
	w = testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/me", nil), foreign.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(router, testutil.JSON(t, http.MethodGet, "/auth/sessions", nil), laptop.AccessToken)
	testutil.Decode(t, w, &listed)
	assert.Equal(t, 1, listed.TotalSessions)
}
