package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pavitra93/food-ordering-admin/shared/api"
	"github.com/pavitra93/food-ordering-admin/shared/events"
	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/testutil"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	store  *store.Store
	events *events.Recorder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	_, client := testutil.NewRedis(t)
	recorder := &events.Recorder{}
	st := store.New(db)

	router := newRouter(dependencies{
		store:           st,
		auth:            middleware.NewAuthMiddleware(testutil.AppConfig()),
		artifacts:       importer.NewRedisArtifactStore(client),
		events:          recorder,
		confirmationTTL: time.Hour,
	})
	return &fixture{router: router, db: db, store: st, events: recorder}
}

func (f *fixture) countUsers(t *testing.T, companyID uuid.UUID) int64 {
	t.Helper()
	count, err := f.store.CountUsers(context.Background(), companyID)
	require.NoError(t, err)
	return count
}

func assertRedirect(t *testing.T, code int, location string, w interface{ Header() http.Header }) {
	t.Helper()
	assert.Equal(t, http.StatusFound, code)
	assert.Equal(t, location, w.Header().Get("Location"))
}

func TestCreateCompany(t *testing.T) {
	f := setup(t)
	root, err := f.store.CreateSuperAdmin(context.Background(), "Root", "root@example.com", "9999999999", testutil.Password)
	require.NoError(t, err)

	body := gin.H{
		"company": testutil.AllDayCompany("Acme"),
		"admin": gin.H{
			"name":          "Acme Admin",
			"email":         "admin@acme.example.com",
			"mobile_number": "9876543210",
			"password":      testutil.Password,
		},
	}
	w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, "/companies", body), testutil.Token(t, root))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var company models.Company
	testutil.Decode(t, w, &company)
	assert.Equal(t, "Acme", company.Name)
	require.Len(t, company.Employees, 1)
	assert.Equal(t, models.RoleCompanyAdmin, company.Employees[0].Role)
	assert.EqualValues(t, 1, f.countUsers(t, company.ID))

	t.Run("company admins cannot create companies", func(t *testing.T) {
		_, admin := testutil.CreateCompany(t, f.db, "Globex")
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, "/companies", body), testutil.Token(t, admin))
		assertRedirect(t, w.Code, "/vendors", w)
	})

	t.Run("invalid company is rejected with field errors", func(t *testing.T) {
		bad := testutil.AllDayCompany("Initech")
		bad.StartOrderingAt = "18:00"
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, "/companies", gin.H{
			"company": bad,
			"admin":   gin.H{"name": "X", "email": "x@initech.example.com", "mobile_number": "9876543210", "password": testutil.Password},
		}), testutil.Token(t, root))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		assert.NotEmpty(t, testutil.Decode(t, w, nil).Errors)
	})
}

func TestCompanyGuard(t *testing.T) {
	f := setup(t)
	acme, acmeAdmin := testutil.CreateCompany(t, f.db, "Acme")
	globex, _ := testutil.CreateCompany(t, f.db, "Globex")
	employee := testutil.CreateEmployee(t, f.db, acme)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		location string
	}{
		{"anonymous users index", http.MethodGet, "/companies/" + acme.ID.String() + "/users", "", "/users/sign_in"},
		{"cross-tenant users index", http.MethodGet, "/companies/" + globex.ID.String() + "/users", testutil.Token(t, acmeAdmin), "/vendors"},
		{"cross-tenant company show", http.MethodGet, "/companies/" + globex.ID.String(), testutil.Token(t, acmeAdmin), "/vendors"},
		{"employee edits company", http.MethodPut, "/companies/" + acme.ID.String(), testutil.Token(t, employee), "/vendors"},
		{"employee lists companies", http.MethodGet, "/companies", testutil.Token(t, employee), "/vendors"},
		{"malformed company id", http.MethodGet, "/companies/not-a-uuid/users", testutil.Token(t, acmeAdmin), "/vendors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.Do(f.router, testutil.JSON(t, tt.method, tt.path, nil), tt.token)
			assertRedirect(t, w.Code, tt.location, w)
		})
	}
}

func TestUpdateCompany(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	path := "/companies/" + acme.ID.String()

	w := testutil.Do(f.router, testutil.JSON(t, http.MethodPut, path, gin.H{
		"company": gin.H{"name": "Acme Foods", "address": gin.H{"city": "Mysuru"}},
	}), testutil.Token(t, admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := f.store.GetCompany(context.Background(), acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Foods", stored.Name)
	assert.Equal(t, "Mysuru", stored.Address.City)
	assert.Equal(t, "560001", stored.Address.PostalCode)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodPut, path, gin.H{"name": "Nope"}), testutil.Token(t, admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUser(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	globex, globexAdmin := testutil.CreateCompany(t, f.db, "Globex")
	employee := testutil.CreateEmployee(t, f.db, acme)
	path := "/companies/" + acme.ID.String() + "/users"

	user := gin.H{"name": "New Hire", "email": "new.hire@example.com", "mobile_number": "9000000001", "password": testutil.Password}

	w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, gin.H{"user": user}), testutil.Token(t, admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 3, f.countUsers(t, acme.ID))
	assert.Equal(t, []string{events.UserCreated}, f.events.Types())

	t.Run("other company's admin is redirected and nothing is created", func(t *testing.T) {
		other := gin.H{"name": "Spy", "email": "spy@example.com", "mobile_number": "9000000002"}
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, gin.H{"user": other}), testutil.Token(t, globexAdmin))
		assertRedirect(t, w.Code, "/vendors", w)
		assert.EqualValues(t, 3, f.countUsers(t, acme.ID))
		assert.EqualValues(t, 1, f.countUsers(t, globex.ID))
	})

	t.Run("employees cannot create admins", func(t *testing.T) {
		promoted := gin.H{"name": "Boss", "email": "boss@example.com", "mobile_number": "9000000003", "role": "company_admin"}
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, gin.H{"user": promoted}), testutil.Token(t, employee))
		assertRedirect(t, w.Code, "/vendors", w)
		assert.EqualValues(t, 3, f.countUsers(t, acme.ID))
	})

	t.Run("missing root is a bad request", func(t *testing.T) {
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, user), testutil.Token(t, admin))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("taken email and bad mobile are reported", func(t *testing.T) {
		dup := gin.H{"name": "Dup", "email": "new.hire@example.com", "mobile_number": "12345"}
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, gin.H{"user": dup}), testutil.Token(t, admin))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		resp := testutil.Decode(t, w, nil)
		assert.Contains(t, resp.Errors["email"], "has already been taken")
		assert.NotEmpty(t, resp.Errors["mobile_number"])
	})
}

func TestPasswordlessUsersGetConfirmationTokens(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	token := testutil.Token(t, admin)
	base := "/companies/" + acme.ID.String() + "/users"

	t.Run("created without a password", func(t *testing.T) {
		body := gin.H{"user": gin.H{"name": "New Hire", "email": "hire@example.com", "mobile_number": "9000000001"}}
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, base, body), token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created CreateUserResponse
		testutil.Decode(t, w, &created)
		require.NotEmpty(t, created.ConfirmationToken)
		userID, err := utils.ConsumeConfirmationToken(created.ConfirmationToken)
		require.NoError(t, err)
		assert.Equal(t, created.ID, userID)
	})

	t.Run("created with a password", func(t *testing.T) {
		body := gin.H{"user": gin.H{"name": "Ready", "email": "ready@example.com", "mobile_number": "9000000002", "password": testutil.Password}}
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, base, body), token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created CreateUserResponse
		testutil.Decode(t, w, &created)
		assert.Empty(t, created.ConfirmationToken)
	})

	t.Run("imported", func(t *testing.T) {
		csv := `name,email,mobile_number
Asha,asha@example.com,9000000003
Bad,,9000000004
`
		w := testutil.Do(f.router, testutil.Upload(t, base+"/import", api.UploadField, csv, nil), token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result api.ImportResponse
		testutil.Decode(t, w, &result)
		require.Len(t, result.Confirmations, 1)
		assert.Equal(t, "asha@example.com", result.Confirmations[0].Email)
		userID, err := utils.ConsumeConfirmationToken(result.Confirmations[0].Token)
		require.NoError(t, err)
		assert.Equal(t, result.Confirmations[0].UserID, userID)
	})
}

func TestIssueConfirmation(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	_, globexAdmin := testutil.CreateCompany(t, f.db, "Globex")
	employee := testutil.CreateEmployee(t, f.db, acme)
	path := fmt.Sprintf("/companies/%s/users/%s/confirmation", acme.ID, employee.ID)

	w := testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, nil), testutil.Token(t, employee))
	assertRedirect(t, w.Code, "/vendors", w)
	w = testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, nil), testutil.Token(t, globexAdmin))
	assertRedirect(t, w.Code, "/vendors", w)

	adminToken := testutil.Token(t, admin)
	w = testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, nil), adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first ConfirmationResponse
	testutil.Decode(t, w, &first)
	assert.Equal(t, employee.ID, first.UserID)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, nil), adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var second ConfirmationResponse
	testutil.Decode(t, w, &second)

	// reissuing retires the earlier token
	_, err := utils.ConsumeConfirmationToken(first.ConfirmationToken)
	assert.ErrorIs(t, err, utils.ErrConfirmationNotFound)
	userID, err := utils.ConsumeConfirmationToken(second.ConfirmationToken)
	require.NoError(t, err)
	assert.Equal(t, employee.ID, userID)

	require.NoError(t, f.store.SetUserActive(context.Background(), employee, false))
	w = testutil.Do(f.router, testutil.JSON(t, http.MethodPost, path, nil), adminToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListAndSearchUsers(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	for i := 0; i < 11; i++ {
		testutil.CreateEmployee(t, f.db, acme)
	}
	token := testutil.Token(t, admin)
	base := "/companies/" + acme.ID.String() + "/users"

	w := testutil.Do(f.router, testutil.JSON(t, http.MethodGet, base+"?page=2&per_page=10", nil), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page UserPage
	testutil.Decode(t, w, &page)
	assert.Len(t, page.Users, 2)
	assert.EqualValues(t, 12, page.Total)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, base+"/search?search_value=ACME%20ADMIN", nil), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var found []models.User
	testutil.Decode(t, w, &found)
	require.Len(t, found, 1)
	assert.Equal(t, admin.ID, found[0].ID)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, base+"/search?search_value=nobody", nil), token)
	found = nil
	testutil.Decode(t, w, &found)
	assert.Empty(t, found)
}

func TestShowUser(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	globex, _ := testutil.CreateCompany(t, f.db, "Globex")
	outsider := testutil.CreateEmployee(t, f.db, globex)
	token := testutil.Token(t, admin)

	w := testutil.Do(f.router, testutil.JSON(t, http.MethodGet, fmt.Sprintf("/companies/%s/users/%s", acme.ID, admin.ID), nil), token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, fmt.Sprintf("/companies/%s/users/%s", acme.ID, outsider.ID), nil), token)
	assertRedirect(t, w.Code, "/vendors", w)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, fmt.Sprintf("/companies/%s/users/%s", acme.ID, uuid.New()), nil), token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUserStatus(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	employee := testutil.CreateEmployee(t, f.db, acme)
	adminToken := testutil.Token(t, admin)
	employeeToken := testutil.Token(t, employee)
	employeePath := fmt.Sprintf("/companies/%s/users/%s", acme.ID, employee.ID)
	adminPath := fmt.Sprintf("/companies/%s/users/%s", acme.ID, admin.ID)
	deactivate := gin.H{"user": gin.H{"is_active": false}}

	t.Run("employee cannot change status", func(t *testing.T) {
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPatch, adminPath, deactivate), employeeToken)
		assertRedirect(t, w.Code, "/vendors", w)
		stored, err := f.store.GetUser(context.Background(), admin.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
	})

	t.Run("missing root is a bad request", func(t *testing.T) {
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPatch, employeePath, gin.H{"is_active": false}), adminToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = testutil.Do(f.router, testutil.JSON(t, http.MethodPatch, employeePath, gin.H{"user": gin.H{"name": "x"}}), adminToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("admin cannot deactivate themselves", func(t *testing.T) {
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPatch, adminPath, deactivate), adminToken)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("admin deactivates employee and their sessions end", func(t *testing.T) {
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPatch, employeePath, deactivate), adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		stored, err := f.store.GetUser(context.Background(), employee.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		assert.Equal(t, employee.Name, stored.Name)
		assert.Contains(t, f.events.Types(), events.UserStatusChanged)

		w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, "/companies/"+acme.ID.String()+"/users", nil), employeeToken)
		assertRedirect(t, w.Code, "/users/sign_in", w)
	})

	t.Run("admin reactivates employee", func(t *testing.T) {
		w := testutil.Do(f.router, testutil.JSON(t, http.MethodPatch, employeePath, gin.H{"user": gin.H{"is_active": true}}), adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		stored, err := f.store.GetUser(context.Background(), employee.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
	})
}

func TestImportUsers(t *testing.T) {
	f := setup(t)
	acme, admin := testutil.CreateCompany(t, f.db, "Acme")
	_, globexAdmin := testutil.CreateCompany(t, f.db, "Globex")
	token := testutil.Token(t, admin)
	importPath := "/companies/" + acme.ID.String() + "/users/import"
	downloadPath := "/companies/" + acme.ID.String() + "/users/invalid_rows"

	mixed := "name,email,mobile_number\n" +
		"Asha,asha@example.com,9000000001\n" +
		"Bad Email,not-an-email,9000000002\n" +
		"Short Mobile,short@example.com,123\n"

	w := testutil.Do(f.router, testutil.Upload(t, importPath, api.UploadField, mixed, nil), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result api.ImportResponse
	testutil.Decode(t, w, &result)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.RejectedRows, 2)
	assert.Equal(t, 3, result.RejectedRows[0].Line)
	assert.EqualValues(t, 2, f.countUsers(t, acme.ID))
	assert.Contains(t, f.events.Types(), events.EmployeesImported)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, downloadPath, nil), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "name,email,mobile_number\nBad Email,not-an-email,9000000002\nShort Mobile,short@example.com,123\n", w.Body.String())

	t.Run("a later import with rejections overwrites the file", func(t *testing.T) {
		again := "name,email,mobile_number\nOnly Bad,,9000000009\n"
		w := testutil.Do(f.router, testutil.Upload(t, importPath, api.UploadField, again, nil), token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, downloadPath, nil), token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "name,email,mobile_number\nOnly Bad,,9000000009\n", w.Body.String())
	})

	t.Run("a clean import removes the file", func(t *testing.T) {
		clean := "name,email,mobile_number\nBala,bala@example.com,9000000003\n"
		w := testutil.Do(f.router, testutil.Upload(t, importPath, api.UploadField, clean, nil), token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, downloadPath, nil), token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed file imports nothing", func(t *testing.T) {
		before := f.countUsers(t, acme.ID)
		w := testutil.Do(f.router, testutil.Upload(t, importPath, api.UploadField, "name,phone\nX,1\n", nil), token)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		var failed api.ImportResponse
		testutil.Decode(t, w, &failed)
		assert.True(t, failed.ImportFailed)
		assert.Equal(t, before, f.countUsers(t, acme.ID))
	})

	t.Run("missing file is a bad request", func(t *testing.T) {
		w := testutil.Do(f.router, testutil.Upload(t, importPath, "", "", map[string]string{"note": "x"}), token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other company's admin is redirected before parsing", func(t *testing.T) {
		before := f.countUsers(t, acme.ID)
		rows := "name,email,mobile_number\nIntruder,intruder@example.com,9000000004\n"
		w := testutil.Do(f.router, testutil.Upload(t, importPath, api.UploadField, rows, nil), testutil.Token(t, globexAdmin))
		assertRedirect(t, w.Code, "/vendors", w)
		assert.Equal(t, before, f.countUsers(t, acme.ID))

		w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, downloadPath, nil), testutil.Token(t, globexAdmin))
		assertRedirect(t, w.Code, "/vendors", w)
	})
}

func TestUsersSampleFile(t *testing.T) {
	f := setup(t)
	_, admin := testutil.CreateCompany(t, f.db, "Acme")
	token := testutil.Token(t, admin)

	w := testutil.Do(f.router, testutil.JSON(t, http.MethodGet, "/users/sample_file?file_type=csv", nil), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "name,email,mobile_number\n"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sample_employees.csv")

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, "/users/sample_file?file_type=xlsx", nil), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(f.router, testutil.JSON(t, http.MethodGet, "/users/sample_file?file_type=csv", nil), "")
	assertRedirect(t, w.Code, "/users/sign_in", w)
}
