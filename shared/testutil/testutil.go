// Package testutil builds throwaway databases, Redis servers and fixtures for
// package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pavitra93/food-ordering-admin/shared/config"
	"github.com/pavitra93/food-ordering-admin/shared/models"
	"github.com/pavitra93/food-ordering-admin/shared/store"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// Secret signs tokens issued by Token
var Secret = []byte("test-secret")

// Password is the password of every fixture user
const Password = "password123"

// NewDB opens a migrated in-memory SQLite database private to t
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// NewRedis starts a miniredis server and points utils.RedisClient at it
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.RedisClient = client
	t.Cleanup(func() {
		_ = client.Close()
		utils.RedisClient = nil
	})
	return mr, client
}

// AllDayCompany returns an unsaved valid company whose ordering window spans the whole day
func AllDayCompany(name string) *models.Company {
	return &models.Company{
		Name:             name,
		Landline:         "0801234567",
		Email:            "contact@" + uuid.NewString()[:8] + ".example.com",
		Subsidy:          decimal.NewFromInt(20),
		StartOrderingAt:  "00:00",
		ReviewOrderingAt: "12:00",
		EndOrderingAt:    "23:59",
		Address: &models.Address{
			Line1:      "1 MG Road",
			City:       "Bengaluru",
			State:      "Karnataka",
			PostalCode: "560001",
		},
	}
}

// CreateCompany stores a company with its first admin
func CreateCompany(t *testing.T, db *gorm.DB, name string) (*models.Company, *models.User) {
	t.Helper()

	company := AllDayCompany(name)
	admin := &models.User{
		Name:         name + " Admin",
		Email:        "admin-" + uuid.NewString()[:8] + "@example.com",
		MobileNumber: "9876543210",
	}
	require.NoError(t, store.New(db).CreateCompany(context.Background(), company, admin, Password))
	return company, admin
}

// CreateEmployee stores an active employee of company
func CreateEmployee(t *testing.T, db *gorm.DB, company *models.Company) *models.User {
	t.Helper()

	user := models.NewEmployee(company.ID, "Employee", "employee-"+uuid.NewString()[:8]+"@example.com", "9123456780")
	require.NoError(t, store.New(db).CreateUser(context.Background(), user, Password))
	return user
}

// CreateTerminal stores a terminal of company with a unique landline
func CreateTerminal(t *testing.T, db *gorm.DB, company *models.Company, name string) *models.Terminal {
	t.Helper()

	terminal := &models.Terminal{
		CompanyID:      company.ID,
		Name:           name,
		Landline:       UniqueLandline(),
		PaymentMade:    decimal.Zero,
		MinOrderAmount: decimal.Zero,
	}
	require.NoError(t, store.New(db).CreateTerminal(context.Background(), terminal))
	return terminal
}

// CreateMenuItem stores a menu item of terminal
func CreateMenuItem(t *testing.T, db *gorm.DB, terminal *models.Terminal, name string, price int64) *models.MenuItem {
	t.Helper()

	item := &models.MenuItem{TerminalID: terminal.ID, Name: name, Price: decimal.NewFromInt(price)}
	require.NoError(t, store.New(db).CreateMenuItem(context.Background(), item))
	return item
}

var landlineSeq atomic.Int64

// UniqueLandline returns a valid 10-digit landline not handed out before in this process
func UniqueLandline() string {
	return fmt.Sprintf("08%08d", landlineSeq.Add(1))
}

// Token issues an access token for user signed with Secret. When a Redis
// client is installed the matching session is created too.
func Token(t *testing.T, user *models.User) string {
	t.Helper()

	token, _, err := utils.IssueAccessToken(Secret, user.Profile(), time.Hour)
	require.NoError(t, err)
	if utils.RedisClient != nil {
		_, err := utils.CreateTokenSession(token, user.Profile(), time.Hour)
		require.NoError(t, err)
	}
	return token
}

// AppConfig returns the configuration services use under test
func AppConfig() *config.AppConfig {
	return &config.AppConfig{
		JWTSecret:       string(Secret),
		TokenTTL:        time.Hour,
		ConfirmationTTL: time.Hour,
		SignInURL:       "/users/sign_in",
		LandingURL:      "/vendors",
		ArtifactBackend: "redis",
		KafkaTopic:      "vendor-events",
	}
}
