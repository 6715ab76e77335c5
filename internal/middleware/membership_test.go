package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/config"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-jwt-secret-key-32-characters"

func newMiddlewareDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, role string, expiresAt *time.Time) *models.User {
	t.Helper()
	user := &models.User{
		ID:              uuid.New(),
		Email:           uuid.NewString() + "@x.com",
		Password:        "hash",
		Role:            role,
		AccessExpiresAt: expiresAt,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func signToken(t *testing.T, user *models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func gatedApp(db *gorm.DB) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/gated", JWTProtected(cfg), MembershipRequired(db), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/gated", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestMembershipGateNoToken(t *testing.T) {
	app := gatedApp(newMiddlewareDB(t))
	resp := doRequest(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMembershipGateActiveTrial(t *testing.T) {
	db := newMiddlewareDB(t)
	expiry := time.Now().Add(48 * time.Hour)
	user := createUser(t, db, models.RoleTrial, &expiry)

	resp := doRequest(t, gatedApp(db), signToken(t, user))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMembershipGateExpiredTrial(t *testing.T) {
	db := newMiddlewareDB(t)
	expiry := time.Now().Add(-time.Hour)
	user := createUser(t, db, models.RoleTrial, &expiry)

	resp := doRequest(t, gatedApp(db), signToken(t, user))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Error)
	assert.Equal(t, "no_access", body.Code)
}

func TestMembershipGateNoExpirySet(t *testing.T) {
	db := newMiddlewareDB(t)
	user := createUser(t, db, models.RoleMember, nil)

	// A member row without an expiry has no access window at all.
	resp := doRequest(t, gatedApp(db), signToken(t, user))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMembershipGateAdminBypassesExpiry(t *testing.T) {
	db := newMiddlewareDB(t)
	expiry := time.Now().Add(-time.Hour)
	user := createUser(t, db, models.RoleAdmin, &expiry)

	resp := doRequest(t, gatedApp(db), signToken(t, user))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMembershipGateDeletedUser(t *testing.T) {
	db := newMiddlewareDB(t)
	user := createUser(t, db, models.RoleMember, nil)
	token := signToken(t, user)
	require.NoError(t, db.Delete(&models.User{}, "id = ?", user.ID).Error)

	resp := doRequest(t, gatedApp(db), token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRequired(t *testing.T) {
	db := newMiddlewareDB(t)
	cfg := &config.Config{JWTSecret: testSecret, AdminToken: "shared-ops-token"}

	app := fiber.New()
	app.Get("/admin", JWTProtected(cfg), AdminRequired(db, cfg), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	member := createUser(t, db, models.RoleMember, nil)
	admin := createUser(t, db, models.RoleAdmin, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, member))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, admin))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The ops token short-circuits JWT role resolution.
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, member))
	req.Header.Set("X-Admin-Token", "shared-ops-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
