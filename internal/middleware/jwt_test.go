package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/darsbot-api/internal/middleware"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret), func(c *fiber.Ctx) error {
		if id, ok := c.Locals("user_id").(int64); ok {
			return c.JSON(fiber.Map{"user_id": id})
		}
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func perform(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedMissingHeader(t *testing.T) {
	resp := perform(t, newProtectedApp(), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsBadSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"})
	signed, err := token.SignedString([]byte("different-secret"))
	require.NoError(t, err)

	resp := perform(t, newProtectedApp(), signed)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRequiresAdminRole(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"role": "student",
		"sub":  "42",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	resp := perform(t, newProtectedApp(), signed)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestJWTProtectedAdminPasses(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"role": "admin",
		"sub":  "42",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	resp := perform(t, newProtectedApp(), signed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsExpiredToken(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})

	resp := perform(t, newProtectedApp(), signed)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
