package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewMiddleware(testSecret)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{m.AuthRequired()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		tenantID, _ := c.Get("tenant_id")
		c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := protectedRouter()

	require.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	require.Equal(t, http.StatusUnauthorized, get(r, "Bearer garbage").Code)

	wrongKey := signToken(t, "other-secret", jwt.MapClaims{"user_id": 1.0, "exp": time.Now().Add(time.Hour).Unix()})
	require.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+wrongKey).Code)

	expired := signToken(t, testSecret, jwt.MapClaims{"user_id": 1.0, "exp": time.Now().Add(-time.Hour).Unix()})
	require.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+expired).Code)

	valid := signToken(t, testSecret, jwt.MapClaims{
		"user_id":   1.0,
		"role":      "operator",
		"tenant_id": 7.0,
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	w := get(r, "Bearer "+valid)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"tenant_id":7`)
}

func TestAdminRequired(t *testing.T) {
	m := NewMiddleware(testSecret)
	r := protectedRouter(m.AdminRequired())

	operator := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 1.0, "role": "operator", "exp": time.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusForbidden, get(r, "Bearer "+operator).Code)

	admin := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 1.0, "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusOK, get(r, "Bearer "+admin).Code)
}

func TestRateLimitPerUser(t *testing.T) {
	m := NewMiddleware(testSecret)
	r := protectedRouter(m.RateLimitPerUser(1, 2))

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 1.0, "role": "operator", "exp": time.Now().Add(time.Hour).Unix(),
	})

	require.Equal(t, http.StatusOK, get(r, "Bearer "+token).Code)
	require.Equal(t, http.StatusOK, get(r, "Bearer "+token).Code)
	require.Equal(t, http.StatusTooManyRequests, get(r, "Bearer "+token).Code)
}
