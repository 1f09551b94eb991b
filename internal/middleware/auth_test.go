package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func protected(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", Auth(cfg), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	return router
}

func call(router http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	token := sign(t, jwt.SigningMethodHS256, secret, validClaims(userID.String()))

	rec := call(protected(AuthConfig{Secret: secret}), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), rec.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	router := protected(AuthConfig{Secret: secret})
	userID := uuid.NewString()

	expired := validClaims(userID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	cases := map[string]string{
		"missing header":   "",
		"wrong scheme":     "Basic " + sign(t, jwt.SigningMethodHS256, secret, validClaims(userID)),
		"empty token":      "Bearer   ",
		"garbage":          "Bearer not-a-jwt",
		"wrong secret":     "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims(userID)),
		"wrong algorithm":  "Bearer " + sign(t, jwt.SigningMethodHS512, secret, validClaims(userID)),
		"expired":          "Bearer " + sign(t, jwt.SigningMethodHS256, secret, expired),
		"non-uuid subject": "Bearer " + sign(t, jwt.SigningMethodHS256, secret, validClaims("alice")),
	}

	for name, header := range cases {
		rec := call(router, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String(), name)
	}
}

func TestAuth_IssuerAndAudience(t *testing.T) {
	router := protected(AuthConfig{Secret: secret, Issuer: "https://id.schnei.app", Audience: "schnei-api"})
	userID := uuid.NewString()

	good := validClaims(userID)
	good.Issuer = "https://id.schnei.app"
	good.Audience = jwt.ClaimStrings{"schnei-api"}
	assert.Equal(t, http.StatusOK, call(router, "Bearer "+sign(t, jwt.SigningMethodHS256, secret, good)).Code)

	wrongIssuer := good
	wrongIssuer.Issuer = "https://evil.example"
	assert.Equal(t, http.StatusUnauthorized, call(router, "Bearer "+sign(t, jwt.SigningMethodHS256, secret, wrongIssuer)).Code)

	noAudience := validClaims(userID)
	noAudience.Issuer = "https://id.schnei.app"
	assert.Equal(t, http.StatusUnauthorized, call(router, "Bearer "+sign(t, jwt.SigningMethodHS256, secret, noAudience)).Code)
}

func TestUserID_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := UserID(c)
	assert.False(t, ok)

	id := uuid.New()
	SetUserID(c, id)
	got, ok := UserID(c)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
