package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/catalog/internal/pkg/logger"
	"github.com/Haleralex/catalog/internal/pkg/operation"
)

const (
	testSecret = "test-secret-key-32-bytes-long!!!"
	testIssuer = "catalog-test"
)

var testUser = operation.UserDetails{ID: "42", Name: "Jane Editor", Username: "jane"}

func authRouter(config *AuthConfig, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(config))
	router.GET("/test", handler)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }

func get(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	jwtAuth := NewJWTAuthenticator(testSecret, testIssuer)
	config := &AuthConfig{TokenValidator: jwtAuth.Validate, SkipPaths: []string{"/health"}}

	t.Run("Success", func(t *testing.T) {
		token, err := jwtAuth.Issue(testUser, "editor", time.Hour)
		require.NoError(t, err)

		var user operation.UserDetails
		var userID, role, logUserID string
		router := authRouter(config, func(c *gin.Context) {
			user, _ = operation.UserFrom(c.Request.Context())
			userID = GetAuthUserID(c)
			role = GetAuthUserRole(c)
			logUserID = logger.GetUserID(c.Request.Context())
			ok(c)
		})

		w := get(router, "/test", "Bearer "+token)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testUser, user)
		assert.Equal(t, "42", userID)
		assert.Equal(t, "editor", role)
		assert.Equal(t, "42", logUserID)
	})

	t.Run("MissingAuthHeader", func(t *testing.T) {
		w := get(authRouter(config, ok), "/test", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Authorization header is required")
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		w := get(authRouter(config, ok), "/test", "Basic dXNlcjpwYXNz")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid authorization header format")
	})

	t.Run("EmptyToken", func(t *testing.T) {
		w := get(authRouter(config, ok), "/test", "Bearer ")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ForeignSignature", func(t *testing.T) {
		token, err := NewJWTAuthenticator("another-secret", testIssuer).Issue(testUser, "editor", time.Hour)
		require.NoError(t, err)

		w := get(authRouter(config, ok), "/test", "Bearer "+token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token, err := jwtAuth.Issue(testUser, "editor", -time.Minute)
		require.NoError(t, err)

		w := get(authRouter(config, ok), "/test", "Bearer "+token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Token has expired")
	})

	t.Run("ValidatorClaimsExpired", func(t *testing.T) {
		expired := &AuthConfig{TokenValidator: func(string) (*AuthClaims, error) {
			return &AuthClaims{UserID: "1", Exp: time.Now().Add(-time.Hour)}, nil
		}}

		w := get(authRouter(expired, ok), "/test", "Bearer anything")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("SkipPaths", func(t *testing.T) {
		w := get(authRouter(config, ok), "/health", "")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("HandlerNotCalledOnFailure", func(t *testing.T) {
		called := false
		router := authRouter(config, func(c *gin.Context) {
			called = true
			ok(c)
		})

		get(router, "/test", "")

		assert.False(t, called)
	})
}

func TestJWTAuthenticator_Validate(t *testing.T) {
	jwtAuth := NewJWTAuthenticator(testSecret, testIssuer)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := jwtAuth.Issue(testUser, "editor", time.Hour)
		require.NoError(t, err)

		claims, err := jwtAuth.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, testUser, claims.User())
		assert.Equal(t, "editor", claims.Role)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Exp, time.Minute)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		token, err := NewJWTAuthenticator(testSecret, "someone-else").Issue(testUser, "", time.Hour)
		require.NoError(t, err)

		_, err = jwtAuth.Validate(token)
		assert.True(t, errors.Is(err, ErrInvalidIssuer))
	})

	t.Run("AnyIssuerWhenNotConfigured", func(t *testing.T) {
		token, err := jwtAuth.Issue(testUser, "", time.Hour)
		require.NoError(t, err)

		_, err = NewJWTAuthenticator(testSecret, "").Validate(token)
		assert.NoError(t, err)
	})

	t.Run("MissingSubject", func(t *testing.T) {
		token, err := jwtAuth.Issue(operation.UserDetails{Username: "ghost"}, "", time.Hour)
		require.NoError(t, err)

		_, err = jwtAuth.Validate(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := jwtAuth.Issue(testUser, "", -time.Minute)
		require.NoError(t, err)

		_, err = jwtAuth.Validate(token)
		assert.True(t, errors.Is(err, ErrExpiredToken))
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := jwtAuth.Validate("not-a-jwt")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set(AuthUserRoleKey, role)
			}
			c.Next()
		}
	}

	tests := []struct {
		name string
		role string
		want int
	}{
		{"Allowed", "editor", http.StatusOK},
		{"AdminAllowed", "admin", http.StatusOK},
		{"Denied", "viewer", http.StatusForbidden},
		{"MissingRole", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/test", withRole(tt.role), RequireRole("editor", "admin"), ok)

			assert.Equal(t, tt.want, get(router, "/test", "").Code)
		})
	}
}

func TestGetAuthHelpers_Empty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetAuthUserID(c))
	assert.Empty(t, GetAuthUserRole(c))

	c.Set(AuthUserIDKey, 123) // Wrong type
	assert.Empty(t, GetAuthUserID(c))
}
