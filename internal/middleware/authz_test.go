package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todo-manager/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

func createTestToken(mutate func(jwt.MapClaims)) (string, uuid.UUID, error) {
	userID, _ := uuid.NewV4()
	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"is_admin": false,
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
		"iss":      "todo-backend",
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("default_secret_change_in_production"))
	return signed, userID, err
}

func protectedRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Authz())
	if handler == nil {
		handler = func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		}
	}
	router.GET("/protected", handler)
	return router
}

func TestAuthz_NoToken(t *testing.T) {
	router := protectedRouter(nil)

	req, _ := http.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthz_NotBearer(t *testing.T) {
	router := protectedRouter(nil)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthz_GarbageToken(t *testing.T) {
	router := protectedRouter(nil)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not_a_jwt")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthz_ExpiredToken(t *testing.T) {
	token, _, err := createTestToken(func(claims jwt.MapClaims) {
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
	})
	if err != nil {
		t.Fatal("Failed to create test token:", err)
	}
	router := protectedRouter(nil)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthz_WrongIssuer(t *testing.T) {
	token, _, err := createTestToken(func(claims jwt.MapClaims) {
		claims["iss"] = "someone-else"
	})
	if err != nil {
		t.Fatal("Failed to create test token:", err)
	}
	router := protectedRouter(nil)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthz_BadUserID(t *testing.T) {
	token, _, err := createTestToken(func(claims jwt.MapClaims) {
		claims["user_id"] = "not-a-uuid"
	})
	if err != nil {
		t.Fatal("Failed to create test token:", err)
	}
	router := protectedRouter(nil)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthz_ValidTokenSetsUserID(t *testing.T) {
	token, wantID, err := createTestToken(nil)
	if err != nil {
		t.Fatal("Failed to create test token:", err)
	}

	var gotID uuid.UUID
	var gotOK bool
	router := protectedRouter(func(c *gin.Context) {
		gotID, gotOK = middleware.UserID(c)
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !gotOK {
		t.Fatal("Expected user_id to be set in the request context")
	}
	if gotID != wantID {
		t.Errorf("Expected user_id %s, got %s", wantID, gotID)
	}
}

func TestRequireAdmin_NonAdmin(t *testing.T) {
	token, _, err := createTestToken(nil)
	if err != nil {
		t.Fatal("Failed to create test token:", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Authz(), middleware.RequireAdmin())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestRequireAdmin_Admin(t *testing.T) {
	token, _, err := createTestToken(func(claims jwt.MapClaims) {
		claims["is_admin"] = true
	})
	if err != nil {
		t.Fatal("Failed to create test token:", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Authz(), middleware.RequireAdmin())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}
