package webserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.GET("/guarded", RequireToken(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return g
}

func doGet(g *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestIssuedTokenPassesGuard(t *testing.T) {
	secret := []byte("test-secret")
	g := newAuthRouter(secret)

	token, err := IssueToken(secret, "ops", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if w := doGet(g, token); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}
}

func TestMissingTokenRejected(t *testing.T) {
	g := newAuthRouter([]byte("test-secret"))

	if w := doGet(g, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	g := newAuthRouter([]byte("test-secret"))

	token, err := IssueToken([]byte("other-secret"), "ops", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if w := doGet(g, token); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	secret := []byte("test-secret")
	g := newAuthRouter(secret)

	token, err := IssueToken(secret, "ops", -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if w := doGet(g, token); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestUnconfiguredSecretDisablesAPI(t *testing.T) {
	g := newAuthRouter(nil)

	token, err := IssueToken([]byte("anything"), "ops", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if w := doGet(g, token); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
