package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/pkg/auth"
	"ticketflow/pkg/response"
)

func newAuthRouter(mgr *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(mgr), func(c *gin.Context) {
		response.Success(c, gin.H{
			"user_id":  c.GetUint("user_id"),
			"username": c.GetString("username"),
		})
	})
	return r
}

func doRequest(r *gin.Engine, authorization string) (*httptest.ResponseRecorder, response.Body) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	mgr := auth.NewManager("test-secret", 3600)
	token, err := mgr.GenerateToken(7, "admin")
	require.NoError(t, err)

	w, body := doRequest(newAuthRouter(mgr), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, body.Code)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), data["user_id"])
	assert.Equal(t, "admin", data["username"])
}

func TestAuthMiddlewareRejections(t *testing.T) {
	mgr := auth.NewManager("test-secret", 3600)
	stale, err := auth.NewManager("other-secret", 3600).GenerateToken(1, "admin")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic abc123"},
		{"wrong signing secret", "Bearer " + stale},
		{"garbage token", "Bearer not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doRequest(newAuthRouter(mgr), tt.header)
			assert.Equal(t, http.StatusOK, w.Code, "the envelope always rides a 200")
			assert.Equal(t, 401, body.Code)
		})
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/ping", func(c *gin.Context) { response.Success(c, nil) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
