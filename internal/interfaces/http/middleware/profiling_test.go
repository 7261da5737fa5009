package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestResourceFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/invoices/:id/payments", "invoices"},
		{"/api/v1/stock-takes", "stock-takes"},
		{"/health", "health"},
		{"", ""},
		{"/api/v2/:id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceFromRoute(tt.route))
		})
	}
}

func TestProfiling_RunsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, enabled := range []bool{true, false} {
		router := gin.New()
		router.Use(Profiling(enabled, "/swagger"))
		router.GET("/api/v1/invoices/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.GET("/swagger/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

		for _, path := range []string{"/api/v1/invoices/1", "/swagger/index.html"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, "enabled=%v path=%s", enabled, path)
		}
	}
}
