package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("panic in a user route returns the envelope and logs the caller", func(t *testing.T) {
		var logBuffer bytes.Buffer
		testLogger := slog.New(slog.NewJSONHandler(&logBuffer, nil))

		router := gin.New()
		router.Use(CorrelationID(), Recovery(testLogger), RequireUser())
		router.POST("/api/v1/withdrawals/:id", func(c *gin.Context) {
			panic("nil gateway adapter")
		})

		userID := uuid.New()
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/withdrawals/"+uuid.NewString(), nil)
		req.Header.Set(CorrelationIDHeader, "req-panic")
		req.Header.Set(UserIDHeader, userID.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusInternalServerError, rr.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		errorField, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", errorField["code"])
		assert.Equal(t, "req-panic", body["correlation_id"])

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"msg":"Panic recovered"`)
		assert.Contains(t, logOutput, `"error":"nil gateway adapter"`)
		assert.Contains(t, logOutput, `"route":"/api/v1/withdrawals/:id"`)
		assert.Contains(t, logOutput, `"user_id":"`+userID.String()+`"`)
		assert.Contains(t, logOutput, `"correlation_id":"req-panic"`)
	})

	t.Run("no panic writes nothing", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := gin.New()
		router.Use(Recovery(slog.New(slog.NewJSONHandler(&logBuffer, nil))))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, logBuffer.String())
	})
}
