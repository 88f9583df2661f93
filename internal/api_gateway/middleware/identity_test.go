package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequireUser())
	var captured uuid.UUID
	router.GET("/me", func(c *gin.Context) {
		captured, _ = GetUserID(c)
		c.Status(http.StatusOK)
	})

	t.Run("valid header", func(t *testing.T) {
		id := uuid.New()
		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(UserIDHeader, id.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, id, captured)
	})

	for _, header := range []string{"", "not-a-uuid"} {
		t.Run("rejects "+header, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set(UserIDHeader, header)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), `"code":"UNAUTHORIZED"`)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.Default()

	tests := []struct {
		name       string
		user       *user.User
		err        error
		wantStatus int
	}{
		{name: "admin", user: &user.User{Role: user.RoleAdmin}, wantStatus: http.StatusOK},
		{name: "regular user", user: &user.User{Role: user.RoleUser}, wantStatus: http.StatusForbidden},
		{name: "unknown user", err: shared.NotFoundError{Entity: "user"}, wantStatus: http.StatusForbidden},
		{name: "lookup failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			users := new(MockUserLookup)
			if tt.user != nil {
				users.On("GetByID", mock.Anything, id).Return(tt.user, nil)
			} else {
				users.On("GetByID", mock.Anything, id).Return(nil, tt.err)
			}

			router := gin.New()
			router.Use(RequireUser(), AdminOnly(logger, users))
			router.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })

			req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set(UserIDHeader, id.String())
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
