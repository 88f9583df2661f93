package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
	"github.com/pix-settlement-ledger/internal/domain/activity"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newStatementRouter(svc *MockStatementService) http.Handler {
	h := NewStatementHandler(newTestLogger(), svc)
	r := newTestRouter()
	users := r.Group("/users/:id", middleware.RequireUser())
	users.GET("/balance", h.GetBalance)
	users.GET("/transactions", h.GetTransactions)
	users.GET("/activity", h.GetActivity)
	return r
}

func TestStatementHandler_GetBalance(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := new(MockStatementService)
		svc.On("GetUser", mock.Anything, userID).Return(&user.User{ID: userID, Balance: 9500, UpdatedAt: time.Now()}, nil)

		rr := doRequest(newStatementRouter(svc), http.MethodGet, "/users/"+userID.String()+"/balance", "", userID)

		assert.Equal(t, http.StatusOK, rr.Code)
		var body BalanceResponse
		decodeData(t, rr, &body)
		assert.Equal(t, int64(9500), body.Balance)
		assert.Equal(t, "95.00", body.Formatted)
	})

	t.Run("OtherUser", func(t *testing.T) {
		svc := new(MockStatementService)
		rr := doRequest(newStatementRouter(svc), http.MethodGet, "/users/"+uuid.NewString()+"/balance", "", userID)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		svc.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		svc := new(MockStatementService)
		svc.On("GetUser", mock.Anything, userID).Return(nil, shared.NotFoundError{Entity: "user", Key: userID.String()})

		rr := doRequest(newStatementRouter(svc), http.MethodGet, "/users/"+userID.String()+"/balance", "", userID)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestStatementHandler_GetTransactions(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := new(MockStatementService)
		entries := []*ledger.Entry{
			ledger.NewEntry(userID, shared.TransactionTypeDeposit, 9500, shared.TransactionStatusConfirmed, "dep_1", nil),
			ledger.NewEntry(userID, shared.TransactionTypeWithdrawal, 3000, shared.TransactionStatusPending, "wd_1", nil),
		}
		svc.On("GetTransactions", mock.Anything, userID, 2, 2).Return(entries, int64(5), nil)

		rr := doRequest(newStatementRouter(svc), http.MethodGet, "/users/"+userID.String()+"/transactions?page=2&per_page=2", "", userID)

		assert.Equal(t, http.StatusOK, rr.Code)
		var body []TransactionResponse
		top := decodeData(t, rr, &body)
		assert.Len(t, body, 2)
		assert.Equal(t, "DEPOSIT", body[0].Type)
		assert.Equal(t, 3, top.Meta.TotalPages)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		svc := new(MockStatementService)
		rr := doRequest(newStatementRouter(svc), http.MethodGet, "/users/"+userID.String()+"/transactions?per_page=500", "", userID)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("StoreError", func(t *testing.T) {
		svc := new(MockStatementService)
		svc.On("GetTransactions", mock.Anything, userID, 1, 10).Return(nil, int64(0), errors.New("connection reset"))

		rr := doRequest(newStatementRouter(svc), http.MethodGet, "/users/"+userID.String()+"/transactions", "", userID)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestStatementHandler_GetActivity(t *testing.T) {
	userID := uuid.New()
	svc := new(MockStatementService)
	items := []*activity.Entry{{
		EventID:    uuid.NewString(),
		UserID:     userID.String(),
		Type:       shared.EventDepositConfirmed,
		Amount:     9500,
		OccurredAt: time.Now().UTC(),
	}}
	svc.On("GetActivity", mock.Anything, userID, 1, 10).Return(items, int64(1), nil)

	rr := doRequest(newStatementRouter(svc), http.MethodGet, "/users/"+userID.String()+"/activity", "", userID)

	assert.Equal(t, http.StatusOK, rr.Code)
	var body []activity.Entry
	decodeData(t, rr, &body)
	assert.Len(t, body, 1)
	assert.Equal(t, shared.EventDepositConfirmed, body[0].Type)
}
