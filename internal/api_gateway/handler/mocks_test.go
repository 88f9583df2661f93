package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/api_gateway/middleware"
	"github.com/pix-settlement-ledger/internal/domain/activity"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/settlement/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDepositService struct {
	mock.Mock
}

func (m *MockDepositService) CreateDeposit(ctx context.Context, in service.CreateDepositInput) (*deposit.Deposit, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.Deposit), args.Error(1)
}

func (m *MockDepositService) Checkout(ctx context.Context, in service.CheckoutInput) (*deposit.Deposit, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.Deposit), args.Error(1)
}

func (m *MockDepositService) GetDeposit(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.Deposit), args.Error(1)
}

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) CreateWithdrawal(ctx context.Context, in service.CreateWithdrawalInput) (*withdrawal.Withdrawal, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) GetWithdrawal(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Withdrawal), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Handle(ctx context.Context, delivery service.WebhookDelivery) (*service.WebhookResult, error) {
	args := m.Called(ctx, delivery)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WebhookResult), args.Error(1)
}

type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) ListWithdrawals(ctx context.Context, status withdrawal.Status, limit, offset int) ([]*withdrawal.Withdrawal, int64, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*withdrawal.Withdrawal), args.Get(1).(int64), args.Error(2)
}

func (m *MockApprovalService) ApproveWithdrawal(ctx context.Context, withdrawalID, adminID uuid.UUID) (*withdrawal.Withdrawal, error) {
	args := m.Called(ctx, withdrawalID, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Withdrawal), args.Error(1)
}

func (m *MockApprovalService) RejectWithdrawal(ctx context.Context, withdrawalID uuid.UUID, reason string, adminID uuid.UUID) (*withdrawal.Withdrawal, error) {
	args := m.Called(ctx, withdrawalID, reason, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Withdrawal), args.Error(1)
}

func (m *MockApprovalService) ResolveRetainedDeposit(ctx context.Context, depositID uuid.UUID, confirm bool, adminID uuid.UUID) (*deposit.Deposit, error) {
	args := m.Called(ctx, depositID, confirm, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.Deposit), args.Error(1)
}

type MockStatementService struct {
	mock.Mock
}

func (m *MockStatementService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStatementService) GetTransactions(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockStatementService) GetActivity(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*activity.Entry, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*activity.Entry), args.Get(1).(int64), args.Error(2)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter returns a router that authenticates requests through the X-User-ID header.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

func doRequest(r http.Handler, method, path, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	var reader io.Reader = strings.NewReader(body)
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, userID.String())
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the data field of a Response into out.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) *Response {
	t.Helper()
	var top Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	if out != nil {
		require.NotNil(t, top.Data)
		raw, err := json.Marshal(top.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return &top
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	top := decodeData(t, rr, nil)
	require.NotNil(t, top.Error)
	return top.Error.Code
}
