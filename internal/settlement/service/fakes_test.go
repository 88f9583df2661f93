package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pix-settlement-ledger/internal/domain/catalog"
	"github.com/pix-settlement-ledger/internal/domain/deposit"
	"github.com/pix-settlement-ledger/internal/domain/fee"
	"github.com/pix-settlement-ledger/internal/domain/ledger"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/user"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/pix-settlement-ledger/internal/gateway"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	return fn(nil)
}

// store is an in-memory stand-in for the Postgres tables. Repositories hand out copies
// so a service that forgets to persist a change is caught by the tests.
type store struct {
	mu          sync.Mutex
	users       map[uuid.UUID]user.User
	merchants   map[uuid.UUID]user.Merchant
	deposits    map[uuid.UUID]deposit.Deposit
	withdrawals map[uuid.UUID]withdrawal.Withdrawal
	entries     []ledger.Entry
	events      []*shared.LedgerEvent
	products    map[uuid.UUID]catalog.Product
	listings    map[uuid.UUID]catalog.Listing
	affiliates  []catalog.Affiliation
}

func newStore() *store {
	return &store{
		users:       map[uuid.UUID]user.User{},
		merchants:   map[uuid.UUID]user.Merchant{},
		deposits:    map[uuid.UUID]deposit.Deposit{},
		withdrawals: map[uuid.UUID]withdrawal.Withdrawal{},
		products:    map[uuid.UUID]catalog.Product{},
		listings:    map[uuid.UUID]catalog.Listing{},
	}
}

func (s *store) addUser(balance int64, role user.Role, auto bool) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = user.User{ID: id, Name: "user", Role: role, Balance: balance, AutoWithdraw: auto}
	return id
}

func (s *store) balance(id uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].Balance
}

func (s *store) deposit(id uuid.UUID) deposit.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deposits[id]
}

func (s *store) withdrawal(id uuid.UUID) withdrawal.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withdrawals[id]
}

func (s *store) entriesFor(externalID string) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Entry
	for _, e := range s.entries {
		if e.ExternalID == externalID {
			out = append(out, e)
		}
	}
	return out
}

func (s *store) eventsOf(t shared.EventType) []*shared.LedgerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*shared.LedgerEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type memUserRepo struct{ s *store }

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.NotFoundError{Entity: "user", Key: id.String()}
	}
	return &u, nil
}

func (r *memUserRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.GetByID(ctx, id)
}

func (r *memUserRepo) UpdateBalance(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return shared.NotFoundError{Entity: "user", Key: u.ID.String()}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) WithTx(tx pgx.Tx) user.Repository { return r }

type memMerchantRepo struct{ s *store }

func (r *memMerchantRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*user.Merchant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.merchants[userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

type memDepositRepo struct{ s *store }

func (r *memDepositRepo) Create(ctx context.Context, d *deposit.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deposits[d.ID] = *d
	return nil
}

func (r *memDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.deposits[id]
	if !ok {
		return nil, shared.NotFoundError{Entity: "deposit", Key: id.String()}
	}
	return &d, nil
}

func (r *memDepositRepo) LockByID(ctx context.Context, id uuid.UUID) (*deposit.Deposit, error) {
	return r.GetByID(ctx, id)
}

func (r *memDepositRepo) LockByCorrelation(ctx context.Context, key string) (*deposit.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.deposits {
		if d.ExternalID == key || (d.ProviderTransactionID != "" && d.ProviderTransactionID == key) {
			return &d, nil
		}
	}
	return nil, shared.NotFoundError{Entity: "deposit", Key: key}
}

func (r *memDepositRepo) CorrelationTaken(ctx context.Context, key string) (bool, error) {
	_, err := r.LockByCorrelation(ctx, key)
	if err == nil {
		return true, nil
	}
	if isNotFound(err, "deposit") {
		return false, nil
	}
	return false, err
}

func (r *memDepositRepo) UpdateStatus(ctx context.Context, d *deposit.Deposit) error {
	return r.Create(ctx, d)
}

func (r *memDepositRepo) ListByStatus(ctx context.Context, status deposit.Status, limit, offset int) ([]*deposit.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*deposit.Deposit
	for _, d := range r.s.deposits {
		if d.Status == status {
			d := d
			out = append(out, &d)
		}
	}
	return out, nil
}

func (r *memDepositRepo) WithTx(tx pgx.Tx) deposit.Repository { return r }

type memWithdrawalRepo struct{ s *store }

func (r *memWithdrawalRepo) Create(ctx context.Context, w *withdrawal.Withdrawal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.withdrawals[w.ID] = *w
	return nil
}

func (r *memWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, shared.NotFoundError{Entity: "withdrawal", Key: id.String()}
	}
	return &w, nil
}

func (r *memWithdrawalRepo) LockByID(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

func (r *memWithdrawalRepo) LockByExternalID(ctx context.Context, externalID string) (*withdrawal.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.withdrawals {
		if w.ExternalID == externalID {
			return &w, nil
		}
	}
	return nil, shared.NotFoundError{Entity: "withdrawal", Key: externalID}
}

func (r *memWithdrawalRepo) ClaimForDispatch(ctx context.Context, id uuid.UUID, reviewer uuid.UUID) (*withdrawal.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, shared.NotFoundError{Entity: "withdrawal", Key: id.String()}
	}
	if !w.Status.AwaitingDispatch() {
		return nil, shared.InvalidStateError{Entity: "withdrawal", ID: id.String(), Status: string(w.Status)}
	}
	w.Status = withdrawal.StatusProcessing
	w.ReviewedBy = &reviewer
	r.s.withdrawals[id] = w
	return &w, nil
}

func (r *memWithdrawalRepo) UpdateStatus(ctx context.Context, w *withdrawal.Withdrawal) error {
	return r.Create(ctx, w)
}

func (r *memWithdrawalRepo) ListByStatus(ctx context.Context, status withdrawal.Status, limit, offset int) ([]*withdrawal.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*withdrawal.Withdrawal
	for _, w := range r.s.withdrawals {
		if w.Status == status {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*withdrawal.Withdrawal{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memWithdrawalRepo) CountByStatus(ctx context.Context, status withdrawal.Status) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, w := range r.s.withdrawals {
		if w.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *memWithdrawalRepo) WithTx(tx pgx.Tx) withdrawal.Repository { return r }

type memLedgerRepo struct{ s *store }

func (r *memLedgerRepo) Create(ctx context.Context, entry *ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entries = append(r.s.entries, *entry)
	return nil
}

func (r *memLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, shared.NotFoundError{Entity: "transaction", Key: id.String()}
}

func (r *memLedgerRepo) ListByExternalID(ctx context.Context, externalID string) ([]*ledger.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.s.entries {
		if e.ExternalID == externalID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) Update(ctx context.Context, entry *ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, e := range r.s.entries {
		if e.ID == entry.ID {
			r.s.entries[i] = *entry
			return nil
		}
	}
	return shared.NotFoundError{Entity: "transaction", Key: entry.ID.String()}
}

func (r *memLedgerRepo) UpdateStatusByExternalID(ctx context.Context, externalID string, typ shared.TransactionType, from, to shared.TransactionStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i, e := range r.s.entries {
		if e.ExternalID == externalID && e.Type == typ && e.Status == from {
			r.s.entries[i].Status = to
			n++
		}
	}
	return n, nil
}

func (r *memLedgerRepo) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	return nil, nil
}

func (r *memLedgerRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *memLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository { return r }

type memCatalogRepo struct{ s *store }

func (r *memCatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, shared.NotFoundError{Entity: "product", Key: id.String()}
	}
	return &p, nil
}

func (r *memCatalogRepo) GetListing(ctx context.Context, productID uuid.UUID) (*catalog.Listing, error) {
	l, ok := r.s.listings[productID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *memCatalogRepo) GetAffiliationByRef(ctx context.Context, productID uuid.UUID, refCode string) (*catalog.Affiliation, error) {
	for _, a := range r.s.affiliates {
		if a.ProductID == productID && a.RefCode == refCode {
			return &a, nil
		}
	}
	return nil, nil
}

// memBalances mirrors the production BalanceManager on top of memUserRepo.
type memBalances struct{ users *memUserRepo }

func (b *memBalances) apply(ctx context.Context, userID uuid.UUID, mutate func(*user.User) error) (*user.User, error) {
	u, err := b.users.LockForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := mutate(u); err != nil {
		return nil, err
	}
	if err := b.users.UpdateBalance(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (b *memBalances) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (*user.User, error) {
	return b.apply(ctx, userID, func(u *user.User) error { return u.Credit(amount) })
}

func (b *memBalances) Reserve(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (*user.User, error) {
	return b.apply(ctx, userID, func(u *user.User) error { return u.Debit(amount) })
}

type memEvents struct{ s *store }

func (e *memEvents) Record(ctx context.Context, tx pgx.Tx, events ...*shared.LedgerEvent) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.events = append(e.s.events, events...)
	return nil
}

type staticFees struct{ policy fee.Policy }

func (f staticFees) Resolve(ctx context.Context, u *user.User) (fee.Policy, error) {
	return f.policy, nil
}

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Name() shared.Provider {
	return shared.ProviderXFlow
}

func (m *MockAdapter) CreateDeposit(ctx context.Context, req gateway.DepositRequest) (*gateway.DepositResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.DepositResult), args.Error(1)
}

func (m *MockAdapter) CreateWithdrawal(ctx context.Context, req gateway.WithdrawalRequest) (*gateway.WithdrawalResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.WithdrawalResult), args.Error(1)
}

type fakeGateways struct{ adapter gateway.Adapter }

func (g fakeGateways) ForDeposits() gateway.Adapter    { return g.adapter }
func (g fakeGateways) ForWithdrawals() gateway.Adapter { return g.adapter }

type MockSignatureVerifier struct {
	mock.Mock
}

func (m *MockSignatureVerifier) Verify(provider shared.Provider, rawBody []byte, signature string) error {
	args := m.Called(provider, rawBody, signature)
	return args.Error(0)
}

// harness wires every service to the same in-memory store.
type harness struct {
	store       *store
	tx          *fakeTxRunner
	adapter     *MockAdapter
	verifier    *MockSignatureVerifier
	deposits    DepositService
	withdrawals WithdrawalService
	webhooks    WebhookService
	approvals   ApprovalService
}

func newHarness() *harness {
	s := newStore()
	h := &harness{
		store:    s,
		tx:       &fakeTxRunner{},
		adapter:  new(MockAdapter),
		verifier: new(MockSignatureVerifier),
	}

	logger := newTestLogger()
	users := &memUserRepo{s}
	depositRepo := &memDepositRepo{s}
	withdrawalRepo := &memWithdrawalRepo{s}
	ledgerRepo := &memLedgerRepo{s}
	balances := &memBalances{users}
	events := &memEvents{s}
	gws := fakeGateways{h.adapter}
	policy, _ := fee.ParsePolicy("8", "2.00")

	h.deposits = NewDepositService(logger, h.tx, gws, &memMerchantRepo{s}, depositRepo, ledgerRepo, &memCatalogRepo{s})
	h.withdrawals = NewWithdrawalService(logger, h.tx, gws, users, withdrawalRepo, ledgerRepo, staticFees{policy}, balances, events, 100)
	h.webhooks = NewWebhookService(logger, h.tx, h.verifier, depositRepo, withdrawalRepo, ledgerRepo, balances, events)
	h.approvals = NewApprovalService(logger, h.tx, gws, users, depositRepo, withdrawalRepo, ledgerRepo, balances, events)
	return h
}

// seedDeposit stores a PENDING deposit as CreateDeposit would have.
func (h *harness) seedDeposit(userID uuid.UUID, externalID string, amount, net int64) *deposit.Deposit {
	d := &deposit.Deposit{
		ID:         uuid.New(),
		ExternalID: externalID,
		UserID:     userID,
		Provider:   shared.ProviderKeyClub,
		Amount:     amount,
		NetAmount:  net,
		Status:     deposit.StatusPending,
	}
	h.store.mu.Lock()
	h.store.deposits[d.ID] = *d
	h.store.mu.Unlock()
	return d
}
