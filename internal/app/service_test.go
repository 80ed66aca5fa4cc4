package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/store"
)

type publishedEvent struct {
	routingKey string
	body       interface{}
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{routingKey: routingKey, body: body})
	return nil
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, event := range p.events {
		keys = append(keys, event.routingKey)
	}
	return keys
}

type stubRateLimiter struct {
	count      int
	retryAfter int
	err        error
	calls      int
}

func (l *stubRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	l.calls++
	return l.count, l.retryAfter, l.err
}

// conflictingLedger wraps a MemoryLedger and fails the first N transactions
// with ErrTxConflict before delegating.
type conflictingLedger struct {
	*store.MemoryLedger
	conflicts int
}

func (l *conflictingLedger) InTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	if l.conflicts > 0 {
		l.conflicts--
		return store.ErrTxConflict
	}
	return l.MemoryLedger.InTransaction(ctx, fn)
}

func money(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(t *testing.T) (*Service, *store.MemoryLedger, *capturingPublisher) {
	t.Helper()
	ledger := store.NewMemoryLedger()
	events := &capturingPublisher{}
	return NewService(ledger, events), ledger, events
}

// seedCustomerWithAccounts creates a customer with the given daily limit and
// two funded accounts, returning their ids.
func seedCustomerWithAccounts(t *testing.T, svc *Service, dailyLimit, fromBalance, toBalance string) (customerID, fromID, toID int64) {
	t.Helper()
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, domain.CreateCustomerRequest{
		Name:               "Ada Ferguson",
		DateOfBirth:        "1990-04-12",
		DailyTransferLimit: money(dailyLimit),
	})
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	from, err := svc.CreateAccount(ctx, domain.CreateAccountRequest{CustomerID: customer.ID, AccountNumber: fmt.Sprintf("ACC-%d-1", customer.ID)})
	if err != nil {
		t.Fatalf("CreateAccount (from) failed: %v", err)
	}
	to, err := svc.CreateAccount(ctx, domain.CreateAccountRequest{CustomerID: customer.ID, AccountNumber: fmt.Sprintf("ACC-%d-2", customer.ID)})
	if err != nil {
		t.Fatalf("CreateAccount (to) failed: %v", err)
	}

	if money(fromBalance).IsPositive() {
		if _, err := svc.UpdateBalance(ctx, from.ID, money(fromBalance)); err != nil {
			t.Fatalf("funding source account failed: %v", err)
		}
	}
	if money(toBalance).IsPositive() {
		if _, err := svc.UpdateBalance(ctx, to.ID, money(toBalance)); err != nil {
			t.Fatalf("funding destination account failed: %v", err)
		}
	}
	return customer.ID, from.ID, to.ID
}

func expectKind(t *testing.T, err error, kind domain.Kind, wantMessage string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", kind)
	}
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error, got %T: %v", err, err)
	}
	if domainErr.Kind != kind {
		t.Fatalf("expected kind %v, got %v (%q)", kind, domainErr.Kind, domainErr.Message)
	}
	if wantMessage != "" && domainErr.Message != wantMessage {
		t.Fatalf("expected message %q, got %q", wantMessage, domainErr.Message)
	}
}

func TestCreateTransfer_ValidationOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Missing ids wins over everything else, including same-account and amount.
	_, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: 0, ToAccountID: 0, Amount: money("-5")})
	expectKind(t, err, domain.KindValidationFailed, "account ids must be provided")

	_, err = svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: 7, ToAccountID: 7, Amount: money("-5")})
	expectKind(t, err, domain.KindValidationFailed, "cannot transfer to the same account")

	_, err = svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: 7, ToAccountID: 8, Amount: money("0")})
	expectKind(t, err, domain.KindValidationFailed, "transfer amount must be greater than zero")

	_, err = svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: 7, ToAccountID: 8, Amount: money("-1")})
	expectKind(t, err, domain.KindValidationFailed, "transfer amount must be greater than zero")
}

func TestCreateTransfer_UnknownAccounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "100")

	_, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: 999, ToAccountID: toID, Amount: money("10")})
	expectKind(t, err, domain.KindNotFound, "one or both accounts were not found")
}

func TestCreateTransfer_CrossCustomerRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, fromID, _ := seedCustomerWithAccounts(t, svc, "1000", "500", "100")
	_, _, otherToID := seedCustomerWithAccounts(t, svc, "1000", "500", "100")

	_, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: otherToID, Amount: money("10")})
	expectKind(t, err, domain.KindBusinessRuleViolation, "transfers are only available between accounts owned by the same customer")
}

func TestCreateTransfer_FrozenLegs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "100")

	if _, err := svc.SetAccountFrozen(ctx, fromID, true); err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	_, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")})
	expectKind(t, err, domain.KindBusinessRuleViolation, "origin account is frozen")

	if _, err := svc.SetAccountFrozen(ctx, fromID, false); err != nil {
		t.Fatalf("unfreeze failed: %v", err)
	}
	if _, err := svc.SetAccountFrozen(ctx, toID, true); err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	_, err = svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")})
	expectKind(t, err, domain.KindBusinessRuleViolation, "destination account is frozen")
}

func TestCreateTransfer_InsufficientFunds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "50", "0")

	_, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("50.01")})
	expectKind(t, err, domain.KindBusinessRuleViolation, "insufficient funds")

	// A failed transfer leaves both balances untouched.
	from, err := svc.GetAccount(ctx, fromID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !from.Balance.Equal(money("50")) {
		t.Fatalf("expected source balance 50, got %s", from.Balance)
	}
	to, err := svc.GetAccount(ctx, toID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !to.Balance.IsZero() {
		t.Fatalf("expected destination balance 0, got %s", to.Balance)
	}
}

func TestCreateTransfer_DailyLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "5000", "0")

	if _, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("900")}); err != nil {
		t.Fatalf("first transfer failed: %v", err)
	}

	// 900 + 150 breaches the 1000 limit.
	_, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("150")})
	expectKind(t, err, domain.KindBusinessRuleViolation, "daily transfer limit exceeded")

	// 900 + 100 lands exactly on the limit and passes.
	if _, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("100")}); err != nil {
		t.Fatalf("transfer at exact limit failed: %v", err)
	}
}

func TestCreateTransfer_IncomingTransfersDoNotCountTowardLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "1000", "1000")

	// to -> from consumes to's allowance only.
	if _, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: toID, ToAccountID: fromID, Amount: money("800")}); err != nil {
		t.Fatalf("incoming transfer failed: %v", err)
	}
	// from still has its full 1000 outgoing allowance.
	if _, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("1000")}); err != nil {
		t.Fatalf("outgoing transfer after unrelated incoming failed: %v", err)
	}
}

func TestCreateTransfer_TruncatesAmountTowardZero(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "100")

	transfer, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10.005")})
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if !transfer.Amount.Equal(money("10.00")) {
		t.Fatalf("expected recorded amount 10.00, got %s", transfer.Amount)
	}

	from, _ := svc.GetAccount(ctx, fromID)
	to, _ := svc.GetAccount(ctx, toID)
	if !from.Balance.Equal(money("490.00")) {
		t.Fatalf("expected source balance 490.00, got %s", from.Balance)
	}
	if !to.Balance.Equal(money("110.00")) {
		t.Fatalf("expected destination balance 110.00, got %s", to.Balance)
	}
}

func TestCreateTransfer_DailyLimitUsesUntruncatedRequestAmount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "10", "500", "0")

	// 10.009 exceeds the limit of 10 before truncation, so it is rejected even
	// though only 10.00 would have moved.
	_, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10.009")})
	expectKind(t, err, domain.KindBusinessRuleViolation, "daily transfer limit exceeded")
}

func TestCreateTransfer_ReferenceNormalization(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	padded := "  rent march  "
	transfer, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10"), Reference: &padded})
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if transfer.Reference == nil || *transfer.Reference != "rent march" {
		t.Fatalf("expected trimmed reference %q, got %v", "rent march", transfer.Reference)
	}

	blank := "   "
	transfer, err = svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10"), Reference: &blank})
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if transfer.Reference != nil {
		t.Fatalf("expected whitespace-only reference to be stored as absent, got %q", *transfer.Reference)
	}
}

func TestCreateTransfer_ReferenceTooLong(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	long := make([]byte, domain.MaxReferenceLength+1)
	for i := range long {
		long[i] = 'x'
	}
	reference := string(long)
	_, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10"), Reference: &reference})
	expectKind(t, err, domain.KindValidationFailed, "")
}

func TestCreateTransfer_AssignsServerTimestamp(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	before := time.Now().UTC()
	transfer, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")})
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	after := time.Now().UTC()

	if transfer.CreatedAtUTC.Before(before) || transfer.CreatedAtUTC.After(after) {
		t.Fatalf("expected commit timestamp in [%s, %s], got %s", before, after, transfer.CreatedAtUTC)
	}
	if transfer.CreatedAtUTC.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %s", transfer.CreatedAtUTC.Location())
	}
}

func TestCreateTransfer_RetriesOnceOnConflict(t *testing.T) {
	ledger := &conflictingLedger{MemoryLedger: store.NewMemoryLedger(), conflicts: 0}
	events := &capturingPublisher{}
	svc := NewService(ledger, events)
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	// One conflict: the retry succeeds.
	ledger.conflicts = 1
	if _, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")}); err != nil {
		t.Fatalf("expected transfer to succeed after one retry, got %v", err)
	}

	// Two conflicts: the single retry is exhausted and a Conflict surfaces.
	ledger.conflicts = 2
	_, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")})
	expectKind(t, err, domain.KindConflict, "transfer could not be committed due to a concurrent update")
}

func TestCreateTransfer_PublishesCompletionEvent(t *testing.T) {
	svc, _, events := newTestService(t)
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	if _, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")}); err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	var found bool
	for _, key := range events.routingKeys() {
		if key == "transfer.completed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected transfer.completed event, got %v", events.routingKeys())
	}
}

func TestCreateTransfer_RateLimited(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	limiter := &stubRateLimiter{count: 61, retryAfter: 30}
	svc.SetTransferRateLimiter(limiter, 60)

	_, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")})
	if !errors.Is(err, ErrTransferRateLimited) {
		t.Fatalf("expected ErrTransferRateLimited, got %v", err)
	}
	if limiter.calls != 1 {
		t.Fatalf("expected one limiter call, got %d", limiter.calls)
	}
}

func TestCreateTransfer_RateLimiterFailsOpen(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	limiter := &stubRateLimiter{err: errors.New("redis unavailable")}
	svc.SetTransferRateLimiter(limiter, 60)

	if _, err := svc.CreateTransfer(context.Background(), domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")}); err != nil {
		t.Fatalf("expected limiter failure to be ignored, got %v", err)
	}
}

func TestCreateTransfer_ConcurrentTransfersConserveMoney(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	const workers = 8
	const perWorker = 5

	// The source starts with exactly workers*perWorker units, so every
	// transfer must succeed and the account must drain to exactly zero.
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "100000", "40.00", "0")

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("1.00")}); err != nil {
					t.Errorf("concurrent transfer failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	from, _ := svc.GetAccount(ctx, fromID)
	to, _ := svc.GetAccount(ctx, toID)
	moved := decimal.NewFromInt(workers * perWorker)
	if !from.Balance.IsZero() {
		t.Fatalf("expected source drained to zero, got %s", from.Balance)
	}
	if !to.Balance.Equal(moved) {
		t.Fatalf("expected destination balance %s, got %s", moved, to.Balance)
	}

	transfers, err := svc.GetTransfers(ctx, fromID, nil, nil)
	if err != nil {
		t.Fatalf("GetTransfers failed: %v", err)
	}
	if len(transfers) != workers*perWorker {
		t.Fatalf("expected %d transfer records, got %d", workers*perWorker, len(transfers))
	}
}

func TestGetTransfers_WindowFilter(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "10000", "1000", "0")

	if _, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")}); err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	future := time.Now().UTC().Add(time.Hour)
	transfers, err := ledger.FindTransfersByAccount(ctx, fromID, &future, nil)
	if err != nil {
		t.Fatalf("FindTransfersByAccount failed: %v", err)
	}
	if len(transfers) != 0 {
		t.Fatalf("expected no transfers after future lower bound, got %d", len(transfers))
	}

	past := time.Now().UTC().Add(-time.Hour)
	transfers, err = svc.GetTransfers(ctx, fromID, &past, &future)
	if err != nil {
		t.Fatalf("GetTransfers failed: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("expected one transfer inside the window, got %d", len(transfers))
	}
}

func TestGetTransfers_UnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetTransfers(context.Background(), 42, nil, nil)
	expectKind(t, err, domain.KindNotFound, "bank account not found")
}

func TestUpdateBalance_DepositAndWithdraw(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, accountID, _ := seedCustomerWithAccounts(t, svc, "1000", "0", "0")

	account, err := svc.UpdateBalance(ctx, accountID, money("250.505"))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if !account.Balance.Equal(money("250.50")) {
		t.Fatalf("expected balance 250.50 after truncated deposit, got %s", account.Balance)
	}

	account, err = svc.UpdateBalance(ctx, accountID, money("-100"))
	if err != nil {
		t.Fatalf("withdrawal failed: %v", err)
	}
	if !account.Balance.Equal(money("150.50")) {
		t.Fatalf("expected balance 150.50 after withdrawal, got %s", account.Balance)
	}
}

func TestUpdateBalance_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, accountID, _ := seedCustomerWithAccounts(t, svc, "1000", "50", "0")

	_, err := svc.UpdateBalance(ctx, accountID, money("0"))
	expectKind(t, err, domain.KindValidationFailed, "amount must not be zero")

	_, err = svc.UpdateBalance(ctx, accountID, money("-50.01"))
	expectKind(t, err, domain.KindBusinessRuleViolation, "insufficient funds")

	if _, err := svc.SetAccountFrozen(ctx, accountID, true); err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	_, err = svc.UpdateBalance(ctx, accountID, money("10"))
	expectKind(t, err, domain.KindBusinessRuleViolation, "cannot modify the balance of a frozen account")

	_, err = svc.UpdateBalance(ctx, 999, money("10"))
	expectKind(t, err, domain.KindNotFound, "bank account not found")
}

func TestCreateCustomer_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, domain.CreateCustomerRequest{Name: "  ", DateOfBirth: "1990-01-01", DailyTransferLimit: money("100")})
	expectKind(t, err, domain.KindValidationFailed, "customer name is required")

	_, err = svc.CreateCustomer(ctx, domain.CreateCustomerRequest{Name: "Bola", DateOfBirth: "1990-01-01", DailyTransferLimit: money("-1")})
	expectKind(t, err, domain.KindValidationFailed, "daily transfer limit must not be negative")

	_, err = svc.CreateCustomer(ctx, domain.CreateCustomerRequest{Name: "Bola", DateOfBirth: "01/02/1990", DailyTransferLimit: money("100")})
	expectKind(t, err, domain.KindValidationFailed, "date of birth must be a valid YYYY-MM-DD date")

	customer, err := svc.CreateCustomer(ctx, domain.CreateCustomerRequest{Name: "Bola", DateOfBirth: "1990-02-01", DailyTransferLimit: money("100")})
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	if customer.ID == 0 {
		t.Fatal("expected store-assigned customer id")
	}
}

func TestCreateAccount_Mapping(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, domain.CreateCustomerRequest{Name: "Bola", DateOfBirth: "1990-02-01", DailyTransferLimit: money("100")})
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	_, err = svc.CreateAccount(ctx, domain.CreateAccountRequest{CustomerID: 999, AccountNumber: "NB-1"})
	expectKind(t, err, domain.KindNotFound, "")

	account, err := svc.CreateAccount(ctx, domain.CreateAccountRequest{CustomerID: customer.ID, AccountNumber: "NB-1"})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if account.IsFrozen || !account.Balance.IsZero() {
		t.Fatalf("expected fresh account unfrozen with zero balance, got frozen=%t balance=%s", account.IsFrozen, account.Balance)
	}

	_, err = svc.CreateAccount(ctx, domain.CreateAccountRequest{CustomerID: customer.ID, AccountNumber: "NB-1"})
	expectKind(t, err, domain.KindConflict, "account number already exists")
}

func TestDeleteAccount_BlockedByHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, fromID, toID := seedCustomerWithAccounts(t, svc, "1000", "500", "0")

	if _, err := svc.CreateTransfer(ctx, domain.CreateTransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: money("10")}); err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	err := svc.DeleteAccount(ctx, fromID)
	expectKind(t, err, domain.KindConflict, "cannot delete an account with existing transfer history")

	// The destination leg blocks deletion too.
	err = svc.DeleteAccount(ctx, toID)
	expectKind(t, err, domain.KindConflict, "cannot delete an account with existing transfer history")
}

func TestDeleteAccount_Succeeds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, _, toID := seedCustomerWithAccounts(t, svc, "1000", "0", "0")

	if err := svc.DeleteAccount(ctx, toID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	_, err := svc.GetAccount(ctx, toID)
	expectKind(t, err, domain.KindNotFound, "")
}
