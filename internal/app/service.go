/**
 * @description
 * This file contains the core business logic for the ledger-service. The
 * `Service` struct orchestrates every money movement: the transfer engine
 * that atomically moves funds between two accounts of the same customer, the
 * direct balance mutation path, and the account/customer lifecycle
 * operations. All invariant enforcement lives here and in guard.go; the API
 * layer only translates outcomes into transport responses.
 *
 * Key rules enforced by the transfer engine:
 * - Fail-fast input validation (ids well-formed, distinct accounts, positive amount).
 * - Resolution, daily-limit aggregation, and both balance mutations run inside
 *   one ledger transaction, so concurrent transfers cannot pass checks against
 *   a snapshot the other has already invalidated.
 * - Amounts are truncated to two decimals toward zero at commit time.
 * - A store-level conflict aborts the whole unit; it is retried once and then
 *   surfaced as a Conflict, never partially applied.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/shopspring/decimal: Monetary arithmetic.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Event publishing for downstream services.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/store"
	"github.com/corebank/ledger-service/pkg/rabbitmq"
)

// ErrTransferRateLimited reports that the source account exceeded the
// configured transfer-creation rate; it maps to a 429 at the API layer.
var ErrTransferRateLimited = errors.New("transfer rate limit exceeded")

const transferRateLimitScope = "transfer_create"

// TransferRateLimiter throttles transfer creation per source account.
type TransferRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the ledger.
type Service struct {
	ledger store.Ledger
	events rabbitmq.Publisher

	rateLimiter             TransferRateLimiter
	transferRateLimitPerMin int
}

// NewService creates a new ledger service instance. The event producer may be
// nil; publishing is best-effort and never fails an operation.
func NewService(ledger store.Ledger, events rabbitmq.Publisher) *Service {
	return &Service{
		ledger: ledger,
		events: events,
	}
}

// SetTransferRateLimiter wires an optional distributed rate limiter for
// transfer creation. A nil limiter or non-positive limit disables throttling.
func (s *Service) SetTransferRateLimiter(limiter TransferRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.transferRateLimitPerMin = perMinute
}

// CreateTransfer validates and atomically executes a funds movement between
// two accounts of the same customer, recording an immutable transfer entry.
func (s *Service) CreateTransfer(ctx context.Context, req domain.CreateTransferRequest) (*domain.Transfer, error) {
	// 1. Fail-fast input validation, before any store access.
	if req.FromAccountID <= 0 || req.ToAccountID <= 0 {
		return nil, domain.ValidationFailed("account ids must be provided")
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, domain.ValidationFailed("cannot transfer to the same account")
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ValidationFailed("transfer amount must be greater than zero")
	}

	reference := domain.NormalizeReference(req.Reference)
	if reference != nil && len(*reference) > domain.MaxReferenceLength {
		return nil, domain.ValidationFailed(fmt.Sprintf("reference must not exceed %d characters", domain.MaxReferenceLength))
	}

	if err := s.consumeTransferRateLimit(ctx, req.FromAccountID); err != nil {
		return nil, err
	}

	// 2. Resolution through commit runs as one transactional unit; a store
	// conflict aborts the whole unit and is retried exactly once.
	transfer, err := s.executeTransfer(ctx, req, reference)
	if errors.Is(err, store.ErrTxConflict) {
		log.Printf("level=warn component=transfer_engine msg=\"transaction conflict; retrying once\" from_account_id=%d to_account_id=%d", req.FromAccountID, req.ToAccountID)
		transfer, err = s.executeTransfer(ctx, req, reference)
	}
	if err != nil {
		if errors.Is(err, store.ErrTxConflict) {
			return nil, domain.Conflict("transfer could not be committed due to a concurrent update")
		}
		return nil, err
	}

	log.Printf("level=info component=transfer_engine msg=\"transfer committed\" transfer_id=%d from_account_id=%d to_account_id=%d amount=%s",
		transfer.ID, transfer.FromAccountID, transfer.ToAccountID, transfer.Amount)

	s.publish("transfer.completed", rabbitmq.TransferCompletedEvent{
		TransferID:    transfer.ID,
		FromAccountID: transfer.FromAccountID,
		ToAccountID:   transfer.ToAccountID,
		Amount:        transfer.Amount,
		CreatedAtUTC:  transfer.CreatedAtUTC,
	})

	return transfer, nil
}

func (s *Service) executeTransfer(ctx context.Context, req domain.CreateTransferRequest, reference *string) (*domain.Transfer, error) {
	var transfer *domain.Transfer
	err := s.ledger.InTransaction(ctx, func(tx store.Tx) error {
		// Lock both account rows in ascending id order so two concurrent
		// transfers over the same pair cannot deadlock.
		firstID, secondID := req.FromAccountID, req.ToAccountID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}

		first, err := tx.AccountForUpdate(ctx, firstID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return domain.NotFound("one or both accounts were not found")
			}
			return err
		}
		second, err := tx.AccountForUpdate(ctx, secondID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return domain.NotFound("one or both accounts were not found")
			}
			return err
		}

		from, to := first, second
		if from.ID != req.FromAccountID {
			from, to = second, first
		}

		// Ownership is domain policy, not input shape: cross-customer
		// transfers are a business-rule violation.
		if from.CustomerID != to.CustomerID {
			return domain.BusinessRuleViolation("transfers are only available between accounts owned by the same customer")
		}
		if from.IsFrozen {
			return domain.BusinessRuleViolation("origin account is frozen")
		}
		if to.IsFrozen {
			return domain.BusinessRuleViolation("destination account is frozen")
		}

		customer, err := tx.CustomerByID(ctx, from.CustomerID)
		if err != nil {
			if errors.Is(err, store.ErrCustomerNotFound) {
				// Should not occur given referential integrity.
				return domain.NotFound("owning customer was not found")
			}
			return err
		}

		// Daily limit, evaluated under the same locks as the balance
		// mutation. The day is a UTC calendar day and the aggregate uses the
		// commit-time timestamps of prior transfers.
		now := time.Now().UTC()
		startOfToday, startOfTomorrow := domain.DayBoundsUTC(now)
		todaysTotal, err := tx.SumOutgoingTransfers(ctx, from.ID, startOfToday, startOfTomorrow)
		if err != nil {
			return fmt.Errorf("failed to compute daily outgoing total: %w", err)
		}
		if todaysTotal.Add(req.Amount).GreaterThan(customer.DailyTransferLimit) {
			return domain.BusinessRuleViolation("daily transfer limit exceeded")
		}

		// Commit phase: truncate toward zero, then debit source and credit
		// destination exactly once through the account guard, which re-checks
		// freeze and solvency at mutation time.
		amount := domain.TruncateAmount(req.Amount)
		if err := applyBalanceDelta(ctx, tx, from, amount.Neg()); err != nil {
			return err
		}
		if err := applyBalanceDelta(ctx, tx, to, amount); err != nil {
			return err
		}

		transfer = &domain.Transfer{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			Amount:        amount,
			Reference:     reference,
			CreatedAtUTC:  now,
		}
		return tx.InsertTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// GetTransfers retrieves the transfer history of an account, filtered by an
// inclusive lower / exclusive upper timestamp bound, most recent first.
func (s *Service) GetTransfers(ctx context.Context, accountID int64, fromUTC, toUTC *time.Time) ([]domain.Transfer, error) {
	if accountID <= 0 {
		return nil, domain.ValidationFailed("account id must be positive")
	}
	if _, err := s.ledger.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NotFound("bank account not found")
		}
		return nil, err
	}
	return s.ledger.FindTransfersByAccount(ctx, accountID, fromUTC, toUTC)
}

// UpdateBalance applies a direct deposit (positive delta) or withdrawal
// (negative delta) to a single account through the account guard, inside its
// own transaction.
func (s *Service) UpdateBalance(ctx context.Context, accountID int64, delta decimal.Decimal) (*domain.Account, error) {
	if accountID <= 0 {
		return nil, domain.ValidationFailed("account id must be positive")
	}
	if delta.IsZero() {
		return nil, domain.ValidationFailed("amount must not be zero")
	}

	var updated *domain.Account
	err := s.ledger.InTransaction(ctx, func(tx store.Tx) error {
		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return domain.NotFound("bank account not found")
			}
			return err
		}
		if err := applyBalanceDelta(ctx, tx, account, domain.TruncateAmount(delta)); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrTxConflict) {
			return nil, domain.Conflict("balance update could not be committed due to a concurrent update")
		}
		return nil, err
	}

	s.publish("balance.updated", rabbitmq.BalanceUpdatedEvent{
		AccountID: updated.ID,
		Delta:     domain.TruncateAmount(delta),
		Balance:   updated.Balance,
	})

	return updated, nil
}

// CreateCustomer registers a customer. The daily transfer limit must be
// non-negative; the name must be present.
func (s *Service) CreateCustomer(ctx context.Context, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ValidationFailed("customer name is required")
	}
	if req.DailyTransferLimit.IsNegative() {
		return nil, domain.ValidationFailed("daily transfer limit must not be negative")
	}
	dateOfBirth, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.DateOfBirth), time.UTC)
	if err != nil {
		return nil, domain.ValidationFailed("date of birth must be a valid YYYY-MM-DD date")
	}

	customer := &domain.Customer{
		Name:               name,
		DateOfBirth:        dateOfBirth,
		DailyTransferLimit: domain.TruncateAmount(req.DailyTransferLimit),
	}
	if err := s.ledger.CreateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a customer by id.
func (s *Service) GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	if customerID <= 0 {
		return nil, domain.ValidationFailed("customer id must be positive")
	}
	customer, err := s.ledger.FindCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return nil, domain.NotFound(fmt.Sprintf("customer %d not found", customerID))
		}
		return nil, err
	}
	return customer, nil
}

// CreateAccount opens a new account for a customer with zero balance, not frozen.
func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if req.CustomerID <= 0 {
		return nil, domain.ValidationFailed("customer id must be provided")
	}
	accountNumber := strings.TrimSpace(req.AccountNumber)
	if accountNumber == "" {
		return nil, domain.ValidationFailed("account number is required")
	}

	account := &domain.Account{
		CustomerID:    req.CustomerID,
		AccountNumber: accountNumber,
	}
	if err := s.ledger.CreateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, store.ErrCustomerNotFound):
			return nil, domain.NotFound(fmt.Sprintf("customer %d not found", req.CustomerID))
		case errors.Is(err, store.ErrDuplicateAccountNumber):
			return nil, domain.Conflict("account number already exists")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.publish("account.created", rabbitmq.AccountLifecycleEvent{
		AccountID:  account.ID,
		CustomerID: account.CustomerID,
	})

	return account, nil
}

// GetAccount retrieves an account by id.
func (s *Service) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if accountID <= 0 {
		return nil, domain.ValidationFailed("account id must be positive")
	}
	account, err := s.ledger.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NotFound(fmt.Sprintf("bank account %d not found", accountID))
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts retrieves all accounts ordered by id.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.ledger.ListAccounts(ctx)
}

// SetAccountFrozen freezes or unfreezes an account by explicit administrative action.
func (s *Service) SetAccountFrozen(ctx context.Context, accountID int64, frozen bool) (*domain.Account, error) {
	if accountID <= 0 {
		return nil, domain.ValidationFailed("account id must be positive")
	}
	account, err := s.ledger.SetAccountFrozen(ctx, accountID, frozen)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, domain.NotFound(fmt.Sprintf("bank account %d not found", accountID))
		}
		return nil, err
	}

	routingKey := "account.frozen"
	if !frozen {
		routingKey = "account.unfrozen"
	}
	s.publish(routingKey, rabbitmq.AccountLifecycleEvent{
		AccountID:  account.ID,
		CustomerID: account.CustomerID,
	})

	return account, nil
}

// DeleteAccount removes an account. Deletion is blocked while any transfer
// references the account on either leg.
func (s *Service) DeleteAccount(ctx context.Context, accountID int64) error {
	if accountID <= 0 {
		return domain.ValidationFailed("account id must be positive")
	}
	if err := s.ledger.DeleteAccount(ctx, accountID); err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			return domain.NotFound(fmt.Sprintf("bank account %d not found", accountID))
		case errors.Is(err, store.ErrAccountHasTransfers):
			return domain.Conflict("cannot delete an account with existing transfer history")
		}
		return err
	}
	return nil
}

func (s *Service) consumeTransferRateLimit(ctx context.Context, fromAccountID int64) error {
	if s.rateLimiter == nil || s.transferRateLimitPerMin <= 0 {
		return nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(
		ctx,
		transferRateLimitScope,
		fmt.Sprintf("%d", fromAccountID),
		s.transferRateLimitPerMin,
		time.Minute,
	)
	if err != nil {
		// The limiter is protective, not load-bearing; fail open.
		log.Printf("level=warn component=transfer_engine msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		return nil
	}
	if count > s.transferRateLimitPerMin {
		log.Printf("level=warn component=transfer_engine msg=\"transfer rate limited\" from_account_id=%d retry_after_s=%d", fromAccountID, retryAfter)
		return ErrTransferRateLimited
	}
	return nil
}

func (s *Service) publish(routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	// Event publication is decoupled from the committed operation; a broker
	// failure must not fail the caller.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, rabbitmq.LedgerEventsExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=events msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
