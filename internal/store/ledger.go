/**
 * @description
 * This file defines the `Ledger` interface, the contract for all data access
 * required by the ledger-service, and the `Tx` interface that scopes the
 * transfer engine's resolution-through-commit sequence to a single
 * transaction. Defining interfaces here decouples the business logic from the
 * PostgreSQL implementation and lets tests run against the in-memory ledger.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/shopspring/decimal: Monetary values.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/domain"
)

var (
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrAccountNotFound        = errors.New("bank account not found")
	ErrDuplicateAccountNumber = errors.New("account number already exists")
	ErrAccountHasTransfers    = errors.New("account has transfer history")
	// ErrTxConflict reports a serialization or constraint clash between
	// concurrent transactions; callers may retry the whole unit once.
	ErrTxConflict = errors.New("transaction conflict")
)

// Ledger is the persistent record of customers, accounts, and transfers.
type Ledger interface {
	// Customer methods
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	FindCustomerByID(ctx context.Context, customerID int64) (*domain.Customer, error)

	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	SetAccountFrozen(ctx context.Context, accountID int64, frozen bool) (*domain.Account, error)
	DeleteAccount(ctx context.Context, accountID int64) error

	// Transfer history methods
	FindTransfersByAccount(ctx context.Context, accountID int64, fromUTC, toUTC *time.Time) ([]domain.Transfer, error)

	// InTransaction runs fn against a transactional view of the ledger. The
	// whole unit commits only if fn returns nil; any error aborts it with no
	// partial writes. Serialization failures surface as ErrTxConflict.
	InTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional handle passed through a single engine operation.
// Rows read through AccountForUpdate stay locked until the unit commits or
// aborts, so balance checks and the daily aggregate cannot go stale.
type Tx interface {
	AccountForUpdate(ctx context.Context, accountID int64) (*domain.Account, error)
	CustomerByID(ctx context.Context, customerID int64) (*domain.Customer, error)
	SetAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	// SumOutgoingTransfers totals transfer amounts whose source is the given
	// account and whose creation timestamp falls within [startUTC, endUTC).
	SumOutgoingTransfers(ctx context.Context, fromAccountID int64, startUTC, endUTC time.Time) (decimal.Decimal, error)
	InsertTransfer(ctx context.Context, transfer *domain.Transfer) error
}
