/**
 * @description
 * In-memory implementation of the `Ledger` interface. It backs the unit tests
 * and mirrors the transactional semantics of the PostgreSQL ledger: a single
 * mutex serializes transactions, and writes made inside `InTransaction` are
 * staged and applied only when the unit commits, so a failing step never
 * leaves partial state behind.
 */

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/domain"
)

// MemoryLedger is a concrete implementation of the Ledger interface backed by maps.
type MemoryLedger struct {
	mu sync.Mutex

	customers map[int64]domain.Customer
	accounts  map[int64]domain.Account
	transfers []domain.Transfer

	customerSeq int64
	accountSeq  int64
	transferSeq int64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		customers: make(map[int64]domain.Customer),
		accounts:  make(map[int64]domain.Account),
	}
}

func (l *MemoryLedger) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.customerSeq++
	customer.ID = l.customerSeq
	l.customers[customer.ID] = *customer
	return nil
}

func (l *MemoryLedger) FindCustomerByID(ctx context.Context, customerID int64) (*domain.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	customer, ok := l.customers[customerID]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &customer, nil
}

func (l *MemoryLedger) CreateAccount(ctx context.Context, account *domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.customers[account.CustomerID]; !ok {
		return ErrCustomerNotFound
	}
	for _, existing := range l.accounts {
		if existing.AccountNumber == account.AccountNumber {
			return ErrDuplicateAccountNumber
		}
	}

	l.accountSeq++
	account.ID = l.accountSeq
	account.IsFrozen = false
	account.Balance = decimal.Zero
	l.accounts[account.ID] = *account
	return nil
}

func (l *MemoryLedger) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (l *MemoryLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := make([]domain.Account, 0, len(l.accounts))
	for _, account := range l.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (l *MemoryLedger) SetAccountFrozen(ctx context.Context, accountID int64, frozen bool) (*domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	account.IsFrozen = frozen
	l.accounts[accountID] = account
	return &account, nil
}

func (l *MemoryLedger) DeleteAccount(ctx context.Context, accountID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}
	for _, transfer := range l.transfers {
		if transfer.FromAccountID == accountID || transfer.ToAccountID == accountID {
			return ErrAccountHasTransfers
		}
	}
	delete(l.accounts, accountID)
	return nil
}

func (l *MemoryLedger) FindTransfersByAccount(ctx context.Context, accountID int64, fromUTC, toUTC *time.Time) ([]domain.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var transfers []domain.Transfer
	for _, transfer := range l.transfers {
		if transfer.FromAccountID != accountID && transfer.ToAccountID != accountID {
			continue
		}
		if fromUTC != nil && transfer.CreatedAtUTC.Before(*fromUTC) {
			continue
		}
		if toUTC != nil && !transfer.CreatedAtUTC.Before(*toUTC) {
			continue
		}
		transfers = append(transfers, transfer)
	}
	// Most recent first; ties fall back to insertion order reversed so the
	// ordering is stable across identical repeated reads.
	sort.SliceStable(transfers, func(i, j int) bool {
		if transfers[i].CreatedAtUTC.Equal(transfers[j].CreatedAtUTC) {
			return transfers[i].ID > transfers[j].ID
		}
		return transfers[i].CreatedAtUTC.After(transfers[j].CreatedAtUTC)
	})
	return transfers, nil
}

// InTransaction serializes the whole unit under the ledger mutex and stages
// writes until fn succeeds, matching the all-or-nothing commit of the
// PostgreSQL ledger.
func (l *MemoryLedger) InTransaction(ctx context.Context, fn func(tx Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		ledger:   l,
		balances: make(map[int64]decimal.Decimal),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for accountID, balance := range tx.balances {
		account := l.accounts[accountID]
		account.Balance = balance
		l.accounts[accountID] = account
	}
	l.transfers = append(l.transfers, tx.inserted...)
	return nil
}

// memoryTx stages balance writes and transfer inserts against the ledger.
// The caller already holds the ledger mutex for the lifetime of the tx.
type memoryTx struct {
	ledger   *MemoryLedger
	balances map[int64]decimal.Decimal
	inserted []domain.Transfer
}

func (t *memoryTx) AccountForUpdate(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, ok := t.ledger.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if staged, ok := t.balances[accountID]; ok {
		account.Balance = staged
	}
	return &account, nil
}

func (t *memoryTx) CustomerByID(ctx context.Context, customerID int64) (*domain.Customer, error) {
	customer, ok := t.ledger.customers[customerID]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &customer, nil
}

func (t *memoryTx) SetAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	if _, ok := t.ledger.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}
	t.balances[accountID] = balance
	return nil
}

func (t *memoryTx) SumOutgoingTransfers(ctx context.Context, fromAccountID int64, startUTC, endUTC time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	sum := func(transfers []domain.Transfer) {
		for _, transfer := range transfers {
			if transfer.FromAccountID != fromAccountID {
				continue
			}
			if transfer.CreatedAtUTC.Before(startUTC) || !transfer.CreatedAtUTC.Before(endUTC) {
				continue
			}
			total = total.Add(transfer.Amount)
		}
	}
	sum(t.ledger.transfers)
	sum(t.inserted)
	return total, nil
}

func (t *memoryTx) InsertTransfer(ctx context.Context, transfer *domain.Transfer) error {
	t.ledger.transferSeq++
	transfer.ID = t.ledger.transferSeq
	t.inserted = append(t.inserted, *transfer)
	return nil
}
