/**
 * @description
 * PostgreSQL implementation of the `Ledger` interface. All balance mutations
 * and the transfer insert run through `InTransaction`, which wraps a pgx
 * transaction; account rows are locked with SELECT ... FOR UPDATE so that
 * concurrent transfers touching the same account serialize, and the daily
 * outgoing aggregate is computed under those locks.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/shopspring/decimal: Monetary values (NUMERIC codec registered at pool setup).
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/domain"
)

// PostgresLedger is a concrete implementation of the Ledger interface for PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger creates a new instance of PostgresLedger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// CreateCustomer inserts a customer and assigns its identity.
func (l *PostgresLedger) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (name, date_of_birth, daily_transfer_limit)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return l.db.QueryRow(ctx, query, customer.Name, customer.DateOfBirth, customer.DailyTransferLimit).Scan(&customer.ID)
}

// FindCustomerByID retrieves a customer by id.
func (l *PostgresLedger) FindCustomerByID(ctx context.Context, customerID int64) (*domain.Customer, error) {
	var customer domain.Customer
	query := `SELECT id, name, date_of_birth, daily_transfer_limit FROM customers WHERE id = $1`
	err := l.db.QueryRow(ctx, query, customerID).Scan(
		&customer.ID, &customer.Name, &customer.DateOfBirth, &customer.DailyTransferLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// CreateAccount inserts a new account with zero balance. The unique index on
// account_number and the customer foreign key both surface as sentinel errors.
func (l *PostgresLedger) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO bank_accounts (customer_id, account_number, is_frozen, balance)
		VALUES ($1, $2, FALSE, 0)
		RETURNING id, is_frozen, balance
	`
	err := l.db.QueryRow(ctx, query, account.CustomerID, account.AccountNumber).Scan(
		&account.ID, &account.IsFrozen, &account.Balance,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrDuplicateAccountNumber
			case "23503":
				return ErrCustomerNotFound
			}
		}
		return err
	}
	return nil
}

// FindAccountByID retrieves an account by id.
func (l *PostgresLedger) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, customer_id, account_number, is_frozen, balance FROM bank_accounts WHERE id = $1`
	err := l.db.QueryRow(ctx, query, accountID).Scan(
		&account.ID, &account.CustomerID, &account.AccountNumber, &account.IsFrozen, &account.Balance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts retrieves all accounts ordered by id.
func (l *PostgresLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT id, customer_id, account_number, is_frozen, balance FROM bank_accounts ORDER BY id`
	rows, err := l.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.CustomerID, &account.AccountNumber, &account.IsFrozen, &account.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// SetAccountFrozen flips the administrative freeze flag and returns the updated row.
func (l *PostgresLedger) SetAccountFrozen(ctx context.Context, accountID int64, frozen bool) (*domain.Account, error) {
	var account domain.Account
	query := `
		UPDATE bank_accounts SET is_frozen = $1 WHERE id = $2
		RETURNING id, customer_id, account_number, is_frozen, balance
	`
	err := l.db.QueryRow(ctx, query, frozen, accountID).Scan(
		&account.ID, &account.CustomerID, &account.AccountNumber, &account.IsFrozen, &account.Balance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// DeleteAccount removes an account with no transfer history. The pre-check and
// the RESTRICT foreign keys both map to ErrAccountHasTransfers so a racing
// transfer cannot slip a delete through.
func (l *PostgresLedger) DeleteAccount(ctx context.Context, accountID int64) error {
	var hasTransfers bool
	existsQuery := `SELECT EXISTS (SELECT 1 FROM transfers WHERE from_account_id = $1 OR to_account_id = $1)`
	if err := l.db.QueryRow(ctx, existsQuery, accountID).Scan(&hasTransfers); err != nil {
		return err
	}
	if hasTransfers {
		return ErrAccountHasTransfers
	}

	result, err := l.db.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1`, accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrAccountHasTransfers
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// FindTransfersByAccount retrieves transfers where the account is either leg,
// bounded by an inclusive lower / exclusive upper timestamp filter, most
// recent first.
func (l *PostgresLedger) FindTransfersByAccount(ctx context.Context, accountID int64, fromUTC, toUTC *time.Time) ([]domain.Transfer, error) {
	query := `
		SELECT id, from_account_id, to_account_id, amount, reference, created_at_utc
		FROM transfers
		WHERE (from_account_id = $1 OR to_account_id = $1)
		  AND ($2::timestamptz IS NULL OR created_at_utc >= $2)
		  AND ($3::timestamptz IS NULL OR created_at_utc < $3)
		ORDER BY created_at_utc DESC
	`
	rows, err := l.db.Query(ctx, query, accountID, fromUTC, toUTC)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		var transfer domain.Transfer
		if err := rows.Scan(
			&transfer.ID, &transfer.FromAccountID, &transfer.ToAccountID,
			&transfer.Amount, &transfer.Reference, &transfer.CreatedAtUTC,
		); err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}

// InTransaction runs fn inside a single pgx transaction. Serialization and
// deadlock failures are re-classified as ErrTxConflict so the engine can
// retry without seeing raw storage errors.
func (l *PostgresLedger) InTransaction(ctx context.Context, fn func(tx Tx) error) error {
	pgtx, err := l.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgtx.Rollback(ctx)

	if err := fn(&postgresTx{tx: pgtx}); err != nil {
		return classifyTxError(err)
	}
	if err := pgtx.Commit(ctx); err != nil {
		return classifyTxError(err)
	}
	return nil
}

func classifyTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrTxConflict
		case "23505":
			return ErrTxConflict
		}
	}
	return err
}

// postgresTx adapts a pgx transaction to the store.Tx contract.
type postgresTx struct {
	tx pgx.Tx
}

// AccountForUpdate loads an account and locks its row for the remainder of the
// transaction, closing the race window between validation and mutation.
func (t *postgresTx) AccountForUpdate(ctx context.Context, accountID int64) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, customer_id, account_number, is_frozen, balance FROM bank_accounts WHERE id = $1 FOR UPDATE`
	err := t.tx.QueryRow(ctx, query, accountID).Scan(
		&account.ID, &account.CustomerID, &account.AccountNumber, &account.IsFrozen, &account.Balance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (t *postgresTx) CustomerByID(ctx context.Context, customerID int64) (*domain.Customer, error) {
	var customer domain.Customer
	query := `SELECT id, name, date_of_birth, daily_transfer_limit FROM customers WHERE id = $1`
	err := t.tx.QueryRow(ctx, query, customerID).Scan(
		&customer.ID, &customer.Name, &customer.DateOfBirth, &customer.DailyTransferLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (t *postgresTx) SetAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	result, err := t.tx.Exec(ctx, `UPDATE bank_accounts SET balance = $1 WHERE id = $2`, balance, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (t *postgresTx) SumOutgoingTransfers(ctx context.Context, fromAccountID int64, startUTC, endUTC time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transfers
		WHERE from_account_id = $1 AND created_at_utc >= $2 AND created_at_utc < $3
	`
	if err := t.tx.QueryRow(ctx, query, fromAccountID, startUTC, endUTC).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (t *postgresTx) InsertTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (from_account_id, to_account_id, amount, reference, created_at_utc)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return t.tx.QueryRow(ctx, query,
		transfer.FromAccountID,
		transfer.ToAccountID,
		transfer.Amount,
		transfer.Reference,
		transfer.CreatedAtUTC,
	).Scan(&transfer.ID)
}
