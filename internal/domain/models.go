/**
 * @description
 * This file defines the core domain models for the ledger-service: customers,
 * bank accounts, and transfers, plus the request DTOs accepted by the API layer.
 *
 * @notes
 * - Monetary values use shopspring decimal with two-decimal precision so that
 *   balances and limits are exact; floats are never used for money.
 * - Identities are store-assigned int64s. A zero ID means "not yet persisted".
 * - Transfers are immutable once created; there is deliberately no update DTO.
 */

package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxReferenceLength bounds the free-text reference carried by a transfer.
const MaxReferenceLength = 240

// Customer owns zero or more bank accounts. DailyTransferLimit caps the total
// amount the customer's accounts may send within one UTC calendar day.
type Customer struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	DateOfBirth        time.Time       `json:"date_of_birth"`
	DailyTransferLimit decimal.Decimal `json:"daily_transfer_limit"`
}

// Account is a customer-owned bank account. Balance is never persisted below
// zero; a frozen account accepts no balance-mutating operation.
type Account struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	AccountNumber string          `json:"account_number"`
	IsFrozen      bool            `json:"is_frozen"`
	Balance       decimal.Decimal `json:"balance"`
}

// Transfer is an immutable record of a funds movement between two accounts
// belonging to the same customer. CreatedAtUTC is assigned by the server at
// commit time, never taken from the caller.
type Transfer struct {
	ID            int64           `json:"id"`
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     *string         `json:"reference,omitempty"`
	CreatedAtUTC  time.Time       `json:"created_at_utc"`
}

// CreateCustomerRequest is the DTO for registering a customer.
type CreateCustomerRequest struct {
	Name               string          `json:"name"`
	DateOfBirth        string          `json:"date_of_birth"` // YYYY-MM-DD
	DailyTransferLimit decimal.Decimal `json:"daily_transfer_limit"`
}

// CreateAccountRequest is the DTO for opening an account under a customer.
type CreateAccountRequest struct {
	CustomerID    int64  `json:"customer_id"`
	AccountNumber string `json:"account_number"`
}

// UpdateAccountRequest is the DTO for the administrative freeze toggle.
type UpdateAccountRequest struct {
	IsFrozen bool `json:"is_frozen"`
}

// UpdateBalanceRequest is the DTO for a direct deposit (positive amount) or
// withdrawal (negative amount) against a single account.
type UpdateBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateTransferRequest is the DTO for moving funds between two accounts.
type CreateTransferRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     *string         `json:"reference,omitempty"`
}

// NormalizeReference trims the reference and collapses a whitespace-only value
// to nil so that "no reference" is stored as absent rather than empty string.
func NormalizeReference(reference *string) *string {
	if reference == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reference)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// TruncateAmount rounds a monetary amount to two decimal places toward zero,
// so a requested 10.005 becomes 10.00 and the engine never moves more than
// the caller asked for.
func TruncateAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Truncate(2)
}

// DayBoundsUTC returns [startOfTodayUTC, startOfTomorrowUTC) for the calendar
// day containing now, in UTC.
func DayBoundsUTC(now time.Time) (time.Time, time.Time) {
	utc := now.UTC()
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
