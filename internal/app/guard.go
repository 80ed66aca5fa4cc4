/**
 * @description
 * The account guard: the single place a balance is allowed to change. It
 * enforces the per-account invariants (non-zero delta, not frozen, balance
 * never below zero) immediately before the write, inside the caller's
 * transaction. The guard performs no commit itself; callers decide the sign
 * and magnitude of the delta (deposit positive, withdrawal negative, transfer
 * legs one of each).
 */

package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/store"
)

// applyBalanceDelta mutates the account's balance in place within the
// caller's transaction. The account must have been loaded under the same
// transaction (row-locked on postgres) so the check-then-write is not racy.
func applyBalanceDelta(ctx context.Context, tx store.Tx, account *domain.Account, delta decimal.Decimal) error {
	if delta.IsZero() {
		return domain.ValidationFailed("amount must not be zero")
	}
	if account.IsFrozen {
		return domain.BusinessRuleViolation("cannot modify the balance of a frozen account")
	}

	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return domain.BusinessRuleViolation("insufficient funds")
	}

	if err := tx.SetAccountBalance(ctx, account.ID, newBalance); err != nil {
		return err
	}
	account.Balance = newBalance
	return nil
}
