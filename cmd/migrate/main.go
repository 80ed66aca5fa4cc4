/**
 * @description
 * One-shot schema migration for the ledger-service database. It creates the
 * customers, bank_accounts, and transfers tables when they do not exist yet.
 * Run it once against a fresh database before starting the service.
 *
 * @dependencies
 * - database/sql: Standard Go SQL interface.
 * - github.com/jackc/pgx/v5/stdlib: PostgreSQL driver registered under "pgx".
 */

package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id                   BIGSERIAL PRIMARY KEY,
    name                 TEXT NOT NULL,
    date_of_birth        DATE NOT NULL,
    daily_transfer_limit NUMERIC(18, 2) NOT NULL CHECK (daily_transfer_limit >= 0)
);

CREATE TABLE IF NOT EXISTS bank_accounts (
    id             BIGSERIAL PRIMARY KEY,
    customer_id    BIGINT NOT NULL REFERENCES customers (id) ON DELETE RESTRICT,
    account_number TEXT NOT NULL,
    is_frozen      BOOLEAN NOT NULL DEFAULT FALSE,
    balance        NUMERIC(18, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bank_accounts_account_number
    ON bank_accounts (account_number);

CREATE TABLE IF NOT EXISTS transfers (
    id              BIGSERIAL PRIMARY KEY,
    from_account_id BIGINT NOT NULL REFERENCES bank_accounts (id) ON DELETE RESTRICT,
    to_account_id   BIGINT NOT NULL REFERENCES bank_accounts (id) ON DELETE RESTRICT,
    amount          NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
    reference       VARCHAR(240),
    created_at_utc  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transfers_from_account_created_at
    ON transfers (from_account_id, created_at_utc);

CREATE INDEX IF NOT EXISTS idx_transfers_to_account_created_at
    ON transfers (to_account_id, created_at_utc);
`

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("level=fatal component=migrate msg=\"DATABASE_URL is not set\"")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("level=fatal component=migrate msg=\"failed to open db\" err=%v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("level=fatal component=migrate msg=\"failed to ping db\" err=%v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("level=fatal component=migrate msg=\"failed to execute migration\" err=%v", err)
	}

	log.Println("level=info component=migrate msg=\"migration executed successfully\"")
}
