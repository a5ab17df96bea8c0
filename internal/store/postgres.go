package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

// Entry is one confirmed payment as mirrored to the journal.
type Entry struct {
	SessionID string
	Payer     domain.Account
	Tx        domain.Transaction
}

// Journal mirrors confirmed payments somewhere outside the process. It is write-only: the in-memory
// ledger stays the source of truth and nothing is read back on login.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Close()
}

// NopJournal discards entries. It is used when no database is configured.
type NopJournal struct{}

func (NopJournal) Record(context.Context, Entry) error { return nil }
func (NopJournal) Close()                              {}

const schema = `
CREATE TABLE IF NOT EXISTS payment_journal (
	tx_id             TEXT PRIMARY KEY,
	session_id        TEXT        NOT NULL,
	payer_name        TEXT        NOT NULL,
	payer_cnic        TEXT        NOT NULL,
	counterparty_name TEXT        NOT NULL,
	counterparty_cnic TEXT        NOT NULL,
	kind              TEXT        NOT NULL,
	amount            NUMERIC     NOT NULL CHECK (amount > 0),
	balance_after     NUMERIC     NOT NULL CHECK (balance_after >= 0),
	created_at        TIMESTAMPTZ NOT NULL
)`

// PostgresJournal appends entries to the payment_journal table.
type PostgresJournal struct {
	Db *pgxpool.Pool
}

func NewPostgresJournal(ctx context.Context, connString string) (*PostgresJournal, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresJournal{Db: pool}, nil
}

// EnsureSchema creates the journal table if it does not exist.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.Db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create payment_journal: %w", err)
	}
	return nil
}

// Record inserts e. Replaying the same transaction is a no-op.
func (j *PostgresJournal) Record(ctx context.Context, e Entry) error {
	_, err := j.Db.Exec(ctx,
		`INSERT INTO payment_journal
			(tx_id, session_id, payer_name, payer_cnic, counterparty_name, counterparty_cnic, kind, amount, balance_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10)
		 ON CONFLICT (tx_id) DO NOTHING`,
		e.Tx.ID, e.SessionID, e.Payer.Name, e.Payer.CNIC,
		e.Tx.CounterpartyName, e.Tx.CounterpartyCNIC, string(e.Tx.Kind),
		e.Tx.Amount.String(), e.Tx.BalanceAfter.String(), e.Tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("journal insert failed: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Close() {
	j.Db.Close()
}
