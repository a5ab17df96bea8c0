package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

var (
	_ Journal = NopJournal{}
	_ Journal = (*MemoryJournal)(nil)
	_ Journal = (*PostgresJournal)(nil)
)

func TestMemoryJournalDeduplicates(t *testing.T) {
	t.Parallel()
	j := &MemoryJournal{}
	ctx := context.Background()

	e := Entry{SessionID: "s", Tx: domain.Transaction{ID: "tx-1", Amount: decimal.NewFromInt(5)}}
	require.NoError(t, j.Record(ctx, e))
	require.NoError(t, j.Record(ctx, e))
	require.NoError(t, j.Record(ctx, Entry{SessionID: "s", Tx: domain.Transaction{ID: "tx-2"}}))

	got := j.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, "tx-1", got[0].Tx.ID)
	assert.Equal(t, "tx-2", got[1].Tx.ID)
}

func TestNewPostgresJournalRejectsBadDSN(t *testing.T) {
	t.Parallel()
	_, err := NewPostgresJournal(context.Background(), "::not a dsn::")
	assert.Error(t, err)
}
