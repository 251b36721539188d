package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Table names. The local store keeps the same collections under a "zuco_"
// prefix.
const (
	TableUsers                 = "users"
	TableVehicles              = "vehicles"
	TableInquiries             = "inquiries"
	TableTransactions          = "transactions"
	TableAllocations           = "agent_allocations"
	TableTestDrives            = "test_drives"
	TableAgentSales            = "agent_sales"
	TableViewingBookings       = "viewing_bookings"
	TableQuoteRequests         = "quote_requests"
	TableAgentApplications     = "agent_applications"
	TableFinancingApplications = "financing_applications"
)

// LedgerTables lists the document tables in migration order.
func LedgerTables() []string {
	return []string{
		TableInquiries,
		TableTransactions,
		TableAllocations,
		TableTestDrives,
		TableAgentSales,
		TableViewingBookings,
		TableQuoteRequests,
		TableAgentApplications,
		TableFinancingApplications,
	}
}

// Ledger stores records of one kind as JSONB documents keyed by id.
type Ledger[T Record] struct {
	pool  *pgxpool.Pool
	table string
}

func NewLedger[T Record](pool *pgxpool.Pool, table string) *Ledger[T] {
	return &Ledger[T]{pool: pool, table: table}
}

func (l *Ledger[T]) ident() string {
	return pgx.Identifier{l.table}.Sanitize()
}

func (l *Ledger[T]) Create(ctx context.Context, rec T) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, l.ident())
	_, err := l.pool.Exec(ctx, query, rec.RecordID(), rec)
	return mapError(err)
}

func (l *Ledger[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, l.ident())
	if err := l.pool.QueryRow(ctx, query, id).Scan(&rec); err != nil {
		return rec, mapError(err)
	}
	return rec, nil
}

func (l *Ledger[T]) Update(ctx context.Context, rec T) error {
	query := fmt.Sprintf(`UPDATE %s SET doc = $2, updated_at = NOW() WHERE id = $1`, l.ident())
	cmd, err := l.pool.Exec(ctx, query, rec.RecordID(), rec)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the records matching f in insertion order.
func (l *Ledger[T]) List(ctx context.Context, f Filter) ([]T, error) {
	if f == nil {
		f = Filter{}
	}
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE doc @> $1::jsonb ORDER BY created_at, id`, l.ident())
	rows, err := l.pool.Query(ctx, query, f)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.table, err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowTo[T])
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", l.table, err)
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

func (l *Ledger[T]) IDs(ctx context.Context, prefix string) ([]string, error) {
	return listIDs(ctx, l.pool, l.table, prefix)
}
