package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sharpline/sharpline-go/internal/telemetry"
)

// TracedDB wraps a connection pool and records a span per database operation.
type TracedDB struct {
	Pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewTracedDB creates a new traced database connection.
func NewTracedDB(pool *pgxpool.Pool) *TracedDB {
	return &TracedDB{
		Pool:   pool,
		tracer: telemetry.GetDatabaseTracer(),
	}
}

func (db *TracedDB) startSpan(ctx context.Context, operation, sql string) (context.Context, trace.Span) {
	ctx, span := db.tracer.Start(ctx, "db."+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
	)
	if sql != "" {
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	return ctx, span
}

// Query executes a query and records its duration on the span.
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.startSpan(ctx, "query", sql)
	defer span.End()

	start := time.Now()
	rows, err := db.Pool.Query(ctx, sql, args...)
	span.SetAttributes(attribute.Int64("db.duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return rows, err
}

// QueryRow executes a query that returns a single row.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.startSpan(ctx, "query_row", sql)
	defer span.End()

	start := time.Now()
	row := db.Pool.QueryRow(ctx, sql, args...)
	span.SetAttributes(attribute.Int64("db.duration_ms", time.Since(start).Milliseconds()))
	return row
}

// Exec executes a query without returning rows.
func (db *TracedDB) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.startSpan(ctx, "exec", sql)
	defer span.End()

	start := time.Now()
	tag, err := db.Pool.Exec(ctx, sql, arguments...)
	span.SetAttributes(
		attribute.Int64("db.duration_ms", time.Since(start).Milliseconds()),
		attribute.Int64("db.rows_affected", tag.RowsAffected()),
	)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return tag, err
}

// Begin starts a transaction.
func (db *TracedDB) Begin(ctx context.Context) (pgx.Tx, error) {
	ctx, span := db.startSpan(ctx, "begin", "")
	defer span.End()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &TracedTx{Tx: tx, tracer: db.tracer}, nil
}

// BeginTx starts a transaction with options.
func (db *TracedDB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	ctx, span := db.startSpan(ctx, "begin_tx", "")
	defer span.End()

	tx, err := db.Pool.BeginTx(ctx, txOptions)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &TracedTx{Tx: tx, tracer: db.tracer}, nil
}

// Ping verifies the connection to the database.
func (db *TracedDB) Ping(ctx context.Context) error {
	ctx, span := db.startSpan(ctx, "ping", "")
	defer span.End()

	err := db.Pool.Ping(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// Close closes the database connection pool.
func (db *TracedDB) Close() {
	db.Pool.Close()
}

// TracedTx wraps a transaction so statements inside it are traced too.
type TracedTx struct {
	Tx     pgx.Tx
	tracer trace.Tracer
}

func (tx *TracedTx) startSpan(ctx context.Context, operation, sql string) (context.Context, trace.Span) {
	ctx, span := tx.tracer.Start(ctx, "db.tx."+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
	)
	if sql != "" {
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	return ctx, span
}

// Query executes a query within the transaction.
func (tx *TracedTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := tx.startSpan(ctx, "query", sql)
	defer span.End()

	rows, err := tx.Tx.Query(ctx, sql, args...)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return rows, err
}

// QueryRow executes a query that returns a single row within the transaction.
func (tx *TracedTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := tx.startSpan(ctx, "query_row", sql)
	defer span.End()

	return tx.Tx.QueryRow(ctx, sql, args...)
}

// Exec executes a query without returning rows within the transaction.
func (tx *TracedTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := tx.startSpan(ctx, "exec", sql)
	defer span.End()

	tag, err := tx.Tx.Exec(ctx, sql, args...)
	span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return tag, err
}

// Commit commits the transaction.
func (tx *TracedTx) Commit(ctx context.Context) error {
	ctx, span := tx.startSpan(ctx, "commit", "")
	defer span.End()

	err := tx.Tx.Commit(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// Rollback rolls back the transaction.
func (tx *TracedTx) Rollback(ctx context.Context) error {
	ctx, span := tx.startSpan(ctx, "rollback", "")
	defer span.End()

	err := tx.Tx.Rollback(ctx)
	if err != nil && err != pgx.ErrTxClosed {
		telemetry.RecordError(span, err)
	}
	return err
}

// Begin starts a nested transaction.
func (tx *TracedTx) Begin(ctx context.Context) (pgx.Tx, error) {
	ctx, span := tx.startSpan(ctx, "begin", "")
	defer span.End()

	nestedTx, err := tx.Tx.Begin(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &TracedTx{Tx: nestedTx, tracer: tx.tracer}, nil
}

// Conn returns the underlying connection.
func (tx *TracedTx) Conn() *pgx.Conn {
	return tx.Tx.Conn()
}

// CopyFrom copies data from a source to a destination table.
func (tx *TracedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	ctx, span := tx.startSpan(ctx, "copy_from", "")
	span.SetAttributes(attribute.String("db.table", tableName.Sanitize()))
	defer span.End()

	rowsAffected, err := tx.Tx.CopyFrom(ctx, tableName, columnNames, rowSrc)
	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return rowsAffected, err
}

// LargeObjects returns the large object manager.
func (tx *TracedTx) LargeObjects() pgx.LargeObjects {
	return tx.Tx.LargeObjects()
}

// Prepare prepares a statement.
func (tx *TracedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	ctx, span := tx.startSpan(ctx, "prepare", sql)
	defer span.End()

	stmt, err := tx.Tx.Prepare(ctx, name, sql)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return stmt, err
}

// SendBatch sends a batch of queries.
func (tx *TracedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	ctx, span := tx.startSpan(ctx, "send_batch", "")
	span.SetAttributes(attribute.Int("db.batch_size", b.Len()))
	defer span.End()

	return tx.Tx.SendBatch(ctx, b)
}

// RecordDatabaseError marks the current span as failed with the given operation.
func RecordDatabaseError(ctx context.Context, err error, operation string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, operation)
}

// AddDatabaseSpanAttributes attaches table and row-count attributes to the current span.
func AddDatabaseSpanAttributes(ctx context.Context, table string, rowsAffected int64) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("db.table", table),
		attribute.Int64("db.rows_affected", rowsAffected),
	)
}
