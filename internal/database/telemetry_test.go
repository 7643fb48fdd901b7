package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/sharpline/sharpline-go/internal/telemetry"
)

// TestTelemetry_NewTracedDB tests the creation of a traced database connection
func TestTelemetry_NewTracedDB(t *testing.T) {
	// Since we can't easily create a real pgxpool.Pool for testing,
	// we'll test with nil to verify the constructor behavior
	// In real usage, this would be called with a real pool
	var pool *pgxpool.Pool
	db := NewTracedDB(pool)

	assert.NotNil(t, db)
	assert.Equal(t, pool, db.Pool)
	assert.NotNil(t, db.tracer)
}

func newTestTracedTx(tx pgx.Tx) *TracedTx {
	return &TracedTx{Tx: tx, tracer: telemetry.GetDatabaseTracer()}
}

// MockTx implements pgx.Tx interface for testing
type MockTx struct {
	queryFunc    func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	queryRowFunc func(ctx context.Context, sql string, args ...interface{}) pgx.Row
	execFunc     func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	commitFunc   func(ctx context.Context) error
	rollbackFunc func(ctx context.Context) error
	beginFunc    func(ctx context.Context) (pgx.Tx, error)
}

func (m *MockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return nil, nil
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return nil
}

func (m *MockTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("INSERT 0"), nil
}

func (m *MockTx) Commit(ctx context.Context) error {
	if m.commitFunc != nil {
		return m.commitFunc(ctx)
	}
	return nil
}

func (m *MockTx) Rollback(ctx context.Context) error {
	if m.rollbackFunc != nil {
		return m.rollbackFunc(ctx)
	}
	return nil
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFunc != nil {
		return m.beginFunc(ctx)
	}
	return nil, nil
}

func (m *MockTx) Conn() *pgx.Conn {
	return nil
}

func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

// TestTelemetry_TracedTx_Query tests the TracedTx Query method
func TestTelemetry_TracedTx_Query(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx Query method - should not panic
	rows, err := tracedTx.Query(ctx, "SELECT * FROM odds_snapshots")
	assert.NoError(t, err)
	assert.Nil(t, rows)
}

// TestTelemetry_TracedTx_QueryRow tests the TracedTx QueryRow method
func TestTelemetry_TracedTx_QueryRow(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx QueryRow method - should not panic
	row := tracedTx.QueryRow(ctx, "SELECT * FROM odds_snapshots WHERE game_id = $1", "game-1")
	assert.Nil(t, row)
}

// TestTelemetry_TracedTx_Exec tests the TracedTx Exec method
func TestTelemetry_TracedTx_Exec(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx Exec method - should not panic
	tag, err := tracedTx.Exec(ctx, "INSERT INTO games (id) VALUES ($1)", "game-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), tag.RowsAffected())
}

// TestTelemetry_TracedTx_Exec_Error tests error propagation through the traced Exec
func TestTelemetry_TracedTx_Exec_Error(t *testing.T) {
	wantErr := fmt.Errorf("exec failed")
	tracedTx := newTestTracedTx(&MockTx{
		execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, wantErr
		},
	})

	_, err := tracedTx.Exec(context.Background(), "INSERT INTO games (id) VALUES ($1)", "game-1")
	assert.ErrorIs(t, err, wantErr)
}

// TestTelemetry_TracedTx_Commit tests the TracedTx Commit method
func TestTelemetry_TracedTx_Commit(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx Commit method - should not panic
	err := tracedTx.Commit(ctx)
	assert.NoError(t, err)
}

// TestTelemetry_TracedTx_Rollback tests the TracedTx Rollback method
func TestTelemetry_TracedTx_Rollback(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx Rollback method - should not panic
	err := tracedTx.Rollback(ctx)
	assert.NoError(t, err)
}

// TestTelemetry_TracedTx_Begin tests the TracedTx Begin method
func TestTelemetry_TracedTx_Begin(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx Begin method - should not panic
	tx, err := tracedTx.Begin(ctx)
	assert.NoError(t, err)
	// The method returns a TracedTx wrapper, which should not be nil even if the inner Tx is nil
	assert.NotNil(t, tx)
	// Verify it's a TracedTx type
	assert.IsType(t, &TracedTx{}, tx)
}

// TestTelemetry_TracedTx_Conn tests the TracedTx Conn method
func TestTelemetry_TracedTx_Conn(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})

	// Test TracedTx Conn method
	conn := tracedTx.Conn()
	assert.Nil(t, conn)
}

// TestTelemetry_TracedTx_CopyFrom tests the TracedTx CopyFrom method
func TestTelemetry_TracedTx_CopyFrom(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx CopyFrom method
	tableName := pgx.Identifier{"odds_snapshots"}
	columnNames := []string{"id", "game_id", "bookmaker"}
	data := [][]interface{}{
		{"a", "game-1", "pinnacle"},
		{"b", "game-1", "draftkings"},
	}
	rowSrc := pgx.CopyFromSlice(len(data), func(i int) ([]interface{}, error) {
		return data[i], nil
	})

	rowsAffected, err := tracedTx.CopyFrom(ctx, tableName, columnNames, rowSrc)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), rowsAffected)
}

// TestTelemetry_TracedTx_LargeObjects tests the TracedTx LargeObjects method
func TestTelemetry_TracedTx_LargeObjects(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})

	// Test TracedTx LargeObjects method
	lo := tracedTx.LargeObjects()
	assert.IsType(t, pgx.LargeObjects{}, lo)
}

// TestTelemetry_TracedTx_Prepare tests the TracedTx Prepare method
func TestTelemetry_TracedTx_Prepare(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx Prepare method
	stmt, err := tracedTx.Prepare(ctx, "get_snapshot", "SELECT * FROM odds_snapshots WHERE id = $1")
	assert.NoError(t, err)
	assert.Nil(t, stmt)
}

// TestTelemetry_TracedTx_SendBatch tests the TracedTx SendBatch method
func TestTelemetry_TracedTx_SendBatch(t *testing.T) {
	tracedTx := newTestTracedTx(&MockTx{})
	ctx := context.Background()

	// Test TracedTx SendBatch method
	batch := &pgx.Batch{}
	batch.Queue("SELECT * FROM odds_snapshots WHERE game_id = $1", "game-1")
	batch.Queue("UPDATE movement_alerts SET read = true WHERE id = $1", "a")

	results := tracedTx.SendBatch(ctx, batch)
	assert.Nil(t, results)
}

// TestTelemetry_RecordDatabaseError tests the RecordDatabaseError function
func TestTelemetry_RecordDatabaseError(t *testing.T) {
	ctx := context.Background()
	err := fmt.Errorf("test error")
	operation := "test_operation"

	// Test RecordDatabaseError function - should not panic without a recording span
	RecordDatabaseError(ctx, err, operation)
}

// TestTelemetry_AddDatabaseSpanAttributes tests the AddDatabaseSpanAttributes function
func TestTelemetry_AddDatabaseSpanAttributes(t *testing.T) {
	ctx := context.Background()
	table := "odds_snapshots"
	rowsAffected := int64(10)

	// Test AddDatabaseSpanAttributes function - should not panic without a recording span
	AddDatabaseSpanAttributes(ctx, table, rowsAffected)
}
