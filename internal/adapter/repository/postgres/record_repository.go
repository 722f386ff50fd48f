package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/user/logsieve/internal/domain"
)

// RecordRepository implements domain.RecordSink for PostgreSQL.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordRepository creates a PostgreSQL record sink.
func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger.With("component", "postgres_repository")}
}

// WriteRecordBatch writes a batch of records using the COPY protocol into a
// temp table, then upserts into the main table keyed on record_id. The
// upsert keeps the sink idempotent when a batch is redelivered after a
// missed acknowledgement.
func (r *RecordRepository) WriteRecordBatch(ctx context.Context, records []domain.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op once Commit() succeeds.

	tempTableName := "records_temp_import"
	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+tempTableName+` (LIKE records INCLUDING DEFAULTS) ON COMMIT DROP;`)
	if err != nil {
		return err
	}

	stmt, err := txn.Prepare(pq.CopyIn(tempTableName, "record_id", "received_at", "ts", "source", "logger", "level", "message", "metadata"))
	if err != nil {
		return err
	}

	for _, record := range records {
		_, err = stmt.ExecContext(ctx, record.ID, record.ReceivedAt, record.Timestamp, record.Source, record.Logger, string(record.Level), record.Message, record.Metadata)
		if err != nil {
			_ = stmt.Close()
			return err
		}
	}

	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	upsertQuery := `
		INSERT INTO records (record_id, received_at, ts, source, logger, level, message, metadata)
		SELECT record_id, received_at, ts, source, logger, level, message, metadata FROM ` + tempTableName + `
		ON CONFLICT (record_id) DO UPDATE SET
			received_at = EXCLUDED.received_at,
			ts = EXCLUDED.ts,
			source = EXCLUDED.source,
			logger = EXCLUDED.logger,
			level = EXCLUDED.level,
			message = EXCLUDED.message,
			metadata = EXCLUDED.metadata;
	`
	if _, err = txn.ExecContext(ctx, upsertQuery); err != nil {
		return err
	}

	return txn.Commit()
}
