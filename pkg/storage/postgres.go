package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements MetricStore on PostgreSQL. Samples are append-only
// rows; compression folds old rows into gzip-compressed JSON batches in a
// side table.
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore opens a connection pool, verifies connectivity and applies
// the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, storageErr("open", fmt.Errorf("failed to ping database: %w", err))
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	if err := store.migrate(); err != nil {
		return nil, storageErr("migrate", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Store appends the snapshot's samples in one multi-row insert.
func (s *PostgresStore) Store(ctx context.Context, snapshot *models.ClusterSnapshot, ts time.Time) (int, error) {
	samples := Decompose(snapshot, ts)
	if len(samples) == 0 {
		return 0, nil
	}

	// One placeholder group per sample keeps ingest to a single round trip.
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`INSERT INTO samples (cluster_id, ts, category, name, value, metadata) VALUES `)
	for i, sample := range samples {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)

		var meta interface{}
		if len(sample.Metadata) > 0 {
			encoded, err := json.Marshal(sample.Metadata)
			if err != nil {
				return 0, storageErr("store", err)
			}
			meta = encoded
		}
		args = append(args, sample.ClusterID, sample.Timestamp, string(sample.Category), sample.Name, sample.Value, meta)
	}

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return 0, storageErr("store", err)
	}

	return len(samples), nil
}

// Query retrieves samples matching the filter, newest first.
func (s *PostgresStore) Query(ctx context.Context, q Query) ([]models.Sample, error) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`SELECT cluster_id, ts, category, name, value, metadata FROM samples`)

	var conds []string
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.ClusterID != "" {
		conds = append(conds, "cluster_id = "+arg(q.ClusterID))
	}
	if q.Category != "" {
		conds = append(conds, "category = "+arg(string(q.Category)))
	}
	if q.Name != "" {
		conds = append(conds, "name = "+arg(q.Name))
	}
	if !q.Start.IsZero() {
		conds = append(conds, "ts >= "+arg(q.Start))
	}
	if !q.End.IsZero() {
		conds = append(conds, "ts <= "+arg(q.End))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	sb.WriteString(" ORDER BY ts DESC LIMIT " + arg(limit))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr("query", err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, storageErr("query", err)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("query", err)
	}
	return samples, nil
}

// HistoricalWindow pulls the last N days of samples for one cluster and
// regroups them into per-metric series.
func (s *PostgresStore) HistoricalWindow(ctx context.Context, clusterID string, days int) (*models.HistoricalWindow, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	query := `
		SELECT cluster_id, ts, category, name, value, metadata
		FROM samples
		WHERE cluster_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC
	`

	rows, err := s.db.QueryContext(ctx, query, clusterID, start, end)
	if err != nil {
		return nil, storageErr("historical_window", err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, storageErr("historical_window", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("historical_window", err)
	}

	return buildWindow(clusterID, days, start, end, samples), nil
}

// Compress folds samples older than the cutoff into one gzip JSON batch and
// deletes the live rows, atomically. With nothing to fold it is a no-op.
func (s *PostgresStore) Compress(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("compress", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT cluster_id, ts, category, name, value, metadata
		FROM samples
		WHERE ts < $1
		ORDER BY ts ASC
	`, cutoff)
	if err != nil {
		return 0, storageErr("compress", err)
	}

	var samples []models.Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			rows.Close()
			return 0, storageErr("compress", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, storageErr("compress", err)
	}
	rows.Close()

	if len(samples) == 0 {
		return 0, nil
	}

	payload, err := compressSamples(samples)
	if err != nil {
		return 0, storageErr("compress", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sample_archives (id, cutoff_date, sample_count, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), cutoff.Format("2006-01-02"), len(samples), payload, time.Now().UTC())
	if err != nil {
		return 0, storageErr("compress", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE ts < $1`, cutoff); err != nil {
		return 0, storageErr("compress", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("compress", err)
	}

	return len(samples), nil
}

// Purge drops live samples past the retention horizon along with archive
// batches whose cutoff predates it.
func (s *PostgresStore) Purge(ctx context.Context, retentionDays int) (int, error) {
	horizon := time.Now().UTC().AddDate(0, 0, -retentionDays)

	result, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE ts < $1`, horizon)
	if err != nil {
		return 0, storageErr("purge", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("purge", err)
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM sample_archives WHERE cutoff_date < $1`, horizon.Format("2006-01-02"))
	if err != nil {
		return 0, storageErr("purge", err)
	}

	return int(deleted), nil
}

// Stats reports live and archived volume in one round trip each.
func (s *PostgresStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	stats := &models.StoreStats{}

	var oldest, newest sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(ts), MAX(ts) FROM samples
	`).Scan(&stats.Count, &oldest, &newest)
	if err != nil {
		return nil, storageErr("stats", err)
	}
	if oldest.Valid {
		stats.OldestTimestamp = oldest.Time
	}
	if newest.Valid {
		stats.NewestTimestamp = newest.Time
	}

	err = s.db.QueryRowContext(ctx, `SELECT pg_total_relation_size('samples')`).Scan(&stats.LiveSizeBytes)
	if err != nil {
		return nil, storageErr("stats", err)
	}

	var archived sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM sample_archives
	`).Scan(&stats.ArchiveBatches, &archived)
	if err != nil {
		return nil, storageErr("stats", err)
	}
	if archived.Valid {
		stats.ArchivedSizeBytes = archived.Int64
	}

	return stats, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSample(row rowScanner) (models.Sample, error) {
	var (
		sample   models.Sample
		category string
		meta     []byte
	)
	if err := row.Scan(&sample.ClusterID, &sample.Timestamp, &category, &sample.Name, &sample.Value, &meta); err != nil {
		return models.Sample{}, err
	}
	sample.Category = models.Category(category)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &sample.Metadata); err != nil {
			return models.Sample{}, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return sample, nil
}

// compressSamples encodes a batch as gzip-compressed JSON.
func compressSamples(samples []models.Sample) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(samples); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressSamples is the inverse of compressSamples.
func decompressSamples(payload []byte) ([]models.Sample, error) {
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var samples []models.Sample
	if err := json.NewDecoder(gz).Decode(&samples); err != nil {
		return nil, err
	}
	return samples, nil
}
