package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jonathan/job-alerts/internal/types"
)

// Dialect selects placeholder style, locking and migrations.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// DB is the database/sql backed Store.
type DB struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
	log     *zap.SugaredLogger
}

var _ Store = (*DB)(nil)

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the clock used for inserted_at and status_changed_at.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(d *DB) {
		if log != nil {
			d.log = log
		}
	}
}

// Open connects to the database named by driver and dsn.
// SQLite is opened with one connection, WAL and a busy timeout.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case DialectSQLite:
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	case DialectPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := New(db, dialect, opts...)
	d.log.Infow("Database opened", "dialect", dialect)
	return d, nil
}

// New wraps an existing handle.
func New(db *sql.DB, dialect Dialect, opts ...Option) *DB {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		placeholder = sq.Dollar
	}
	d := &DB{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// -----------------------------------------------------------------------------
// Postings
// -----------------------------------------------------------------------------

var offerColumns = []string{
	"external_id", "title", "company", "location", "location_code", "published_at",
	"description", "contract_type", "salary", "apply_url", "url", "score", "tags",
	"status", "inserted_at", "status_changed_at", "followup_acked", "notified_at",
	"latitude", "longitude",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (types.Posting, error) {
	var (
		p           types.Posting
		status      string
		tagsJSON    string
		publishedAt sql.NullTime
		notifiedAt  sql.NullTime
		lat, lon    sql.NullFloat64
	)
	err := row.Scan(&p.ExternalID, &p.Title, &p.Company, &p.Location, &p.LocationCode,
		&publishedAt, &p.Description, &p.ContractType, &p.Salary, &p.ApplyURL, &p.URL,
		&p.Score, &tagsJSON, &status, &p.InsertedAt, &p.StatusChangedAt,
		&p.FollowUpAcked, &notifiedAt, &lat, &lon)
	if err != nil {
		return types.Posting{}, err
	}

	p.Status = types.Status(status)
	p.InsertedAt = p.InsertedAt.UTC()
	p.StatusChangedAt = p.StatusChangedAt.UTC()
	if publishedAt.Valid {
		p.PublishedAt = publishedAt.Time.UTC()
	}
	if notifiedAt.Valid {
		at := notifiedAt.Time.UTC()
		p.NotifiedAt = &at
	}
	if lat.Valid && lon.Valid {
		p.Latitude, p.Longitude = &lat.Float64, &lon.Float64
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
			return types.Posting{}, fmt.Errorf("failed to unmarshal tags of %s: %w", p.ExternalID, err)
		}
		if len(p.Tags) == 0 {
			p.Tags = nil
		}
	}
	return p, nil
}

// Upsert inserts p with status new or merges its mutable fields into the stored
// record, then applies rescore (if any) to the result. Each call commits on its own.
func (d *DB) Upsert(ctx context.Context, p types.Posting, rescore Rescorer) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer d.rollback(tx)

	existing, err := d.get(ctx, tx, p.ExternalID, true)
	created := errors.Is(err, ErrNotFound)
	if err != nil && !created {
		return false, err
	}

	var record types.Posting
	if created {
		now := timestamp(d.now())
		record = p
		record.Status = types.StatusNew
		record.InsertedAt = now
		record.StatusChangedAt = now
		record.FollowUpAcked = 0
		record.NotifiedAt = nil
	} else {
		record = types.Merge(existing, p)
	}
	if rescore != nil {
		rescore(&record)
	}

	tagsJSON, err := marshalTags(record.Tags)
	if err != nil {
		return false, err
	}

	var query string
	var args []any
	if created {
		query, args, err = d.sb.Insert("offers").Columns(offerColumns...).Values(
			record.ExternalID, record.Title, record.Company, record.Location, record.LocationCode,
			nullTime(record.PublishedAt), record.Description, record.ContractType, record.Salary,
			record.ApplyURL, record.URL, record.Score, tagsJSON, string(record.Status),
			record.InsertedAt, record.StatusChangedAt, record.FollowUpAcked, nil,
			record.Latitude, record.Longitude,
		).ToSql()
	} else {
		query, args, err = d.sb.Update("offers").SetMap(map[string]any{
			"title":         record.Title,
			"company":       record.Company,
			"location":      record.Location,
			"location_code": record.LocationCode,
			"published_at":  nullTime(record.PublishedAt),
			"description":   record.Description,
			"contract_type": record.ContractType,
			"salary":        record.Salary,
			"apply_url":     record.ApplyURL,
			"url":           record.URL,
			"score":         record.Score,
			"tags":          tagsJSON,
			"latitude":      record.Latitude,
			"longitude":     record.Longitude,
		}).Where(sq.Eq{"external_id": record.ExternalID}).ToSql()
	}
	if err != nil {
		return false, fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("failed to upsert posting %s: %w", record.ExternalID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit posting %s: %w", record.ExternalID, err)
	}

	d.log.Debugw("Posting upserted",
		"external_id", record.ExternalID,
		"created", created,
		"score", record.Score,
	)
	return created, nil
}

// Get returns the posting with the given external ID or ErrNotFound.
func (d *DB) Get(ctx context.Context, id string) (types.Posting, error) {
	return d.get(ctx, d.db, id, false)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) get(ctx context.Context, q queryer, id string, forUpdate bool) (types.Posting, error) {
	b := d.sb.Select(offerColumns...).From("offers").Where(sq.Eq{"external_id": id})
	if forUpdate && d.dialect == DialectPostgres {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return types.Posting{}, fmt.Errorf("failed to build select: %w", err)
	}

	p, err := scanPosting(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Posting{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return types.Posting{}, fmt.Errorf("failed to get posting %s: %w", id, err)
	}
	return p, nil
}

// Query returns postings matching every set predicate, ordered by score DESC,
// published_at DESC and external_id ASC.
func (d *DB) Query(ctx context.Context, f Filters) ([]types.Posting, error) {
	b := d.sb.Select(offerColumns...).From("offers")

	if !f.InsertedFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"inserted_at": timestamp(f.InsertedFrom)})
	}
	if !f.InsertedTo.IsZero() {
		b = b.Where(sq.LtOrEq{"inserted_at": timestamp(f.InsertedTo)})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.MinScore != nil {
		b = b.Where(sq.GtOrEq{"score": *f.MinScore})
	}
	if f.IDs != nil {
		b = b.Where(sq.Eq{"external_id": f.IDs})
	}
	if f.UnnotifiedOnly {
		b = b.Where(sq.Eq{"notified_at": nil})
	}
	b = b.OrderBy("score DESC", "published_at DESC NULLS LAST", "external_id ASC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query postings: %w", err)
	}
	defer rows.Close()

	var postings []types.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate postings: %w", err)
	}
	return postings, nil
}

// SetStatus records a status transition. Setting the current status again still
// refreshes status_changed_at, which restarts the follow-up clock.
func (d *DB) SetStatus(ctx context.Context, id string, status types.Status) error {
	parsed, err := types.ParseStatus(string(status))
	if err != nil {
		return err
	}

	query, args, err := d.sb.Update("offers").
		Set("status", string(parsed)).
		Set("status_changed_at", timestamp(d.now())).
		Set("followup_acked", 0).
		Where(sq.Eq{"external_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build status update: %w", err)
	}

	if err := d.execOne(ctx, id, query, args); err != nil {
		return fmt.Errorf("failed to set status of %s: %w", id, err)
	}
	d.log.Infow("Status changed", "external_id", id, "status", parsed)
	return nil
}

// AckFollowUp marks reminders up to level as handled. Acknowledging a lower level
// than already recorded leaves the record unchanged.
func (d *DB) AckFollowUp(ctx context.Context, id string, level int) error {
	if level < 1 || level > 2 {
		return &types.ValidationError{Field: "level", Message: fmt.Sprintf("follow-up level must be 1 or 2, got %d", level)}
	}

	query, args, err := d.sb.Update("offers").
		Set("followup_acked", sq.Expr("CASE WHEN followup_acked < ? THEN ? ELSE followup_acked END", level, level)).
		Where(sq.Eq{"external_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build follow-up ack: %w", err)
	}

	if err := d.execOne(ctx, id, query, args); err != nil {
		return fmt.Errorf("failed to acknowledge follow-up of %s: %w", id, err)
	}
	return nil
}

// MarkNotified stamps notified_at on the given postings.
func (d *DB) MarkNotified(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := d.sb.Update("offers").
		Set("notified_at", timestamp(at)).
		Where(sq.Eq{"external_id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build notified update: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer d.rollback(tx)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark postings notified: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notified update: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Ingest runs
// -----------------------------------------------------------------------------

// RecordRun stores an audit row for one pipeline invocation.
func (d *DB) RecordRun(ctx context.Context, run RunRecord) error {
	query, args, err := d.sb.Insert("ingest_runs").
		Columns("id", "kind", "query", "started_at", "finished_at", "new_count", "updated_count",
			"skipped_count", "duplicate_count", "filtered_count", "error_count", "pages", "error").
		Values(run.ID.String(), run.Kind, run.Query, timestamp(run.StartedAt), timestamp(run.FinishedAt),
			run.New, run.Updated, run.Skipped, run.Duplicates, run.Filtered, run.Errors, run.Pages, run.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run insert: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// execOne runs a single-row update and maps zero affected rows to ErrNotFound.
func (d *DB) execOne(ctx context.Context, id, query string, args []any) error {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (d *DB) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		d.log.Warnw("Rollback failed", "error", err)
	}
}

// timestamp normalizes times to UTC at the precision both dialects store.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return timestamp(t)
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(b), nil
}
