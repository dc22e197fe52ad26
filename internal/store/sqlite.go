package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/virtue-stages/internal/domain"
	"github.com/ashureev/virtue-stages/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeAttempts  = 3
	writeBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the prune worker and request lookups overlap.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

var _ Repository = (*SQLiteStore)(nil)

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS assessments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		virtue_id TEXT NOT NULL,
		assessed_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_user_virtue
		ON assessments(user_id, virtue_id, assessed_at DESC, id DESC);

	CREATE TABLE IF NOT EXISTS defect_ratings (
		assessment_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		definition TEXT NOT NULL DEFAULT '',
		frequency_level INTEGER NOT NULL DEFAULT 0,
		harm_level TEXT NOT NULL DEFAULT 'None',
		PRIMARY KEY (assessment_id, position)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}
	return nil
}

// LookupLatestRatings returns the ratings of the newest assessment.
func (s *SQLiteStore) LookupLatestRatings(ctx context.Context, userID, virtueID string) ([]domain.DefectRating, error) {
	a, err := s.LatestAssessment(ctx, userID, virtueID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return []domain.DefectRating{}, nil
	}
	return a.Ratings, nil
}

// LatestAssessment returns the newest assessment for a user and virtue, or nil.
func (s *SQLiteStore) LatestAssessment(ctx context.Context, userID, virtueID string) (*domain.Assessment, error) {
	query := `
		SELECT id, assessed_at, created_at
		FROM assessments
		WHERE user_id = ? AND virtue_id = ?
		ORDER BY assessed_at DESC, id DESC
		LIMIT 1`

	var assessedAt, createdAt int64
	a := &domain.Assessment{UserID: userID, VirtueID: virtueID}
	err := s.db.QueryRowContext(ctx, query, userID, virtueID).Scan(&a.ID, &assessedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest assessment: %w", err)
	}
	a.AssessedAt = time.UnixMilli(assessedAt).UTC()
	a.CreatedAt = time.UnixMilli(createdAt).UTC()

	ratings, err := s.ratings(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Ratings = ratings
	return a, nil
}

func (s *SQLiteStore) ratings(ctx context.Context, assessmentID int64) ([]domain.DefectRating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, definition, frequency_level, harm_level
		FROM defect_ratings
		WHERE assessment_id = ?
		ORDER BY position`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query defect ratings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ratings := []domain.DefectRating{}
	for rows.Next() {
		var (
			r    domain.DefectRating
			freq int
			harm string
		)
		if err := rows.Scan(&r.Name, &r.Definition, &freq, &harm); err != nil {
			return nil, fmt.Errorf("scan defect rating: %w", err)
		}
		r.FrequencyLevel = domain.FrequencyLevel(freq)
		if r.HarmLevel, err = domain.ParseHarmLevel(harm); err != nil {
			return nil, fmt.Errorf("defect rating %q: %w", r.Name, err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// SaveAssessment inserts the assessment and its ratings in one transaction.
func (s *SQLiteStore) SaveAssessment(ctx context.Context, a *domain.Assessment) error {
	if a.UserID == "" || a.VirtueID == "" {
		return fmt.Errorf("save assessment: user and virtue ids are required")
	}
	now := time.Now().UTC()
	if a.AssessedAt.IsZero() {
		a.AssessedAt = now
	}
	a.CreatedAt = now

	return shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func() error {
		return s.saveAssessment(ctx, a)
	})
}

func (s *SQLiteStore) saveAssessment(ctx context.Context, a *domain.Assessment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO assessments (user_id, virtue_id, assessed_at, created_at)
		VALUES (?, ?, ?, ?)`,
		a.UserID, a.VirtueID, a.AssessedAt.UnixMilli(), a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("assessment id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO defect_ratings (assessment_id, position, name, definition, frequency_level, harm_level)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare defect rating insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range a.Ratings {
		if _, err := stmt.ExecContext(ctx, id, i, r.Name, r.Definition, int(r.FrequencyLevel), r.HarmLevel.String()); err != nil {
			return fmt.Errorf("insert defect rating %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment: %w", err)
	}
	a.ID = id
	return nil
}

// PruneAssessments keeps the newest keep assessments for every user and virtue.
func (s *SQLiteStore) PruneAssessments(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("prune assessments: keep must be at least 1, got %d", keep)
	}

	var deleted int64
	err := shared.RetryOnConflict(ctx, writeAttempts, writeBaseDelay, func() error {
		n, err := s.pruneAssessments(ctx, keep)
		deleted = n
		return err
	})
	return deleted, err
}

func (s *SQLiteStore) pruneAssessments(ctx context.Context, keep int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM assessments WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY user_id, virtue_id
					ORDER BY assessed_at DESC, id DESC
				) AS rn
				FROM assessments
			) WHERE rn > ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("delete old assessments: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM defect_ratings
		WHERE assessment_id NOT IN (SELECT id FROM assessments)`); err != nil {
		return 0, fmt.Errorf("delete orphaned ratings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return deleted, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
