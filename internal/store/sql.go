package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/codecritic/internal/model"
)

//go:embed schema.sql
var schema string

const (
	defaultDBMaxOpenConns    = 10
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 30 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second

	// Fixed width so text ordering matches time ordering
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore is a Sink backed by database/sql
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLite opens (creating if needed) a SQLite database file
func NewSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; the batch runner saves from several goroutines
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, dialect: dialectSQLite}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres connects through the pgx database/sql driver
func NewPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres DSN is required when store driver is postgres")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(defaultDBMaxOpenConns)
	db.SetMaxIdleConns(defaultDBMaxIdleConns)
	db.SetConnMaxLifetime(defaultDBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultDBPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialectPostgres}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save implements Sink
func (s *SQLStore) Save(ctx context.Context, report *model.Report) error {
	if report == nil || report.ID == "" {
		return errors.New("report with an ID is required")
	}

	files, err := json.Marshal(report.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO analyses (
			id, created_at, duration, model_used,
			prompt_tokens, output_tokens, total_tokens,
			criteria_count, files, strategy,
			prompt, raw_response, processed_response
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		report.ID, report.CreatedAt.UTC().Format(timeLayout), report.Duration, report.ModelUsed,
		report.Usage.PromptTokens, report.Usage.OutputTokens, report.Usage.TotalTokens,
		report.CriteriaCount, string(files), report.Strategy,
		report.Prompt, report.RawResponse, report.ProcessedResponse,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	insertResult := s.rebind(`
		INSERT INTO analysis_results (analysis_id, position, criterion_id, canonical_name, content)
		VALUES (?, ?, ?, ?, ?)`)
	for i, r := range report.Results {
		if _, err := tx.ExecContext(ctx, insertResult, report.ID, i, r.CriterionID, r.CanonicalName, r.Content); err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis: %w", err)
	}
	return nil
}

// Latest implements Sink
func (s *SQLStore) Latest(ctx context.Context) (*model.Report, error) {
	return s.get(ctx, `
		SELECT id, created_at, duration, model_used,
			prompt_tokens, output_tokens, total_tokens,
			criteria_count, files, strategy,
			prompt, raw_response, processed_response
		FROM analyses
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)
}

// Get returns one report by ID
func (s *SQLStore) Get(ctx context.Context, id string) (*model.Report, error) {
	return s.get(ctx, `
		SELECT id, created_at, duration, model_used,
			prompt_tokens, output_tokens, total_tokens,
			criteria_count, files, strategy,
			prompt, raw_response, processed_response
		FROM analyses
		WHERE id = ?`, id)
}

func (s *SQLStore) get(ctx context.Context, query string, args ...any) (*model.Report, error) {
	var (
		r         model.Report
		createdAt string
		files     string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(
		&r.ID, &createdAt, &r.Duration, &r.ModelUsed,
		&r.Usage.PromptTokens, &r.Usage.OutputTokens, &r.Usage.TotalTokens,
		&r.CriteriaCount, &files, &r.Strategy,
		&r.Prompt, &r.RawResponse, &r.ProcessedResponse,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAnalyses
	}
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}

	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &r.Files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT criterion_id, canonical_name, content
		FROM analysis_results
		WHERE analysis_id = ?
		ORDER BY position`), r.ID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	r.Results = []model.ReconciledResult{}
	for rows.Next() {
		var res model.ReconciledResult
		if err := rows.Scan(&res.CriterionID, &res.CanonicalName, &res.Content); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Results = append(r.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return &r, nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
