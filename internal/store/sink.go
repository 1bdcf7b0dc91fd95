// Package store persists analysis reports.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/codecritic/internal/model"
)

// ErrNoAnalyses is returned by Latest when nothing has been stored yet
var ErrNoAnalyses = errors.New("no analyses stored")

// Sink receives finished reports
type Sink interface {
	// Save stores a report and its per-criterion results atomically
	Save(ctx context.Context, report *model.Report) error

	// Latest returns the most recent report, including the raw prompt and response
	Latest(ctx context.Context) (*model.Report, error)

	// Get returns one report by ID, or ErrNoAnalyses
	Get(ctx context.Context, id string) (*model.Report, error)

	Close() error
}

// Open returns the sink described by cfg. An empty driver disables persistence.
func Open(ctx context.Context, cfg model.StoreConfig) (Sink, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return Discard{}, nil
	case "sqlite", "sqlite3":
		return NewSQLite(ctx, cfg.DSN)
	case "postgres", "postgresql", "pgx":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}
}

// Discard drops every report
type Discard struct{}

func (Discard) Save(context.Context, *model.Report) error { return nil }

func (Discard) Latest(context.Context) (*model.Report, error) { return nil, ErrNoAnalyses }

func (Discard) Get(context.Context, string) (*model.Report, error) { return nil, ErrNoAnalyses }

func (Discard) Close() error { return nil }
