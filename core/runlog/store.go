// Package runlog persists one record per perturbation run so past runs can
// be listed and compared. Records are stored as JSON lines, rotated JSON
// lines or rows of a SQLite database.
package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/lddl/core/impact"
	"github.com/kilianp07/lddl/core/model"
)

// Record captures one run and its outcome.
type Record struct {
	RunID       string               `json:"run_id"`
	Timestamp   time.Time            `json:"timestamp"`
	Bus         int                  `json:"bus"`
	LoadID      string               `json:"load_id"`
	Shape       model.Shape          `json:"shape"`
	Scenario    model.ScenarioConfig `json:"scenario"`
	BaseLoadMW  float64              `json:"base_load_mw"`
	Breakpoints int                  `json:"breakpoints"`
	FinalTimeS  float64              `json:"final_time_s"`
	ThresholdMW float64              `json:"threshold_mw"`
	Summary     []impact.ZoneSummary `json:"summary,omitempty"`
	OutputDir   string               `json:"output_dir,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero values match all.
type Query struct {
	Start time.Time
	End   time.Time
	Bus   int
	Shape model.Shape
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Bus != 0 && r.Bus != q.Bus {
		return false
	}
	if q.Shape != "" && r.Shape != q.Shape {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and tunes a Store backend.
type Config struct {
	// Backend is one of jsonl, rotating or sqlite. Empty disables the log.
	Backend    string `json:"backend" koanf:"backend" validate:"omitempty,oneof=jsonl rotating sqlite"`
	Path       string `json:"path" koanf:"path"`
	MaxSizeMB  int    `json:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int    `json:"max_backups" koanf:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" koanf:"max_age_days"`
}

// Open creates the configured store. A nil store and nil error mean the
// run log is disabled.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown run log backend %q", cfg.Backend)
	}
}
