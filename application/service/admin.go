package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/search"
	"github.com/helixml/scholar/internal/config"
)

// ResetConfirmation is the token a reset request must carry.
const ResetConfirmation = "RESET"

// IndexHandle is the admin view of one ANN index: the search operations
// plus the identity needed for status reporting.
type IndexHandle interface {
	search.Index
	Name() string
	Dimension() int
	Metric() search.Metric
	Path() string
}

// ModelInfo describes the embedding backend for status reporting.
type ModelInfo interface {
	ModelName() string
	Runtime() string
	Available() bool
}

// WipeFunc erases every relational row. The admin service runs it during
// a reset before clearing the indices.
type WipeFunc func(ctx context.Context) error

// IndexStatus describes one live index.
type IndexStatus struct {
	Entries   int
	Path      string
	Metric    string
	Dimension int
}

// StatusReport is the admin status snapshot. A nil index status means
// that index is not initialized.
type StatusReport struct {
	ModelName      string
	ModelRuntime   string
	ModelAvailable bool
	AbstractCount  int
	AuthorCount    int
	AbstractIndex  *IndexStatus
	AuthorIndex    *IndexStatus
	ShowScores     bool
	ScoreMode      string
	LogLevel       string
}

// ReindexReport counts the vectors loaded into each rebuilt index.
type ReindexReport struct {
	Abstracts int
	Authors   int
}

// ConfigPatch carries runtime search setting changes. Nil fields stay
// unchanged.
type ConfigPatch struct {
	ShowScores *bool
	ScoreMode  *string
}

// Admin serves the operational endpoints: status, reindex, reset, and
// runtime configuration.
type Admin struct {
	abstracts     corpus.AbstractStore
	authors       corpus.AuthorStore
	abstractIndex IndexHandle
	authorIndex   IndexHandle
	model         ModelInfo
	settings      *Settings
	level         *slog.LevelVar
	wipe          WipeFunc
	logger        *slog.Logger
}

// NewAdmin creates an Admin service. Nil index handles and a nil model
// are tolerated; status reports them as uninitialized and reindex
// refuses to run.
func NewAdmin(
	abstracts corpus.AbstractStore,
	authors corpus.AuthorStore,
	abstractIndex IndexHandle,
	authorIndex IndexHandle,
	model ModelInfo,
	settings *Settings,
	level *slog.LevelVar,
	wipe WipeFunc,
	logger *slog.Logger,
) *Admin {
	if settings == nil {
		settings = NewSettings(false, config.DefaultScoreMode)
	}
	if level == nil {
		level = &slog.LevelVar{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{
		abstracts:     abstracts,
		authors:       authors,
		abstractIndex: abstractIndex,
		authorIndex:   authorIndex,
		model:         model,
		settings:      settings,
		level:         level,
		wipe:          wipe,
		logger:        logger,
	}
}

// Status reports the live state of the model, the stores, the indices,
// and the runtime settings.
func (s Admin) Status(ctx context.Context) (StatusReport, error) {
	report := StatusReport{
		ShowScores: s.settings.ShowScores(),
		ScoreMode:  s.settings.ScoreMode(),
		LogLevel:   s.level.Level().String(),
	}
	if s.model != nil {
		report.ModelName = s.model.ModelName()
		report.ModelRuntime = s.model.Runtime()
		report.ModelAvailable = s.model.Available()
	}

	var err error
	if report.AbstractCount, err = s.abstracts.Count(ctx); err != nil {
		return StatusReport{}, fmt.Errorf("count abstracts: %w", err)
	}
	if report.AuthorCount, err = s.authors.Count(ctx); err != nil {
		return StatusReport{}, fmt.Errorf("count authors: %w", err)
	}
	if report.AbstractIndex, err = indexStatus(ctx, s.abstractIndex); err != nil {
		return StatusReport{}, err
	}
	if report.AuthorIndex, err = indexStatus(ctx, s.authorIndex); err != nil {
		return StatusReport{}, err
	}
	return report, nil
}

// Reindex rebuilds both indices from the relational store and persists
// them to disk.
func (s Admin) Reindex(ctx context.Context) (ReindexReport, error) {
	if s.abstractIndex == nil || s.authorIndex == nil {
		return ReindexReport{}, ErrIndexUnavailable
	}

	abstracts, err := s.rebuild(ctx, s.abstractIndex, s.abstracts.VectoredRecords)
	if err != nil {
		return ReindexReport{}, err
	}
	authors, err := s.rebuild(ctx, s.authorIndex, s.authors.VectoredRecords)
	if err != nil {
		return ReindexReport{}, err
	}

	s.logger.Info("reindex complete", "abstracts", abstracts, "authors", authors)
	return ReindexReport{Abstracts: abstracts, Authors: authors}, nil
}

// Reset wipes the relational store and empties both indices in memory.
// The confirmation token must match ResetConfirmation exactly. Index
// files on disk are left alone until the next reindex or save.
func (s Admin) Reset(ctx context.Context, confirm string) error {
	if confirm != ResetConfirmation {
		return fmt.Errorf("%w: reset requires confirmation %q", ErrValidation, ResetConfirmation)
	}
	if s.wipe == nil {
		return fmt.Errorf("reset unavailable: no wipe configured")
	}

	if err := s.wipe(ctx); err != nil {
		return fmt.Errorf("wipe relational store: %w", err)
	}
	for _, handle := range []IndexHandle{s.abstractIndex, s.authorIndex} {
		if handle == nil {
			continue
		}
		if err := handle.BuildFromRecords(ctx, nil); err != nil {
			return fmt.Errorf("clear %s index: %w", handle.Name(), err)
		}
	}

	s.logger.Info("reset complete")
	return nil
}

// Configure applies runtime search setting changes and returns the
// resulting values. An invalid mode rejects the whole patch.
func (s Admin) Configure(patch ConfigPatch) (bool, string, error) {
	if patch.ScoreMode != nil {
		if err := s.settings.SetScoreMode(*patch.ScoreMode); err != nil {
			return s.settings.ShowScores(), s.settings.ScoreMode(), err
		}
	}
	if patch.ShowScores != nil {
		s.settings.SetShowScores(*patch.ShowScores)
	}

	show, mode := s.settings.ShowScores(), s.settings.ScoreMode()
	s.logger.Info("search settings updated", "show_scores", show, "score_mode", mode)
	return show, mode, nil
}

// SetLogLevel changes the process log level. It accepts the slog level
// names in any case.
func (s Admin) SetLogLevel(level string) (string, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return s.level.Level().String(), fmt.Errorf("%w: log level %q", ErrValidation, level)
	}
	s.level.Set(parsed)
	s.logger.Info("log level changed", "level", parsed.String())
	return parsed.String(), nil
}

// rebuild scans one side's vectors and replaces the index contents.
func (s Admin) rebuild(ctx context.Context, handle IndexHandle, records func(context.Context) ([]search.Record, error)) (int, error) {
	recs, err := records(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan %s records: %w", handle.Name(), err)
	}
	if err := handle.BuildFromRecords(ctx, recs); err != nil {
		return 0, fmt.Errorf("rebuild %s index: %w", handle.Name(), err)
	}
	if err := handle.Save(ctx); err != nil {
		return 0, fmt.Errorf("save %s index: %w", handle.Name(), err)
	}
	return len(recs), nil
}

// indexStatus snapshots one index handle, nil when uninitialized.
func indexStatus(ctx context.Context, handle IndexHandle) (*IndexStatus, error) {
	if handle == nil {
		return nil, nil
	}
	entries, err := handle.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count %s index: %w", handle.Name(), err)
	}
	return &IndexStatus{
		Entries:   entries,
		Path:      handle.Path(),
		Metric:    handle.Metric().String(),
		Dimension: handle.Dimension(),
	}, nil
}
