package service

import (
	"fmt"
	"sync"

	"github.com/helixml/scholar/internal/config"
)

// Score modes for search results. Cosine recomputes similarity between
// the query vector and the stored entity vector; distance transforms the
// index distance directly.
const (
	ScoreModeCosine   = "cosine"
	ScoreModeDistance = "distance"
)

// ValidScoreMode reports whether mode names a known score mode.
func ValidScoreMode(mode string) bool {
	return mode == ScoreModeCosine || mode == ScoreModeDistance
}

// Settings holds the runtime-tunable search options. Admin configuration
// mutates them while search requests read them concurrently.
type Settings struct {
	mu         sync.RWMutex
	showScores bool
	scoreMode  string
}

// NewSettings creates Settings. An unknown score mode falls back to the
// configured default.
func NewSettings(showScores bool, scoreMode string) *Settings {
	if !ValidScoreMode(scoreMode) {
		scoreMode = config.DefaultScoreMode
	}
	return &Settings{showScores: showScores, scoreMode: scoreMode}
}

// ShowScores reports whether search responses attach scores by default.
func (s *Settings) ShowScores() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showScores
}

// ScoreMode returns the default score mode.
func (s *Settings) ScoreMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoreMode
}

// SetShowScores toggles default score attachment.
func (s *Settings) SetShowScores(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showScores = show
}

// SetScoreMode sets the default score mode.
func (s *Settings) SetScoreMode(mode string) error {
	if !ValidScoreMode(mode) {
		return fmt.Errorf("%w: score mode %q", ErrValidation, mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoreMode = mode
	return nil
}
