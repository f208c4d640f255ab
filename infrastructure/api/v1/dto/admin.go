package dto

// ModelStatus describes the embedding backend.
type ModelStatus struct {
	Name      string `json:"name"`
	Runtime   string `json:"runtime"`
	Available bool   `json:"available"`
}

// ResourceCounts holds per-resource row or entry counts.
type ResourceCounts struct {
	Abstracts int `json:"abstracts"`
	Authors   int `json:"authors"`
}

// IndexStatus describes one live vector index.
type IndexStatus struct {
	Entries   int    `json:"entries"`
	Path      string `json:"path"`
	Metric    string `json:"metric"`
	Dimension int    `json:"dimension"`
}

// IndexStatuses holds both index statuses; null means that index is not
// initialized.
type IndexStatuses struct {
	Abstracts *IndexStatus `json:"abstracts"`
	Authors   *IndexStatus `json:"authors"`
}

// SearchConfig holds the runtime scoring settings.
type SearchConfig struct {
	ShowScores bool   `json:"show_scores"`
	ScoreMode  string `json:"score_mode"`
}

// LoggerStatus reports the active log level.
type LoggerStatus struct {
	Level string `json:"level"`
}

// StatusResponse represents the admin status snapshot.
type StatusResponse struct {
	Model   ModelStatus    `json:"model"`
	Counts  ResourceCounts `json:"counts"`
	Indices IndexStatuses  `json:"indices"`
	Config  SearchConfig   `json:"config"`
	Logger  LoggerStatus   `json:"logger"`
}

// ConfigRequest represents a runtime configuration change. Nil fields
// stay unchanged.
type ConfigRequest struct {
	ShowScores *bool   `json:"show_scores"`
	ScoreMode  *string `json:"score_mode"`
}

// ConfigResponse echoes the effective configuration after a change.
type ConfigResponse struct {
	Status string       `json:"status"`
	Config SearchConfig `json:"config"`
}

// ReindexResponse reports the entry counts of the rebuilt indices.
type ReindexResponse struct {
	Status  string         `json:"status"`
	Indices ResourceCounts `json:"indices"`
}

// ResetRequest carries the confirmation phrase for a database wipe.
type ResetRequest struct {
	Confirm string `json:"confirm"`
}

// ResetResponse confirms a completed wipe.
type ResetResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Counts  ResourceCounts `json:"counts"`
	Indices ResourceCounts `json:"indices"`
}

// LogLevelRequest carries the level to switch the root logger to.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// LogLevelResponse confirms the applied log level.
type LogLevelResponse struct {
	Status   string `json:"status"`
	NewLevel string `json:"new_level"`
}
