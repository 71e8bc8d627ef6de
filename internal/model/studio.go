package model

import "time"

// UploadedImage is the user's source photo. Exactly one exists at a time;
// a new upload replaces it wholesale and clears all generated results.
type UploadedImage struct {
	Data        []byte
	ContentType string
}

// GeneratedImage is one result of a generation or post-processing call.
// Successful post-processing mutates it in place (payload replaced); a failed
// call never touches the payload, only resets the transient flag.
type GeneratedImage struct {
	ID          string          `json:"id"`
	Data        []byte          `json:"-"`
	ContentType string          `json:"content_type"`
	Angle       AngleDefinition `json:"angle"`

	// Transient flags for in-flight post-processing.
	Upscaling          bool `json:"upscaling"`
	RemovingBackground bool `json:"removing_background"`
	ChangingBackground bool `json:"changing_background"`

	// PriorData holds the payload captured immediately before the first
	// successful upscale, kept for before/after comparison. A second upscale
	// never overwrites it — the original baseline is preserved.
	PriorData []byte `json:"-"`

	// Thumbnail is a small rendition for gallery listings.
	Thumbnail []byte `json:"-"`
}

// HasPrior reports whether a pre-upscale baseline exists.
func (g *GeneratedImage) HasPrior() bool {
	return len(g.PriorData) > 0
}

// UsageRecord is the persisted daily call counter: count is always read as
// "calls made so far on Date". A stored date other than today means the
// record is stale and counts as zero.
type UsageRecord struct {
	Count int    `db:"count" json:"count"`
	Date  string `db:"date" json:"date"`
}

// DateLayout is the calendar-day form used by UsageRecord.
const DateLayout = "2006-01-02"

// CallKind labels the four remote operations for the audit trail.
type CallKind string

const (
	CallGenerate         CallKind = "generate"
	CallUpscale          CallKind = "upscale"
	CallRemoveBackground CallKind = "remove_background"
	CallChangeBackground CallKind = "change_background"
)

// ApiCall tracks each call to the remote image service for cost monitoring.
type ApiCall struct {
	ID           int64     `db:"id" json:"id"`
	Kind         CallKind  `db:"kind" json:"kind"`
	Angle        string    `db:"angle" json:"angle"`
	Provider     string    `db:"provider" json:"provider"`
	Model        string    `db:"model" json:"model"`
	Success      bool      `db:"success" json:"success"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	DurationMs   *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RunState is the orchestrator's externally visible state for one run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunWaiting   RunState = "waiting"
	RunCompleted RunState = "completed"
	RunAborted   RunState = "aborted"
)

// RunStatus is a point-in-time snapshot of generation progress. It is purely
// observational output — control flow never reads it back.
type RunStatus struct {
	State          RunState `json:"state"`
	AngleIndex     int      `json:"angle_index"`
	Total          int      `json:"total"`
	Progress       float64  `json:"progress"`
	WaitingSeconds int      `json:"waiting_seconds"`
	Message        string   `json:"message"`
}
