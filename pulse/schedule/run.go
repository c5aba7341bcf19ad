package schedule

import "time"

// Run is one driver pass: materialize every active cadence, then advance the
// clock over open instances.
//
// Each pass writes a Run row so operators can see what the driver did:
// - Timing (triggered_at, started_at, completed_at, duration)
// - Outcome (cadences processed, instances created and advanced)
// - Failures (counts here, individual rows in run_failures)
type Run struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "running", "completed", "failed"

	// TriggeredAt is the instant the pass reasons about; StartedAt is wall time.
	TriggeredAt time.Time  `json:"triggered_at"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMs  *int       `json:"duration_ms,omitempty"`

	CadencesProcessed int `json:"cadences_processed"`
	InstancesCreated  int `json:"instances_created"`
	InstancesAdvanced int `json:"instances_advanced"`
	FailedCadences    int `json:"failed_cadences"`
	FailedInstances   int `json:"failed_instances"`

	ErrorMessage *string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Failures is populated in memory by the driver and by GetRun.
	Failures []Failure `json:"failures,omitempty"`
}

// Run status constants for type safety
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Failure stages.
const (
	StageMaterialize = "materialize"
	StageAdvance     = "advance"
)

// Failure is one cadence or instance a run could not process.
type Failure struct {
	Stage     string    `json:"stage"`
	SubjectID string    `json:"subject_id"` // cadence ID or instance ID, by stage
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
