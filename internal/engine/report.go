package engine

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a construction fared within one run.
type Outcome string

const (
	// OutcomeReused means a sufficient cache entry existed and no compute ran.
	OutcomeReused Outcome = "reused"
	// OutcomeComputed means the artifact was computed and saved.
	OutcomeComputed Outcome = "computed"
	// OutcomeFailed means compute or persistence failed on this construction.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the construction never ran because the batch
	// aborted upstream.
	OutcomeSkipped Outcome = "skipped"
)

// NodeResult is the per-construction record of a run.
type NodeResult struct {
	Hash       string  `json:"hash"`
	Label      string  `json:"label"`
	Precision  int     `json:"precision"`
	Outcome    Outcome `json:"outcome"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// Report is the outcome record of one batch run: one entry per construction
// in walk order plus totals. Reports serialize to JSON for audit trails and
// the CLI.
type Report struct {
	RunID      string       `json:"run_id"`
	Target     int          `json:"target"`
	Driver     string       `json:"driver"`
	Parallel   bool         `json:"parallel"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	WallMS     float64      `json:"wall_ms"`
	Nodes      []NodeResult `json:"nodes"`
	Reused     int          `json:"reused"`
	Computed   int          `json:"computed"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
}

func newReport(target int, driver string, parallel bool, started time.Time) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Target:    target,
		Driver:    driver,
		Parallel:  parallel,
		StartedAt: started,
	}
}

func (r *Report) add(res NodeResult) {
	r.Nodes = append(r.Nodes, res)
	switch res.Outcome {
	case OutcomeReused:
		r.Reused++
	case OutcomeComputed:
		r.Computed++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
}

func (r *Report) finish(now time.Time) {
	r.FinishedAt = now
	r.WallMS = float64(now.Sub(r.StartedAt)) / float64(time.Millisecond)
}
