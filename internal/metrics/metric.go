// Package metrics records how long each pipeline stage took and what it
// produced, and summarizes those records per job or per stage.
package metrics

import "time"

// Pipeline stages.
const (
	StageUpload  = "upload"
	StageStart   = "start"
	StageWait    = "wait"
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageSave    = "save"
)

// Metric is one stage of one run. Records are append-only.
type Metric struct {
	ID string `json:"id" yaml:"id"`

	// Attribution
	RunID    string `json:"run_id" yaml:"run_id"`
	JobID    string `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Stage    string `json:"stage" yaml:"stage"`
	Document string `json:"document,omitempty" yaml:"document,omitempty"`

	// Output
	Pages  int `json:"pages,omitempty" yaml:"pages,omitempty"`
	Blocks int `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Tables int `json:"tables,omitempty" yaml:"tables,omitempty"`

	Seconds float64 `json:"seconds" yaml:"seconds"`

	Success   bool   `json:"success" yaml:"success"`
	ErrorType string `json:"error_type,omitempty" yaml:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Duration returns Seconds as a time.Duration.
func (m Metric) Duration() time.Duration {
	return time.Duration(m.Seconds * float64(time.Second))
}
