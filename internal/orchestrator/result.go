package orchestrator

import "github.com/valpere/doctran/internal/segmenter"

// State is the run-level state machine position.
type State string

const (
	StateInit            State = "init"
	StateSegmenting      State = "segmenting"
	StateProcessing      State = "processing"
	StateReassembling    State = "reassembling"
	StateFinalValidation State = "final_validation"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// SegmentStatus is the terminal state of one segment.
type SegmentStatus string

const (
	// StatusPending marks a segment the run never finalized; its source
	// text stands in for it.
	StatusPending  SegmentStatus = "pending"
	StatusDone     SegmentStatus = "done"
	StatusSkipped  SegmentStatus = "skipped"
	StatusDegraded SegmentStatus = "degraded"
	StatusFailed   SegmentStatus = "failed"
)

// ProcessedSegment is a segment after all its stages ran.
type ProcessedSegment struct {
	Segment     segmenter.Segment `json:"segment"`
	FinalText   string            `json:"final_text"`
	StageErrors []string          `json:"stage_errors,omitempty"`
	Status      SegmentStatus     `json:"status"`
	Attempts    int               `json:"attempts"`
}

// Result is the outcome of one Run.
type Result struct {
	Document string `json:"document"`
	// IsValid is true when every segment validated and the final document
	// matches the source line count.
	IsValid bool `json:"is_valid"`
	// Complete is false when the run was aborted or canceled; Document then
	// carries source text for the segments that were never finalized.
	Complete      bool               `json:"complete"`
	State         State              `json:"state"`
	SegmentErrors []string           `json:"segment_errors,omitempty"`
	Segments      []ProcessedSegment `json:"segments"`
	SourceLines   int                `json:"source_lines"`
	OutputLines   int                `json:"output_lines"`
}

// Count returns how many segments ended in status.
func (r *Result) Count(status SegmentStatus) int {
	n := 0
	for _, s := range r.Segments {
		if s.Status == status {
			n++
		}
	}
	return n
}
