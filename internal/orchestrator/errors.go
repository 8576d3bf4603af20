package orchestrator

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/valpere/doctran/internal/retry"
)

var (
	// ErrConfiguration is returned by New for an unusable pipeline setup.
	ErrConfiguration = errors.New("pipeline configuration error")
	// ErrAborted marks a run stopped by the abort policy.
	ErrAborted = errors.New("pipeline aborted")
	// ErrReassemblyMismatch means the joined document does not have the
	// line count of the source. It points at a segmentation or joining
	// defect, never at a single transform.
	ErrReassemblyMismatch = errors.New("reassembled document does not match source line count")
	// ErrIncomplete marks a run canceled before every segment was finalized.
	ErrIncomplete = errors.New("pipeline incomplete")
)

// SegmentError describes a segment whose stage exhausted its attempts.
type SegmentError struct {
	Index     int
	StartLine int
	EndLine   int
	Stage     string
	Reason    string
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (lines %d-%d): stage %s exhausted retries: %s",
		e.Index, e.StartLine, e.EndLine, e.Stage, e.Reason)
}

func (e *SegmentError) Unwrap() error {
	return retry.ErrExhausted
}
