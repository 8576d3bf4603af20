// Package debug records what each stage saw and produced, per segment and
// attempt, for offline inspection of a run. The orchestrator receives a Sink
// explicitly; a nil or Nop sink records nothing.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one recorded text.
type Entry struct {
	Stage     string `json:"stage"`
	Segment   int    `json:"segment"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Attempt   int    `json:"attempt,omitempty"`
	Text      string `json:"-"`
	// Reason is the failure reason that led to this attempt, if any.
	Reason string `json:"reason,omitempty"`
}

// Sink receives segment inputs and outputs as the pipeline runs. Methods
// must be safe for concurrent use and must not fail the run.
type Sink interface {
	RecordSegmentInput(e Entry)
	RecordSegmentOutput(e Entry)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSegmentInput(Entry)  {}
func (Nop) RecordSegmentOutput(Entry) {}

// Dir writes every entry to its own file under root/runID and appends a
// line describing it to events.jsonl in the same directory.
type Dir struct {
	dir    string
	logger *zap.SugaredLogger

	mu     sync.Mutex
	events *os.File
}

// NewDir creates root/runID and opens its event log.
func NewDir(root, runID string, logger *zap.SugaredLogger) (*Dir, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	events, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open debug event log: %w", err)
	}
	return &Dir{dir: dir, logger: logger, events: events}, nil
}

// Path returns the run directory.
func (d *Dir) Path() string {
	return d.dir
}

func (d *Dir) RecordSegmentInput(e Entry) {
	d.record("input", e)
}

func (d *Dir) RecordSegmentOutput(e Entry) {
	d.record("output", e)
}

// Close closes the event log.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events.Close()
}

func (d *Dir) record(kind string, e Entry) {
	name := FileName(kind, e)

	if err := os.WriteFile(filepath.Join(d.dir, name), []byte(e.Text), 0o644); err != nil {
		d.logger.Warnw("debug sink write failed", "file", name, "error", err)
		return
	}

	line, err := json.Marshal(struct {
		Time string `json:"time"`
		Kind string `json:"kind"`
		File string `json:"file"`
		Entry
	}{time.Now().UTC().Format(time.RFC3339Nano), kind, name, e})
	if err != nil {
		d.logger.Warnw("debug sink encode failed", "file", name, "error", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.events.Write(append(line, '\n')); err != nil {
		d.logger.Warnw("debug sink event write failed", "file", name, "error", err)
	}
}

// FileName names the file for one entry, e.g.
// "seg003_L12-20_translate_a2.output.md".
func FileName(kind string, e Entry) string {
	name := fmt.Sprintf("seg%03d_L%d-%d", e.Segment, e.StartLine, e.EndLine)
	if e.Stage != "" {
		name += "_" + e.Stage
	}
	if e.Attempt > 0 {
		name += fmt.Sprintf("_a%d", e.Attempt)
	}
	return name + "." + kind + ".md"
}
