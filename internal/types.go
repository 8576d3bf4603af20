package internal

import (
	"time"

	"github.com/google/uuid"
)

// Run identifies one translate invocation in logs and debug output.
type Run struct {
	ID         string    `json:"id"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRun stamps a run with a fresh ID and the current time.
func NewRun(inputFile, outputFile, sourceLang, targetLang string) Run {
	return Run{
		ID:         uuid.NewString(),
		InputFile:  inputFile,
		OutputFile: outputFile,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Timestamp:  time.Now(),
	}
}
