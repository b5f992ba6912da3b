// Package logger is a standardized event logging framework for the shell.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *LogEntry) error

// LogEntry is a single event record. Exactly one of the event fields is set.
type LogEntry struct {
	TimestampMicros int64 `json:"timestamp_micros"`

	PipelineLaunch *PipelineLaunch `json:"pipeline_launch,omitempty"`
	StageFailure   *StageFailure   `json:"stage_failure,omitempty"`
	ProcessReaped  *ProcessReaped  `json:"process_reaped,omitempty"`
	TreeOpFailure  *TreeOpFailure  `json:"tree_op_failure,omitempty"`
}

// PipelineLaunch records a pipeline handed to the executor.
type PipelineLaunch struct {
	Stages     int  `json:"stages"`
	Background bool `json:"background"`
}

// StageFailure records a pipeline stage that couldn't be started.
type StageFailure struct {
	Stage int    `json:"stage"`
	Argv0 string `json:"argv0"`
	Error string `json:"error"`
}

// ProcessReaped records a background process whose exit was collected.
type ProcessReaped struct {
	PID int `json:"pid"`
}

// TreeOpFailure records a failed node in a recursive copy or delete.
type TreeOpFailure struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Logger captures shell interaction events.
type Logger struct {
	Record LogRecorder
}

// NewJSONLinesRecorder creates a Logger that exports events in newline
// delimited JSON object format.
func NewJSONLinesRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewNopLogger creates a Logger that discards all events.
func NewNopLogger() *Logger {
	return &Logger{Record: func(le *LogEntry) error { return nil }}
}

func (l *Logger) record(le *LogEntry) error {
	le.TimestampMicros = time.Now().UnixNano() / int64(time.Microsecond)
	return l.Record(le)
}

func (l *Logger) LogPipelineLaunch(stages int, background bool) error {
	return l.record(&LogEntry{PipelineLaunch: &PipelineLaunch{Stages: stages, Background: background}})
}

func (l *Logger) LogStageFailure(stage int, argv0 string, err error) error {
	return l.record(&LogEntry{StageFailure: &StageFailure{Stage: stage, Argv0: argv0, Error: err.Error()}})
}

func (l *Logger) LogProcessReaped(pid int) error {
	return l.record(&LogEntry{ProcessReaped: &ProcessReaped{PID: pid}})
}

func (l *Logger) LogTreeOpFailure(op, path string, err error) error {
	return l.record(&LogEntry{TreeOpFailure: &TreeOpFailure{Op: op, Path: path, Error: err.Error()}})
}
