package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Recorder is a Logger that keeps every entry in memory, down to
// TraceLevel, so tests can inspect what a component logged.
type Recorder struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	core, logs := observer.New(TraceLevel)
	return &Recorder{Logger: Wrap(zap.New(core)), logs: logs}
}

// Entries returns everything recorded so far.
func (r *Recorder) Entries() []observer.LoggedEntry {
	return r.logs.All()
}

// Count returns how many entries carry exactly msg.
func (r *Recorder) Count(msg string) int {
	return r.logs.FilterMessage(msg).Len()
}

// Contains reports whether an entry at lvl has a message containing sub.
func (r *Recorder) Contains(lvl zapcore.Level, sub string) bool {
	for _, e := range r.logs.All() {
		if e.Level == lvl && strings.Contains(e.Message, sub) {
			return true
		}
	}
	return false
}

// Field returns the value of key on the first entry with message msg.
func (r *Recorder) Field(msg, key string) (any, bool) {
	for _, e := range r.logs.FilterMessage(msg).All() {
		if v, ok := e.ContextMap()[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Drain discards recorded entries and returns them.
func (r *Recorder) Drain() []observer.LoggedEntry {
	return r.logs.TakeAll()
}
