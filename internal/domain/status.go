package domain

import "strings"

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusReady   RunStatus = "ready"
	RunStatusFailed  RunStatus = "failed"
)

// FileJobStatus is the state of one store file within a run
type FileJobStatus string

const (
	FileJobQueued     FileJobStatus = "queued"
	FileJobProcessing FileJobStatus = "processing"
	FileJobCompleted  FileJobStatus = "completed"
	FileJobFailed     FileJobStatus = "failed"
)

// ResultVariant names an output view of a store
type ResultVariant string

const (
	VariantComplete  ResultVariant = "complete"
	VariantM2        ResultVariant = "m2"
	VariantEmergency ResultVariant = "emergency"
)

var runStatusLabels = map[RunStatus]string{
	RunStatusPending: "Pending",
	RunStatusRunning: "Running",
	RunStatusReady:   "Ready",
	RunStatusFailed:  "Failed",
}

// Label returns a human-readable label for a run status.
func (s RunStatus) Label() string {
	if label, ok := runStatusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// Terminal reports whether the run has finished, successfully or not.
func (s RunStatus) Terminal() bool {
	return s == RunStatusReady || s == RunStatusFailed
}

// ParseRunStatus returns the status for a given label (case-insensitive).
func ParseRunStatus(label string) (RunStatus, bool) {
	s := RunStatus(strings.ToLower(strings.TrimSpace(label)))
	_, ok := runStatusLabels[s]

	return s, ok
}

// ParseResultVariant returns the variant for a given name (case-insensitive).
func ParseResultVariant(name string) (ResultVariant, bool) {
	switch v := ResultVariant(strings.ToLower(strings.TrimSpace(name))); v {
	case VariantComplete, VariantM2, VariantEmergency:
		return v, true
	}
	return "", false
}
