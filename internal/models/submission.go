package models

import (
	"bytes"
	"fmt"
	"time"
)

// SubmissionStatus is the adjudication state of a submission
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// IsTerminal reports whether the status can no longer change
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submission is a student's attempt at a task
type Submission struct {
	ID             string           `json:"id"`
	StudentName    string           `json:"student_name"`
	TaskTitle      string           `json:"task_title"`
	Status         SubmissionStatus `json:"status,omitempty"`
	SubmittedAt    Timestamp        `json:"submitted_at"`
	SubmissionData string           `json:"submission_data,omitempty"`
}

// StatusOrPending returns the status, treating a missing one as pending.
// The teacher submissions endpoint only lists pending submissions and omits the field.
func (s Submission) StatusOrPending() SubmissionStatus {
	if s.Status == "" {
		return StatusPending
	}
	return s.Status
}

// Timestamp decodes the backend's datetimes, which may lack a timezone
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts RFC3339 and naive ISO-8601 datetimes (read as UTC)
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	s := string(b[1 : len(b)-1])
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON writes the timestamp as RFC3339, or null when unset
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}
