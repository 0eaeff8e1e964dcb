package mission

import (
	"context"
	"strings"
	"sync"

	"ecoquest/internal/api"
	"ecoquest/internal/models"
	"ecoquest/internal/validation"
)

// SecretCode is entering -> verifying -> success. A failed submission goes
// back to entering.
type SecretCode struct {
	mu        sync.Mutex
	task      models.Task
	studentID string
	code      string
	state     State
	ack       *api.Ack
	lastErr   error
}

func NewSecretCode(task models.Task, studentID, code string) (*SecretCode, error) {
	if task.TaskType != models.TaskTypeSecretCode {
		return nil, ErrWrongTaskType
	}
	return &SecretCode{task: task, studentID: studentID, code: strings.TrimSpace(code), state: StateEntering}, nil
}

func (s *SecretCode) Task() models.Task { return s.task }

func (s *SecretCode) Close() {}

func (s *SecretCode) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SecretCode) Ack() *api.Ack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ack
}

func (s *SecretCode) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Matches compares input to the task code, ignoring case and surrounding space
func (s *SecretCode) Matches(input string) bool {
	return s.code != "" && strings.EqualFold(strings.TrimSpace(input), s.code)
}

// Verify submits the completion when input matches the code. A mismatch is a
// *validation.ValidationError and no call is made.
func (s *SecretCode) Verify(ctx context.Context, input string, submitter PhotoSubmitter) (*api.Ack, error) {
	s.mu.Lock()
	switch s.state {
	case StateSuccess:
		s.mu.Unlock()
		return nil, alreadyComplete()
	case StateVerifying:
		s.mu.Unlock()
		return nil, inProgress()
	}

	if strings.TrimSpace(input) == "" {
		s.mu.Unlock()
		return nil, validation.New("Enter the secret code.", validation.FieldError{Field: "code", Message: "required"})
	}
	if !s.Matches(input) {
		s.mu.Unlock()
		return nil, validation.New("That code is not right. Try again.", validation.FieldError{Field: "code", Message: "incorrect"})
	}
	s.state = StateVerifying
	s.mu.Unlock()

	ack, err := submitter.SubmitPhoto(ctx, s.studentID, s.task.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateEntering
		s.lastErr = err
		return nil, err
	}
	s.state = StateSuccess
	s.ack = ack
	s.lastErr = nil
	return ack, nil
}
