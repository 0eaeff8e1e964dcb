// Package mission holds the submission flows of the three task types.
package mission

import (
	"context"
	"errors"

	"ecoquest/internal/api"
	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/validation"
)

// State is the position of a flow in its state machine
type State string

const (
	StateAnswering  State = "answering"
	StatePreviewing State = "previewing"
	StateCaptured   State = "captured"
	StateEntering   State = "entering"
	StateSubmitting State = "submitting"
	StateVerifying  State = "verifying"
	StateSuccess    State = "success"
)

var (
	ErrWrongTaskType = errors.New("task type does not match this flow")
	ErrNoStudent     = errors.New("no student signed in")
	ErrNoCamera      = errors.New("photo missions need a camera")
)

// QuizSubmitter sends quiz answers
type QuizSubmitter interface {
	SubmitQuiz(ctx context.Context, studentID, taskID string, answers map[string]string) (*api.QuizResult, error)
}

// PhotoSubmitter records a photo or secret-code completion
type PhotoSubmitter interface {
	SubmitPhoto(ctx context.Context, studentID, taskID string) (*api.Ack, error)
}

// Flow is what the page controller keeps per task page
type Flow interface {
	Task() models.Task
	State() State
	// Close releases devices held by the flow
	Close()
}

func alreadyComplete() error {
	return validation.New("This mission is already complete.")
}

func inProgress() error {
	return validation.New("Your submission is already on its way.")
}

// New returns the flow for task's type
func New(task models.Task, studentID string, deps Deps) (Flow, error) {
	if studentID == "" {
		return nil, ErrNoStudent
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	var flow Flow
	var err error
	switch task.TaskType {
	case models.TaskTypeQuiz:
		flow, err = NewQuiz(task, studentID)
	case models.TaskTypePhotoUpload:
		flow, err = NewPhoto(task, studentID, deps.Camera, deps.Device, deps.Logger)
	case models.TaskTypeSecretCode:
		flow, err = NewSecretCode(task, studentID, deps.SecretCode)
	default:
		err = models.ErrUnknownTaskType
	}
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// Deps are the collaborators a flow may need
type Deps struct {
	Camera     Camera
	Device     CameraDevice
	SecretCode string
	Logger     logging.Logger
}
