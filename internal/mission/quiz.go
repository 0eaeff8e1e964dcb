package mission

import (
	"context"
	"sync"

	"ecoquest/internal/api"
	"ecoquest/internal/models"
	"ecoquest/internal/validation"
)

// Quiz is answering -> submitting -> success. A failed submission goes back to
// answering with the error kept in LastError.
type Quiz struct {
	mu        sync.Mutex
	task      models.Task
	studentID string
	answers   map[string]string
	state     State
	result    *api.QuizResult
	lastErr   error
}

func NewQuiz(task models.Task, studentID string) (*Quiz, error) {
	if task.TaskType != models.TaskTypeQuiz {
		return nil, ErrWrongTaskType
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return &Quiz{
		task:      task,
		studentID: studentID,
		answers:   make(map[string]string, len(task.Questions)),
		state:     StateAnswering,
	}, nil
}

func (q *Quiz) Task() models.Task { return q.task }

func (q *Quiz) Close() {}

func (q *Quiz) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Result is the graded result once the quiz succeeded
func (q *Quiz) Result() *api.QuizResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.result
}

// LastError is the error of the last failed submission
func (q *Quiz) LastError() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// Select records option (A, B or C) for a question, replacing an earlier choice
func (q *Quiz) Select(questionID, option string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.state {
	case StateSuccess:
		return alreadyComplete()
	case StateSubmitting:
		return inProgress()
	}

	option = models.NormalizeAnswer(option)
	if !models.IsValidAnswer(option) {
		return validation.New("Choose A, B or C.", validation.FieldError{Field: questionID, Message: "choose A, B or C"})
	}
	if !q.hasQuestion(questionID) {
		return validation.New("That question is not part of this quiz.")
	}

	q.answers[questionID] = option
	return nil
}

func (q *Quiz) hasQuestion(id string) bool {
	for _, question := range q.task.Questions {
		if question.ID == id {
			return true
		}
	}
	return false
}

// Answers returns a copy of the selected options
func (q *Quiz) Answers() map[string]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]string, len(q.answers))
	for k, v := range q.answers {
		out[k] = v
	}
	return out
}

// Unanswered lists the questions without a selected option, in quiz order
func (q *Quiz) Unanswered() []models.Question {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unanswered()
}

func (q *Quiz) unanswered() []models.Question {
	var missing []models.Question
	for _, question := range q.task.Questions {
		if _, ok := q.answers[question.ID]; !ok {
			missing = append(missing, question)
		}
	}
	return missing
}

// Submit sends the answers when every question has one. Missing answers are a
// *validation.ValidationError and no call is made.
func (q *Quiz) Submit(ctx context.Context, submitter QuizSubmitter) (*api.QuizResult, error) {
	q.mu.Lock()
	switch q.state {
	case StateSuccess:
		q.mu.Unlock()
		return nil, alreadyComplete()
	case StateSubmitting:
		q.mu.Unlock()
		return nil, inProgress()
	}

	if missing := q.unanswered(); len(missing) > 0 {
		q.mu.Unlock()
		verr := validation.New("Please answer every question before submitting.")
		for _, question := range missing {
			verr.Fields = append(verr.Fields, validation.FieldError{Field: question.ID, Message: "not answered"})
		}
		return nil, verr
	}

	answers := make(map[string]string, len(q.answers))
	for k, v := range q.answers {
		answers[k] = v
	}
	q.state = StateSubmitting
	q.mu.Unlock()

	result, err := submitter.SubmitQuiz(ctx, q.studentID, q.task.ID, answers)

	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		q.state = StateAnswering
		q.lastErr = err
		return nil, err
	}
	q.state = StateSuccess
	q.result = result
	q.lastErr = nil
	return result, nil
}
