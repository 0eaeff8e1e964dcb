package models

import (
	"errors"
	"strings"
)

// TaskType identifies which submission flow a task uses
type TaskType string

const (
	TaskTypeQuiz        TaskType = "quiz"
	TaskTypePhotoUpload TaskType = "photo_upload"
	TaskTypeSecretCode  TaskType = "secret_code"
)

var (
	ErrQuizWithoutQuestions = errors.New("quiz task has no questions")
	ErrQuestionsOnNonQuiz   = errors.New("only quiz tasks carry questions")
	ErrUnknownTaskType      = errors.New("unknown task type")
)

// Known reports whether the client has a submission flow for this type
func (t TaskType) Known() bool {
	switch t {
	case TaskTypeQuiz, TaskTypePhotoUpload, TaskTypeSecretCode:
		return true
	}
	return false
}

// Label is the human readable task type
func (t TaskType) Label() string {
	switch t {
	case TaskTypeQuiz:
		return "Quiz"
	case TaskTypePhotoUpload:
		return "Photo mission"
	case TaskTypeSecretCode:
		return "Secret code"
	}
	return string(t)
}

// Answer options
const (
	AnswerA = "A"
	AnswerB = "B"
	AnswerC = "C"
)

// IsValidAnswer reports whether s is one of A, B or C
func IsValidAnswer(s string) bool {
	return s == AnswerA || s == AnswerB || s == AnswerC
}

// NormalizeAnswer upper-cases and trims an answer option
func NormalizeAnswer(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Question is a multiple choice quiz question.
// CorrectAnswer is only populated when a teacher creates a quiz.
type Question struct {
	ID            string `json:"id,omitempty"`
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Option is one selectable answer of a question
type Option struct {
	Key  string
	Text string
}

// Options returns the answer options in display order
func (q Question) Options() []Option {
	return []Option{
		{Key: AnswerA, Text: q.OptionA},
		{Key: AnswerB, Text: q.OptionB},
		{Key: AnswerC, Text: q.OptionC},
	}
}

// Task is a mission a student completes for points
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PointsReward int        `json:"points_reward"`
	TaskType     TaskType   `json:"task_type"`
	Questions    []Question `json:"questions,omitempty"`
}

// IsQuiz reports whether the task is a quiz
func (t Task) IsQuiz() bool {
	return t.TaskType == TaskTypeQuiz
}

// Validate checks the questions/task type invariant
func (t Task) Validate() error {
	if !t.TaskType.Known() {
		return ErrUnknownTaskType
	}
	if t.IsQuiz() && len(t.Questions) == 0 {
		return ErrQuizWithoutQuestions
	}
	if !t.IsQuiz() && len(t.Questions) > 0 {
		return ErrQuestionsOnNonQuiz
	}
	return nil
}

// FindTask returns the task with the given id
func FindTask(tasks []Task, id string) (*Task, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], true
		}
	}
	return nil, false
}
