package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ecoquest/internal/api"
	"ecoquest/internal/models"
	"ecoquest/internal/validation"
)

// CardCodePrefix starts every generated student ID card code
const CardCodePrefix = "ECO-"

// ClassroomAPI is the part of the API client used to manage a class
type ClassroomAPI interface {
	AddStudent(ctx context.Context, teacherID string, req api.AddStudentRequest) error
	CreateTask(ctx context.Context, req api.CreateTaskRequest) (*models.Task, error)
	CreateQuiz(ctx context.Context, req api.CreateQuizRequest) (*models.Task, error)
}

// ClassroomService validates and sends roster and task changes
type ClassroomService struct {
	api ClassroomAPI
}

func NewClassroomService(api ClassroomAPI) *ClassroomService {
	return &ClassroomService{api: api}
}

// GenerateCardCode returns a fresh card code: ECO- and 8 upper-case hex characters
func GenerateCardCode() string {
	id := uuid.New()
	return CardCodePrefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// AddStudent registers a student. Name and card are required before any call.
func (s *ClassroomService) AddStudent(ctx context.Context, teacherID string, req api.AddStudentRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.ClassName = strings.TrimSpace(req.ClassName)
	req.StudentIDCard = strings.TrimSpace(req.StudentIDCard)

	if req.FullName == "" || req.StudentIDCard == "" {
		verr := validation.New("Please fill name and scan ID.")
		if req.FullName == "" {
			verr.Fields = append(verr.Fields, validation.FieldError{Field: "full_name", Message: "full_name is a required field"})
		}
		if req.StudentIDCard == "" {
			verr.Fields = append(verr.Fields, validation.FieldError{Field: "student_id_card", Message: "student_id_card is a required field"})
		}
		return verr
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	return s.api.AddStudent(ctx, teacherID, req)
}

// CreateTask creates a photo or secret-code mission
func (s *ClassroomService) CreateTask(ctx context.Context, req api.CreateTaskRequest) (*models.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.api.CreateTask(ctx, req)
}

// CreateQuiz creates a quiz; each question needs three options and a correct answer
func (s *ClassroomService) CreateQuiz(ctx context.Context, req api.CreateQuizRequest) (*models.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	for i := range req.Questions {
		req.Questions[i].CorrectAnswer = models.NormalizeAnswer(req.Questions[i].CorrectAnswer)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.api.CreateQuiz(ctx, req)
}
