package api

import (
	"context"
	"net/http"
	"net/url"

	"ecoquest/internal/models"
)

func post(body interface{}) RequestOptions {
	return RequestOptions{Method: http.MethodPost, Body: body}
}

// TeacherLogin authenticates a teacher by email and password
func (c *Client) TeacherLogin(ctx context.Context, req TeacherLoginRequest) (*TeacherLoginResponse, error) {
	var out TeacherLoginResponse
	if err := c.Request(ctx, "/api/teacher/login", post(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudentLogin authenticates a student by the decoded ID card value
func (c *Client) StudentLogin(ctx context.Context, card string) (*StudentLoginResponse, error) {
	var out StudentLoginResponse
	if err := c.Request(ctx, "/api/student/login", post(StudentLoginRequest{StudentIDCard: card}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudentProfile returns points and badges of a student
func (c *Client) StudentProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	var out models.StudentProfile
	if err := c.Request(ctx, "/api/student/"+url.PathEscape(studentID)+"/profile", RequestOptions{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns every available task
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	if err := c.Request(ctx, "/api/tasks", RequestOptions{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTask creates a photo_upload or secret_code task
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	var out models.Task
	if err := c.Request(ctx, "/api/tasks", post(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateQuiz creates a quiz task with its questions
func (c *Client) CreateQuiz(ctx context.Context, req CreateQuizRequest) (*models.Task, error) {
	var out models.Task
	if err := c.Request(ctx, "/api/quiz", post(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudentSubmissions returns the submission history of a student
func (c *Client) StudentSubmissions(ctx context.Context, studentID string) ([]models.Submission, error) {
	var out []models.Submission
	if err := c.Request(ctx, "/api/student/"+url.PathEscape(studentID)+"/submissions", RequestOptions{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitQuiz sends the selected option per question
func (c *Client) SubmitQuiz(ctx context.Context, studentID, taskID string, answers map[string]string) (*QuizResult, error) {
	var out QuizResult
	endpoint := "/api/student/" + url.PathEscape(studentID) + "/submit/quiz/" + url.PathEscape(taskID)
	if err := c.Request(ctx, endpoint, post(QuizSubmission{Answers: answers}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitPhoto records a photo or secret-code completion awaiting review
func (c *Client) SubmitPhoto(ctx context.Context, studentID, taskID string) (*Ack, error) {
	var out Ack
	endpoint := "/api/student/" + url.PathEscape(studentID) + "/submit/photo/" + url.PathEscape(taskID)
	if err := c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TeacherSubmissions returns the pending submissions of a teacher's students
func (c *Client) TeacherSubmissions(ctx context.Context, teacherID string) ([]models.Submission, error) {
	var out []models.Submission
	if err := c.Request(ctx, "/api/teacher/"+url.PathEscape(teacherID)+"/submissions", RequestOptions{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TeacherRoster returns the students of a teacher
func (c *Client) TeacherRoster(ctx context.Context, teacherID string) ([]models.RosterEntry, error) {
	var out []models.RosterEntry
	if err := c.Request(ctx, "/api/teacher/"+url.PathEscape(teacherID)+"/roster", RequestOptions{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddStudent registers a student under a teacher
func (c *Client) AddStudent(ctx context.Context, teacherID string, req AddStudentRequest) error {
	return c.Request(ctx, "/api/teacher/"+url.PathEscape(teacherID)+"/add-student", post(req), nil)
}

// ApproveSubmission approves a pending submission and awards its points
func (c *Client) ApproveSubmission(ctx context.Context, submissionID string) error {
	return c.Request(ctx, "/api/teacher/submissions/"+url.PathEscape(submissionID)+"/approve", RequestOptions{Method: http.MethodPost}, nil)
}

// RejectSubmission rejects a pending submission
func (c *Client) RejectSubmission(ctx context.Context, submissionID string) error {
	return c.Request(ctx, "/api/teacher/submissions/"+url.PathEscape(submissionID)+"/reject", RequestOptions{Method: http.MethodPost}, nil)
}

// Leaderboard returns students ordered by points
func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var out []models.LeaderboardEntry
	if err := c.Request(ctx, "/api/leaderboard", RequestOptions{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
