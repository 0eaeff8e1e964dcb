package api

import "ecoquest/internal/models"

// TeacherLoginRequest is the body of POST /api/teacher/login
type TeacherLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TeacherLoginResponse is returned by a successful teacher login
type TeacherLoginResponse struct {
	Message   string `json:"message"`
	TeacherID string `json:"teacher_id"`
	FullName  string `json:"full_name"`
}

// Identity converts the login response into a session identity
func (r TeacherLoginResponse) Identity(email string) models.Identity {
	return models.NewTeacherIdentity(r.TeacherID, r.FullName, email)
}

// StudentLoginRequest is the body of POST /api/student/login
type StudentLoginRequest struct {
	StudentIDCard string `json:"student_id_card" validate:"required"`
}

// StudentLoginResponse is returned by a successful card login
type StudentLoginResponse struct {
	Message   string `json:"message"`
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
}

// Identity converts the login response into a session identity
func (r StudentLoginResponse) Identity() models.Identity {
	return models.NewStudentIdentity(r.StudentID, r.FullName)
}

// CreateTaskRequest is the body of POST /api/tasks (non-quiz tasks)
type CreateTaskRequest struct {
	Title        string          `json:"title" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=2000"`
	PointsReward int             `json:"points_reward" validate:"required,gt=0"`
	TaskType     models.TaskType `json:"task_type" validate:"required,tasktype,ne=quiz"`
}

// QuestionInput is one question of a new quiz
type QuestionInput struct {
	QuestionText  string `json:"question_text" validate:"required"`
	OptionA       string `json:"option_a" validate:"required"`
	OptionB       string `json:"option_b" validate:"required"`
	OptionC       string `json:"option_c" validate:"required"`
	CorrectAnswer string `json:"correct_answer" validate:"required,answer"`
}

// CreateQuizRequest is the body of POST /api/quiz
type CreateQuizRequest struct {
	Title        string          `json:"title" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=2000"`
	PointsReward int             `json:"points_reward" validate:"required,gt=0"`
	Questions    []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// AddStudentRequest is the body of POST /api/teacher/{id}/add-student
type AddStudentRequest struct {
	FullName      string `json:"full_name" validate:"required,max=120"`
	ClassName     string `json:"class_name" validate:"max=60"`
	StudentIDCard string `json:"student_id_card" validate:"required"`
}

// QuizSubmission is the body of POST /api/student/{id}/submit/quiz/{taskId}
type QuizSubmission struct {
	Answers map[string]string `json:"answers"`
}

// QuizResult is the graded result of a quiz submission
type QuizResult struct {
	Message string                  `json:"message"`
	Status  models.SubmissionStatus `json:"status"`
}

// Ack is the optional acknowledgement body of mutation endpoints
type Ack struct {
	Message string `json:"message"`
}
