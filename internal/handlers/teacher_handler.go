package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ecoquest/internal/api"
	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/notify"
	"ecoquest/internal/service"
	"ecoquest/internal/validation"
)

const (
	defaultQuizQuestions = 3
	maxQuizQuestions     = 20
)

// TeacherHandler serves the teacher dashboard and classroom management pages
type TeacherHandler struct {
	dashboard   *service.DashboardService
	classroom   *service.ClassroomService
	cards       *service.CardService
	controllers *Controllers
	views       *Views
	logger      logging.Logger
}

func NewTeacherHandler(dashboard *service.DashboardService, classroom *service.ClassroomService, cards *service.CardService, controllers *Controllers, views *Views, logger logging.Logger) *TeacherHandler {
	return &TeacherHandler{
		dashboard:   dashboard,
		classroom:   classroom,
		cards:       cards,
		controllers: controllers,
		views:       views,
		logger:      logger,
	}
}

// DashboardPage loads pending submissions, the roster and the class analytics
func (h *TeacherHandler) DashboardPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	layout := h.views.Layout(r, "Teacher dashboard", pc.Identity, pc.Controller.ID)
	dash, err := h.dashboard.Refresh(r.Context(), pc.Identity.TeacherID)
	data := newTeacherDashboardView(layout, dash, h.dashboard.DigestEnabled())
	if err != nil {
		data.Error = noticeFor(h.logger, "loading teacher dashboard", err).Message
	}
	h.views.Render(w, http.StatusOK, "teacher_dashboard.tmpl", data)
}

func reviewLabel(action string) (string, bool) {
	switch action {
	case "approve":
		return "Approve", true
	case "reject":
		return "Reject", true
	}
	return "", false
}

// ConfirmReviewPage asks the teacher to confirm an approve or reject
func (h *TeacherHandler) ConfirmReviewPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	action := pc.Param("action")
	label, ok := reviewLabel(action)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := ConfirmReviewViewData{
		Layout:       h.views.Layout(r, label+" submission", pc.Identity, pc.Controller.ID),
		SubmissionID: pc.Param("id"),
		Action:       action,
		ActionLabel:  label,
	}
	h.views.Render(w, http.StatusOK, "confirm_review.tmpl", data)
}

// Approve approves a submission and renders the refreshed dashboard
func (h *TeacherHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approve")
}

// Reject rejects a submission and renders the refreshed dashboard
func (h *TeacherHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reject")
}

func (h *TeacherHandler) review(w http.ResponseWriter, r *http.Request, action string) {
	identity := IdentityFromContext(r.Context())
	submissionID := r.PathValue("id")

	var dash *service.Dashboard
	var err error
	if action == "approve" {
		dash, err = h.dashboard.Approve(r.Context(), identity.TeacherID, submissionID)
	} else {
		dash, err = h.dashboard.Reject(r.Context(), identity.TeacherID, submissionID)
	}
	if err != nil {
		n := noticeFor(h.logger, "reviewing submission", err)
		h.views.Redirect(w, r, TeacherDashboardPath, &n)
		return
	}

	layout := h.views.Layout(r, "Teacher dashboard", identity, "")
	if action == "approve" {
		layout.Notices = append(layout.Notices, notify.Success("Submission approved."))
	} else {
		layout.Notices = append(layout.Notices, notify.Info("Submission rejected."))
	}
	h.views.Render(w, http.StatusOK, "teacher_dashboard.tmpl", newTeacherDashboardView(layout, dash, h.dashboard.DigestEnabled()))
}

// SendDigest emails the dashboard summary to the signed-in teacher
func (h *TeacherHandler) SendDigest(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if err := h.dashboard.SendDigest(r.Context(), *identity); err != nil {
		n := noticeFor(h.logger, "sending digest", err)
		if !notify.Expected(err) {
			n = notify.Error("The digest could not be sent. Please try again later.")
		}
		h.views.Redirect(w, r, TeacherDashboardPath, &n)
		return
	}
	n := notify.Success("Digest sent to " + identity.Email + ".")
	h.views.Redirect(w, r, TeacherDashboardPath, &n)
}

// AddStudentPage renders the add-student form. The page scanner fills the card field.
func (h *TeacherHandler) AddStudentPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	data := AddStudentViewData{
		Layout:   h.views.Layout(r, "Add student", pc.Identity, pc.Controller.ID),
		LastCard: r.URL.Query().Get("card"),
	}
	if r.URL.Query().Get("generate") != "" {
		data.StudentIDCard = service.GenerateCardCode()
	}
	h.startCardScanner(pc.Controller, &data)
	h.views.Render(w, http.StatusOK, "add_student.tmpl", data)
}

func (h *TeacherHandler) startCardScanner(ctrl *Controller, data *AddStudentViewData) {
	err := ctrl.StartScanner(func(text string) {
		ctrl.Emit(Event{Type: "scan", Text: text})
		ctrl.EmitNotice(notify.Info("Card scanned."))
	})
	if err != nil {
		data.CameraError = noticeFor(h.logger, "starting scanner", err).Message
	}
}

// AddStudent registers a student with the scanned or generated card
func (h *TeacherHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	identity := IdentityFromContext(r.Context())

	req := api.AddStudentRequest{
		FullName:      r.FormValue("full_name"),
		ClassName:     r.FormValue("class_name"),
		StudentIDCard: r.FormValue("student_id_card"),
	}
	if err := h.classroom.AddStudent(r.Context(), identity.TeacherID, req); err != nil {
		ctrl := h.controllers.Install(SessionIDFromContext(r.Context()))
		data := AddStudentViewData{
			Layout:        h.views.Layout(r, "Add student", identity, ctrl.ID),
			FullName:      req.FullName,
			ClassName:     req.ClassName,
			StudentIDCard: req.StudentIDCard,
			Errors:        fieldErrors(err),
			Error:         noticeFor(h.logger, "adding student", err).Message,
		}
		h.startCardScanner(ctrl, &data)
		h.views.Render(w, http.StatusUnprocessableEntity, "add_student.tmpl", data)
		return
	}

	n := notify.Success(fmt.Sprintf("%s was added to your class.", strings.TrimSpace(req.FullName)))
	h.views.Redirect(w, r, "/teacher/students/new?card="+url.QueryEscape(strings.TrimSpace(req.StudentIDCard)), &n)
}

// CardPNG serves the printable QR code of a student card
func (h *TeacherHandler) CardPNG(w http.ResponseWriter, r *http.Request) {
	png, err := h.cards.PNG(r.URL.Query().Get("code"))
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering card QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(png)
}

// CreateTaskPage renders the photo / secret-code task form
func (h *TeacherHandler) CreateTaskPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	data := CreateTaskViewData{
		Layout:    h.views.Layout(r, "Create task", pc.Identity, pc.Controller.ID),
		TaskTypes: taskTypeOptions(models.TaskTypePhotoUpload),
	}
	h.views.Render(w, http.StatusOK, "create_task.tmpl", data)
}

// CreateTask validates and creates a non-quiz task
func (h *TeacherHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	points := r.FormValue("points_reward")
	req := api.CreateTaskRequest{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		PointsReward: parsePoints(points),
		TaskType:     models.TaskType(r.FormValue("task_type")),
	}

	task, err := h.classroom.CreateTask(r.Context(), req)
	if err != nil {
		data := CreateTaskViewData{
			Layout:       h.views.Layout(r, "Create task", IdentityFromContext(r.Context()), ""),
			Title:        req.Title,
			Description:  req.Description,
			PointsReward: points,
			TaskTypes:    taskTypeOptions(req.TaskType),
			Errors:       fieldErrors(err),
			Error:        noticeFor(h.logger, "creating task", err).Message,
		}
		h.views.Render(w, http.StatusUnprocessableEntity, "create_task.tmpl", data)
		return
	}

	n := notify.Success(fmt.Sprintf("Task %q created.", task.Title))
	h.views.Redirect(w, r, TeacherDashboardPath, &n)
}

// CreateQuizPage renders the quiz form with ?questions=N blank questions
func (h *TeacherHandler) CreateQuizPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	data := CreateQuizViewData{
		Layout:    h.views.Layout(r, "Create quiz", pc.Identity, pc.Controller.ID),
		Questions: blankQuestions(questionCount(r.URL.Query().Get("questions"))),
	}
	h.views.Render(w, http.StatusOK, "create_quiz.tmpl", data)
}

// CreateQuiz validates and creates a quiz. Entirely blank question blocks are ignored.
func (h *TeacherHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	forms := parseQuestionForms(r)
	points := r.FormValue("points_reward")
	req := api.CreateQuizRequest{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		PointsReward: parsePoints(points),
	}
	for _, q := range forms {
		if isBlankQuestion(q) {
			continue
		}
		req.Questions = append(req.Questions, api.QuestionInput{
			QuestionText:  strings.TrimSpace(q.QuestionText),
			OptionA:       strings.TrimSpace(q.OptionA),
			OptionB:       strings.TrimSpace(q.OptionB),
			OptionC:       strings.TrimSpace(q.OptionC),
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	task, err := h.classroom.CreateQuiz(r.Context(), req)
	if err != nil {
		data := CreateQuizViewData{
			Layout:       h.views.Layout(r, "Create quiz", IdentityFromContext(r.Context()), ""),
			Title:        req.Title,
			Description:  req.Description,
			PointsReward: points,
			Questions:    forms,
			Errors:       fieldErrors(err),
			Error:        noticeFor(h.logger, "creating quiz", err).Message,
		}
		h.views.Render(w, http.StatusUnprocessableEntity, "create_quiz.tmpl", data)
		return
	}

	n := notify.Success(fmt.Sprintf("Quiz %q created with %d questions.", task.Title, len(req.Questions)))
	h.views.Redirect(w, r, TeacherDashboardPath, &n)
}

func parsePoints(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func questionCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultQuizQuestions
	}
	if n > maxQuizQuestions {
		return maxQuizQuestions
	}
	return n
}

func parseQuestionForms(r *http.Request) []QuestionForm {
	forms := blankQuestions(questionCount(r.FormValue("question_count")))
	for i := range forms {
		forms[i].QuestionText = r.FormValue(questionField(i, "text"))
		forms[i].OptionA = r.FormValue(questionField(i, "a"))
		forms[i].OptionB = r.FormValue(questionField(i, "b"))
		forms[i].OptionC = r.FormValue(questionField(i, "c"))
		forms[i].CorrectAnswer = r.FormValue(questionField(i, "correct"))
	}
	return forms
}

func isBlankQuestion(q QuestionForm) bool {
	return strings.TrimSpace(q.QuestionText+q.OptionA+q.OptionB+q.OptionC) == ""
}

func fieldErrors(err error) map[string]string {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return verr.FieldMap()
	}
	return nil
}
