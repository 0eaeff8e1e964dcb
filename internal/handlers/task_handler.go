package handlers

import (
	"errors"
	"image/png"
	"net/http"
	"time"

	"ecoquest/internal/api"
	"ecoquest/internal/logging"
	"ecoquest/internal/mission"
	"ecoquest/internal/models"
	"ecoquest/internal/notify"
	"ecoquest/internal/service"
)

// SubmitAPI is the part of the API client the mission flows submit through
type SubmitAPI interface {
	mission.QuizSubmitter
	mission.PhotoSubmitter
}

// TaskHandler serves the task detail and quiz pages and drives their flows
type TaskHandler struct {
	students      *service.StudentService
	submit        SubmitAPI
	secretCodeFor func(taskID string) string
	redirectDelay time.Duration
	controllers   *Controllers
	views         *Views
	logger        logging.Logger
}

func NewTaskHandler(students *service.StudentService, submit SubmitAPI, secretCodeFor func(string) string, redirectDelay time.Duration, controllers *Controllers, views *Views, logger logging.Logger) *TaskHandler {
	return &TaskHandler{
		students:      students,
		submit:        submit,
		secretCodeFor: secretCodeFor,
		redirectDelay: redirectDelay,
		controllers:   controllers,
		views:         views,
		logger:        logger,
	}
}

func (h *TaskHandler) loadTask(w http.ResponseWriter, r *http.Request, taskID string) (*models.Task, bool) {
	task, err := h.students.Task(r.Context(), taskID)
	if errors.Is(err, service.ErrTaskNotFound) {
		n := notify.Error("That mission does not exist anymore.")
		h.views.Redirect(w, r, StudentDashboardPath, &n)
		return nil, false
	}
	if err != nil {
		n := noticeFor(h.logger, "loading task", err)
		h.views.Redirect(w, r, StudentDashboardPath, &n)
		return nil, false
	}
	return task, true
}

func kindOf(task models.Task) string {
	switch task.TaskType {
	case models.TaskTypePhotoUpload:
		return "photo"
	case models.TaskTypeSecretCode:
		return "secret"
	case models.TaskTypeQuiz:
		return "quiz"
	}
	return "unsupported"
}

// TaskPage renders a mission and starts its flow. Photo missions start the camera preview.
func (h *TaskHandler) TaskPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	task, ok := h.loadTask(w, r, pc.Param("id"))
	if !ok {
		return
	}
	data := TaskViewData{
		Layout: h.views.Layout(r, task.Title, pc.Identity, pc.Controller.ID),
		Task:   newTaskCard(*task),
		Kind:   kindOf(*task),
	}

	switch task.TaskType {
	case models.TaskTypeQuiz:
		// the quiz page owns the quiz flow
	case models.TaskTypePhotoUpload, models.TaskTypeSecretCode:
		flow, err := h.newFlow(pc.Controller, *task, pc.Identity.StudentID)
		if err != nil {
			data.Error = noticeFor(h.logger, "starting mission", err).Message
			break
		}
		pc.Controller.SetFlow(flow)
		if photo, ok := flow.(*mission.Photo); ok {
			if err := photo.Begin(pc.Controller.Context()); err != nil {
				data.CameraError = noticeFor(h.logger, "starting camera", err).Message
			}
		}
		data.State = string(flow.State())
	default:
		data.Error = "This kind of mission is not supported yet."
	}
	h.views.Render(w, http.StatusOK, "task_detail.tmpl", data)
}

func (h *TaskHandler) newFlow(ctrl *Controller, task models.Task, studentID string) (mission.Flow, error) {
	cam, dev := ctrl.Camera()
	return mission.New(task, studentID, mission.Deps{
		Camera:     cam,
		Device:     dev,
		SecretCode: h.secretCodeFor(task.ID),
		Logger:     h.logger,
	})
}

// QuizPage renders the questions of a quiz and starts a fresh quiz flow
func (h *TaskHandler) QuizPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	task, ok := h.loadTask(w, r, pc.Param("id"))
	if !ok {
		return
	}
	if !task.IsQuiz() {
		http.Redirect(w, r, "/student/tasks/"+task.ID, http.StatusSeeOther)
		return
	}

	data := QuizViewData{
		Layout: h.views.Layout(r, task.Title, pc.Identity, pc.Controller.ID),
		Task:   newTaskCard(*task),
	}
	flow, err := h.newFlow(pc.Controller, *task, pc.Identity.StudentID)
	if err != nil {
		data.Error = noticeFor(h.logger, "starting quiz", err).Message
	} else {
		pc.Controller.SetFlow(flow)
		data.Questions = newQuizQuestions(*task, nil, nil)
	}
	h.views.Render(w, http.StatusOK, "quiz.tmpl", data)
}

// flowFor finds the page's flow for the task in the URL. A missing one means
// the page was replaced or reaped; the student is sent back to start over.
func (h *TaskHandler) flowFor(w http.ResponseWriter, r *http.Request, page string) (*Controller, mission.Flow, bool) {
	taskID := r.PathValue("id")
	ctrl, ok := h.controllers.Get(SessionIDFromContext(r.Context()), r.FormValue("page_id"))
	if ok {
		if flow, ok := ctrl.Flow(taskID); ok {
			return ctrl, flow, true
		}
	}
	n := notify.Error(ErrPageExpired)
	h.views.Redirect(w, r, "/student/tasks/"+taskID+page, &n)
	return nil, nil, false
}

// nextPageID renews ctrl's page id for the document about to be rendered
func (h *TaskHandler) nextPageID(ctrl *Controller) string {
	if id, ok := h.controllers.Renew(ctrl); ok {
		return id
	}
	return ctrl.ID
}

func (h *TaskHandler) doneRefresh() *MetaRefresh {
	return &MetaRefresh{Seconds: int(h.redirectDelay.Round(time.Second) / time.Second), URL: StudentDashboardPath}
}

// SubmitQuiz records the selected options and submits the quiz
func (h *TaskHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	ctrl, flow, ok := h.flowFor(w, r, "/quiz")
	if !ok {
		return
	}
	quiz, ok := flow.(*mission.Quiz)
	if !ok {
		http.Redirect(w, r, "/student/tasks/"+flow.Task().ID, http.StatusSeeOther)
		return
	}

	task := quiz.Task()
	var err error
	for _, q := range task.Questions {
		if v := r.FormValue("q_" + q.ID); v != "" {
			if selErr := quiz.Select(q.ID, v); selErr != nil && err == nil {
				err = selErr
			}
		}
	}

	var result *api.QuizResult
	if err == nil {
		result, err = quiz.Submit(r.Context(), h.submit)
	}

	identity := IdentityFromContext(r.Context())
	data := QuizViewData{
		Layout: h.views.Layout(r, task.Title, identity, h.nextPageID(ctrl)),
		Task:   newTaskCard(task),
	}
	if err != nil {
		data.Error = noticeFor(h.logger, "submitting quiz", err).Message
		data.Questions = newQuizQuestions(task, quiz.Answers(), quiz.Unanswered())
		h.views.Render(w, http.StatusUnprocessableEntity, "quiz.tmpl", data)
		return
	}

	data.Done = true
	data.Message = quizMessage(result)
	if result != nil {
		data.Status = string(result.Status)
	}
	data.Refresh = h.doneRefresh()
	data.Notices = append(data.Notices, notify.Success(data.Message))
	h.views.Render(w, http.StatusOK, "quiz.tmpl", data)
}

func quizMessage(result *api.QuizResult) string {
	if result != nil && result.Message != "" {
		return result.Message
	}
	return "Quiz submitted!"
}

func ackMessage(ack *api.Ack, fallback string) string {
	if ack != nil && ack.Message != "" {
		return ack.Message
	}
	return fallback
}

func (h *TaskHandler) renderTask(w http.ResponseWriter, r *http.Request, ctrl *Controller, flow mission.Flow, status int, err error) {
	task := flow.Task()
	pageID := h.nextPageID(ctrl)
	data := TaskViewData{
		Layout: h.views.Layout(r, task.Title, IdentityFromContext(r.Context()), pageID),
		Task:   newTaskCard(task),
		Kind:   kindOf(task),
		State:  string(flow.State()),
	}
	if photo, ok := flow.(*mission.Photo); ok && photo.Still() != nil {
		data.HasStill = true
		data.StillURL = "/student/tasks/" + task.ID + "/still.png?page_id=" + pageID
	}
	if err != nil {
		data.Error = noticeFor(h.logger, "running mission", err).Message
	}
	if flow.State() == mission.StateSuccess {
		data.Done = true
		switch f := flow.(type) {
		case *mission.Photo:
			data.Message = ackMessage(f.Ack(), "Photo submitted! Your teacher will review it.")
		case *mission.SecretCode:
			data.Message = ackMessage(f.Ack(), "Correct code! Mission complete.")
		}
		data.Refresh = h.doneRefresh()
		data.Notices = append(data.Notices, notify.Success(data.Message))
	}
	h.views.Render(w, status, "task_detail.tmpl", data)
}

func statusFor(err error) int {
	if err != nil {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// Capture takes the still from the camera preview
func (h *TaskHandler) Capture(w http.ResponseWriter, r *http.Request) {
	ctrl, flow, ok := h.flowFor(w, r, "")
	if !ok {
		return
	}
	photo, ok := flow.(*mission.Photo)
	if !ok {
		http.Error(w, "This mission does not use the camera", http.StatusBadRequest)
		return
	}
	err := photo.Capture()
	h.renderTask(w, r, ctrl, flow, statusFor(err), err)
}

// Retake discards the still and restarts the preview
func (h *TaskHandler) Retake(w http.ResponseWriter, r *http.Request) {
	ctrl, flow, ok := h.flowFor(w, r, "")
	if !ok {
		return
	}
	photo, ok := flow.(*mission.Photo)
	if !ok {
		http.Error(w, "This mission does not use the camera", http.StatusBadRequest)
		return
	}
	err := photo.Retake(ctrl.Context())
	h.renderTask(w, r, ctrl, flow, statusFor(err), err)
}

// SubmitPhoto submits a captured photo mission
func (h *TaskHandler) SubmitPhoto(w http.ResponseWriter, r *http.Request) {
	ctrl, flow, ok := h.flowFor(w, r, "")
	if !ok {
		return
	}
	photo, ok := flow.(*mission.Photo)
	if !ok {
		http.Error(w, "This mission does not use the camera", http.StatusBadRequest)
		return
	}
	_, err := photo.Submit(r.Context(), h.submit)
	h.renderTask(w, r, ctrl, flow, statusFor(err), err)
}

// VerifyCode checks the secret code and completes the mission on a match
func (h *TaskHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}
	ctrl, flow, ok := h.flowFor(w, r, "")
	if !ok {
		return
	}
	secret, ok := flow.(*mission.SecretCode)
	if !ok {
		http.Error(w, "This mission has no secret code", http.StatusBadRequest)
		return
	}
	_, err := secret.Verify(r.Context(), r.FormValue("code"), h.submit)
	h.renderTask(w, r, ctrl, flow, statusFor(err), err)
}

// Still serves the captured photo for the preview thumbnail
func (h *TaskHandler) Still(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllers.Get(SessionIDFromContext(r.Context()), r.URL.Query().Get("page_id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	flow, ok := ctrl.Flow(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	photo, ok := flow.(*mission.Photo)
	if !ok || photo.Still() == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, photo.Still()); err != nil {
		h.logger.Warn("Error encoding captured photo", err)
	}
}
