package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ecoquest/internal/api"
	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/notify"
	"ecoquest/internal/session"
	"ecoquest/internal/validation"
)

// AuthAPI is the part of the API client used to sign in
type AuthAPI interface {
	TeacherLogin(ctx context.Context, req api.TeacherLoginRequest) (*api.TeacherLoginResponse, error)
	StudentLogin(ctx context.Context, card string) (*api.StudentLoginResponse, error)
}

// AuthHandler handles teacher and student sign-in and logout
type AuthHandler struct {
	api          AuthAPI
	sessions     *session.Store
	controllers  *Controllers
	views        *Views
	logger       logging.Logger
	retryDelay   time.Duration
	loginTimeout time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authAPI AuthAPI, sessions *session.Store, controllers *Controllers, views *Views, logger logging.Logger, retryDelay time.Duration) *AuthHandler {
	return &AuthHandler{
		api:          authAPI,
		sessions:     sessions,
		controllers:  controllers,
		views:        views,
		logger:       logger,
		retryDelay:   retryDelay,
		loginTimeout: 30 * time.Second,
	}
}

// Landing renders the anonymous landing page
func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request, identity *models.Identity) {
	data := LandingViewData{Layout: h.views.Layout(r, "Welcome", identity, "")}
	h.views.Render(w, http.StatusOK, "landing.tmpl", data)
}

// TeacherLoginPage renders the teacher login form
func (h *AuthHandler) TeacherLoginPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	if pc.Identity.Is(models.RoleTeacher) {
		http.Redirect(w, r, TeacherDashboardPath, http.StatusSeeOther)
		return
	}
	data := TeacherLoginViewData{Layout: h.views.Layout(r, "Teacher login", pc.Identity, pc.Controller.ID)}
	h.views.Render(w, http.StatusOK, "teacher_login.tmpl", data)
}

// TeacherLogin handles the teacher login form submission
func (h *AuthHandler) TeacherLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	req := api.TeacherLoginRequest{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}

	identity, message, err := h.teacherLogin(r.Context(), SessionIDFromContext(r.Context()), req)
	if err != nil {
		data := TeacherLoginViewData{
			Layout: h.views.Layout(r, "Teacher login", nil, ""),
			Email:  req.Email,
			Error:  noticeFor(h.logger, "signing in teacher", err).Message,
		}
		h.views.Render(w, http.StatusOK, "teacher_login.tmpl", data)
		return
	}

	h.logger.Info("Teacher signed in", *identity)
	n := notify.Success(message)
	h.views.Redirect(w, r, TeacherDashboardPath, &n)
}

func (h *AuthHandler) teacherLogin(ctx context.Context, sid string, req api.TeacherLoginRequest) (*models.Identity, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "", err
	}
	resp, err := h.api.TeacherLogin(ctx, req)
	if err != nil {
		return nil, "", err
	}
	identity := resp.Identity(req.Email)
	if err := h.saveIdentity(ctx, sid, identity); err != nil {
		return nil, "", err
	}
	return &identity, welcome(resp.Message, identity.FullName), nil
}

// StudentLoginPage renders the card scan page and starts the scanner
func (h *AuthHandler) StudentLoginPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	if pc.Identity.Is(models.RoleStudent) {
		http.Redirect(w, r, StudentDashboardPath, http.StatusSeeOther)
		return
	}

	data := StudentLoginViewData{Layout: h.views.Layout(r, "Student login", pc.Identity, pc.Controller.ID)}
	if err := pc.Controller.StartScanner(h.onCardScanned(pc.Controller)); err != nil {
		data.CameraError = noticeFor(h.logger, "starting scanner", err).Message
	}
	h.views.Render(w, http.StatusOK, "student_login.tmpl", data)
}

// onCardScanned logs the student in with the decoded card. The scanner is
// stopped while the login runs and restarted after the retry delay on failure.
func (h *AuthHandler) onCardScanned(ctrl *Controller) func(text string) {
	var handle func(text string)
	handle = func(text string) {
		ctrl.StopScanner()

		ctx, cancel := context.WithTimeout(ctrl.Context(), h.loginTimeout)
		defer cancel()

		identity, message, err := h.studentLogin(ctx, ctrl.SessionID, text)
		if err != nil {
			ctrl.EmitNotice(noticeFor(h.logger, "signing in student", err))
			ctrl.RestartScannerAfter(h.retryDelay, handle)
			return
		}

		h.logger.Info("Student signed in by card", *identity)
		n := notify.Success(message)
		h.views.Flash(ctx, ctrl.SessionID, n)
		ctrl.Emit(Event{Type: "redirect", Redirect: StudentDashboardPath})
	}
	return handle
}

// StudentCardLogin handles a card code typed into the login form
func (h *AuthHandler) StudentCardLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	identity, message, err := h.studentLogin(r.Context(), SessionIDFromContext(r.Context()), r.FormValue("student_id_card"))
	if err != nil {
		n := noticeFor(h.logger, "signing in student", err)
		h.views.Redirect(w, r, StudentLoginPath, &n)
		return
	}

	h.logger.Info("Student signed in", *identity)
	n := notify.Success(message)
	h.views.Redirect(w, r, StudentDashboardPath, &n)
}

func (h *AuthHandler) studentLogin(ctx context.Context, sid, card string) (*models.Identity, string, error) {
	req := api.StudentLoginRequest{StudentIDCard: strings.TrimSpace(card)}
	if err := validation.Struct(req); err != nil {
		return nil, "", validation.New("Scan your student ID card.")
	}
	resp, err := h.api.StudentLogin(ctx, req.StudentIDCard)
	if err != nil {
		return nil, "", err
	}
	identity := resp.Identity()
	if err := h.saveIdentity(ctx, sid, identity); err != nil {
		return nil, "", err
	}
	return &identity, welcome(resp.Message, identity.FullName), nil
}

func (h *AuthHandler) saveIdentity(ctx context.Context, sid string, identity models.Identity) error {
	err := h.sessions.Scope(sid).SaveIdentity(ctx, identity)
	if errors.Is(err, session.ErrRoleChange) {
		return validation.New("Someone else is signed in on this device. Log out first.")
	}
	if errors.Is(err, models.ErrMissingSubjectID) || errors.Is(err, models.ErrMissingFullName) {
		return fmt.Errorf("login response was incomplete: %w", err)
	}
	return err
}

func welcome(message, name string) string {
	if name != "" {
		return fmt.Sprintf("Welcome, %s!", name)
	}
	if message != "" {
		return message
	}
	return "Welcome!"
}

// Logout clears the identity and goes back to the landing page
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := SessionIDFromContext(r.Context())
	h.controllers.Dispose(sid, "")
	if err := h.sessions.Scope(sid).Clear(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error clearing session", err)
		return
	}

	n := notify.Info("You have been logged out.")
	h.views.Redirect(w, r, LandingPath, &n)
}
