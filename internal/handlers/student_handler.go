package handlers

import (
	"fmt"
	"net/http"

	"ecoquest/internal/logging"
	"ecoquest/internal/service"
)

// StudentHandler serves the student dashboard and the leaderboard
type StudentHandler struct {
	students *service.StudentService
	views    *Views
	logger   logging.Logger
}

func NewStudentHandler(students *service.StudentService, views *Views, logger logging.Logger) *StudentHandler {
	return &StudentHandler{students: students, views: views, logger: logger}
}

// DashboardPage loads profile, tasks and history; nothing is shown unless all three load
func (h *StudentHandler) DashboardPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	layout := h.views.Layout(r, "My missions", pc.Identity, pc.Controller.ID)
	dash, err := h.students.Dashboard(r.Context(), pc.Identity.StudentID)
	data := newStudentDashboardView(layout, dash)
	if err != nil {
		data.Error = noticeFor(h.logger, "loading student dashboard", err).Message
	} else if previous, decreased := pc.Controller.ObservePoints(dash.Profile.Points); decreased {
		h.logger.Warn(fmt.Sprintf("Points went down from %d to %d", previous, dash.Profile.Points), *pc.Identity)
	}
	h.views.Render(w, http.StatusOK, "student_dashboard.tmpl", data)
}

// LeaderboardPage renders the class ranking, marking the signed-in student
func (h *StudentHandler) LeaderboardPage(w http.ResponseWriter, r *http.Request, pc *PageContext) {
	data := LeaderboardViewData{Layout: h.views.Layout(r, "Leaderboard", pc.Identity, pc.Controller.ID)}
	ranked, err := h.students.Leaderboard(r.Context())
	if err != nil {
		data.Error = noticeFor(h.logger, "loading leaderboard", err).Message
	} else {
		data.Rows = newLeaderboardRows(ranked, pc.Identity)
	}
	h.views.Render(w, http.StatusOK, "leaderboard.tmpl", data)
}
