package handlers

import (
	"net/http"
	"strings"

	"ecoquest/internal/models"
)

// PageContext is what a page initializer gets from the router
type PageContext struct {
	SessionID  string
	Identity   *models.Identity
	Params     map[string]string
	Controller *Controller
}

// Param returns a wildcard value of the matched pattern
func (pc *PageContext) Param(name string) string {
	return pc.Params[name]
}

// PageServer serves every page GET through the router. Each page load
// replaces the session's page controller.
type PageServer struct {
	router      *Router
	mw          *Middleware
	controllers *Controllers
	auth        *AuthHandler
}

func NewPageServer(router *Router, mw *Middleware, controllers *Controllers, auth *AuthHandler) *PageServer {
	return &PageServer{router: router, mw: mw, controllers: controllers, auth: auth}
}

func (ps *PageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sid := SessionIDFromContext(r.Context())
	identity, err := ps.mw.Identity(r)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading session", err)
		return
	}

	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	page, params, ok := ps.router.Resolve(path)
	if !ok {
		// Only navigating to the landing page leaves the current page. Stray
		// requests such as /favicon.ico must not touch its controller.
		if path != LandingPath {
			http.NotFound(w, r)
			return
		}
		ps.controllers.Dispose(sid, "")
		ps.auth.Landing(w, r, identity)
		return
	}

	if page.Role != "" && !identity.Is(page.Role) {
		http.Redirect(w, r, LoginPathFor(page.Role), http.StatusSeeOther)
		return
	}

	pc := &PageContext{
		SessionID:  sid,
		Identity:   identity,
		Params:     params,
		Controller: ps.controllers.Install(sid),
	}
	page.Init(w, r, pc)
}

// PageTable lists every page of the front-end
func PageTable(auth *AuthHandler, teacher *TeacherHandler, student *StudentHandler, tasks *TaskHandler) []Page {
	return []Page{
		{Name: "teacher-login", Pattern: "/teacher/login", Init: auth.TeacherLoginPage},
		{Name: "student-login", Pattern: "/student/login", Init: auth.StudentLoginPage},
		{Name: "teacher-dashboard", Pattern: "/teacher/dashboard", Role: models.RoleTeacher, Init: teacher.DashboardPage},
		{Name: "confirm-review", Pattern: "/teacher/submissions/{id}/{action}/confirm", Role: models.RoleTeacher, Init: teacher.ConfirmReviewPage},
		{Name: "add-student", Pattern: "/teacher/students/new", Role: models.RoleTeacher, Init: teacher.AddStudentPage},
		{Name: "create-task", Pattern: "/teacher/tasks/new", Role: models.RoleTeacher, Init: teacher.CreateTaskPage},
		{Name: "create-quiz", Pattern: "/teacher/quizzes/new", Role: models.RoleTeacher, Init: teacher.CreateQuizPage},
		{Name: "student-dashboard", Pattern: "/student/dashboard", Role: models.RoleStudent, Init: student.DashboardPage},
		{Name: "task-detail", Pattern: "/student/tasks/{id}", Role: models.RoleStudent, Init: tasks.TaskPage},
		{Name: "quiz", Pattern: "/student/tasks/{id}/quiz", Role: models.RoleStudent, Init: tasks.QuizPage},
		{Name: "leaderboard", Pattern: "/leaderboard", Init: student.LeaderboardPage},
	}
}
