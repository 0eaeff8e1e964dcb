package handlers

const (
	SessionCookieName = "ecoquest_sid"

	TeacherLoginPath     = "/teacher/login"
	StudentLoginPath     = "/student/login"
	TeacherDashboardPath = "/teacher/dashboard"
	StudentDashboardPath = "/student/dashboard"
	LandingPath          = "/"
	FaviconPath          = "/static/img/favicon.svg"

	ErrInvalidFormData     = "Invalid form data"
	ErrInternalServerError = "Internal server error"
	ErrPageExpired         = "This page has expired. Please start again."
)
