package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoquest/internal/api"
	"ecoquest/internal/models"
)

func TestStudentDashboardLoadsEverything(t *testing.T) {
	app := newStudentApp(t)
	app.api.profile = models.StudentProfile{FullName: "Ada", Points: 120}
	app.api.history = []models.Submission{{ID: "sub-1", TaskTitle: "Tree Planting Hero", Status: models.StatusApproved}}

	rec := app.do(http.MethodGet, StudentDashboardPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student=Ada points=120 tasks=3 history=1 error=", rec.Body.String())
}

func TestStudentDashboardIsAllOrNothing(t *testing.T) {
	app := newStudentApp(t)
	app.api.profile = models.StudentProfile{FullName: "Ada", Points: 120}
	app.api.historyErr = &api.APIError{Status: 500, Message: "History unavailable"}

	rec := app.do(http.MethodGet, StudentDashboardPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student= points=0 tasks=0 history=0 error=History unavailable", rec.Body.String())
}

func TestLeaderboardMarksSignedInStudent(t *testing.T) {
	app := newStudentApp(t)
	app.api.leaderboard = []models.LeaderboardEntry{{FullName: "Ada", Points: 300}, {FullName: "Bo", Points: 100}}

	rec := app.do(http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1:Ada*;2:Bo;", rec.Body.String())
}
