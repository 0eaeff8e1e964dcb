package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoquest/internal/api"
	"ecoquest/internal/models"
)

type fakeStudentAPI struct {
	historyErr error
	board      []models.LeaderboardEntry
}

func (f *fakeStudentAPI) StudentProfile(_ context.Context, id string) (*models.StudentProfile, error) {
	return &models.StudentProfile{ID: id, FullName: "Ada", Points: 120}, nil
}

func (f *fakeStudentAPI) ListTasks(context.Context) ([]models.Task, error) {
	return []models.Task{
		{ID: "t1", Title: "Tree Planting Hero", TaskType: models.TaskTypePhotoUpload},
		{ID: "t2", Title: "Find the oak", TaskType: models.TaskTypeSecretCode},
	}, nil
}

func (f *fakeStudentAPI) StudentSubmissions(context.Context, string) ([]models.Submission, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return []models.Submission{{ID: "s1", TaskTitle: "Water Wise", Status: models.StatusApproved}}, nil
}

func (f *fakeStudentAPI) Leaderboard(context.Context) ([]models.LeaderboardEntry, error) {
	return f.board, nil
}

func TestStudentDashboard(t *testing.T) {
	svc := NewStudentService(&fakeStudentAPI{})

	dash, err := svc.Dashboard(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 120, dash.Profile.Points)
	assert.Len(t, dash.Tasks, 2)
	assert.Len(t, dash.History, 1)
}

func TestStudentDashboardAllOrNothing(t *testing.T) {
	svc := NewStudentService(&fakeStudentAPI{historyErr: &api.NetworkError{Method: "GET", URL: "x", Err: errors.New("refused")}})

	dash, err := svc.Dashboard(context.Background(), "s-1")
	assert.Nil(t, dash)
	var netErr *api.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestStudentTask(t *testing.T) {
	svc := NewStudentService(&fakeStudentAPI{})

	task, err := svc.Task(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, models.TaskTypeSecretCode, task.TaskType)

	_, err = svc.Task(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestLeaderboardRanks(t *testing.T) {
	svc := NewStudentService(&fakeStudentAPI{board: []models.LeaderboardEntry{
		{FullName: "Ada", Points: 300}, {FullName: "Ben", Points: 300}, {FullName: "Cy", Points: 10},
	}})

	ranked, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
}

func TestCardServicePNG(t *testing.T) {
	cards := NewCardService(0)

	png, err := cards.PNG("ECO-1A2B3C4D")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	_, err = cards.PNG("   ")
	assert.Error(t, err)
}
