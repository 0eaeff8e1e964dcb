package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"ecoquest/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

// StudentAPI is the part of the API client the student pages use
type StudentAPI interface {
	StudentProfile(ctx context.Context, studentID string) (*models.StudentProfile, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	StudentSubmissions(ctx context.Context, studentID string) ([]models.Submission, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}

// StudentDashboard is everything the student dashboard renders
type StudentDashboard struct {
	Profile models.StudentProfile
	Tasks   []models.Task
	History []models.Submission
}

type StudentService struct {
	api StudentAPI
}

func NewStudentService(api StudentAPI) *StudentService {
	return &StudentService{api: api}
}

// Dashboard loads profile, tasks and history concurrently; any failure fails all three
func (s *StudentService) Dashboard(ctx context.Context, studentID string) (*StudentDashboard, error) {
	var profile *models.StudentProfile
	var tasks []models.Task
	var history []models.Submission

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.api.StudentProfile(gctx, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = s.api.ListTasks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.api.StudentSubmissions(gctx, studentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &StudentDashboard{Profile: *profile, Tasks: tasks, History: history}, nil
}

// Task finds one task by id
func (s *StudentService) Task(ctx context.Context, taskID string) (*models.Task, error) {
	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	task, ok := models.FindTask(tasks, taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Leaderboard returns the ranked leaderboard
func (s *StudentService) Leaderboard(ctx context.Context) ([]models.RankedEntry, error) {
	entries, err := s.api.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return models.RankLeaderboard(entries), nil
}
