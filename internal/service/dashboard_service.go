package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ecoquest/internal/logging"
	"ecoquest/internal/models"
)

// TeacherAPI is the part of the API client the teacher dashboard uses
type TeacherAPI interface {
	TeacherSubmissions(ctx context.Context, teacherID string) ([]models.Submission, error)
	TeacherRoster(ctx context.Context, teacherID string) ([]models.RosterEntry, error)
	ApproveSubmission(ctx context.Context, submissionID string) error
	RejectSubmission(ctx context.Context, submissionID string) error
}

// Dashboard is one consistent snapshot of a teacher's class
type Dashboard struct {
	Pending     []models.Submission
	Roster      []models.RosterEntry
	Analytics   Analytics
	RefreshedAt time.Time
}

// DashboardService loads the teacher dashboard and applies review decisions
type DashboardService struct {
	api    TeacherAPI
	email  *EmailService
	logger logging.Logger
	now    func() time.Time
}

func NewDashboardService(api TeacherAPI, email *EmailService, logger logging.Logger) *DashboardService {
	return &DashboardService{api: api, email: email, logger: logger, now: time.Now}
}

// Refresh fetches pending submissions and the roster concurrently. Either
// failure fails the whole refresh.
func (s *DashboardService) Refresh(ctx context.Context, teacherID string) (*Dashboard, error) {
	var submissions []models.Submission
	var roster []models.RosterEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		submissions, err = s.api.TeacherSubmissions(gctx, teacherID)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.api.TeacherRoster(gctx, teacherID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pending := make([]models.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub.StatusOrPending() == models.StatusPending {
			pending = append(pending, sub)
		}
	}

	return &Dashboard{
		Pending:     pending,
		Roster:      roster,
		Analytics:   ComputeAnalytics(roster),
		RefreshedAt: s.now(),
	}, nil
}

// Approve approves a submission, then reloads the dashboard once
func (s *DashboardService) Approve(ctx context.Context, teacherID, submissionID string) (*Dashboard, error) {
	if err := s.api.ApproveSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	s.logger.Info(fmt.Sprintf("Submission %s approved by teacher %s", submissionID, teacherID))
	return s.Refresh(ctx, teacherID)
}

// Reject rejects a submission, then reloads the dashboard once
func (s *DashboardService) Reject(ctx context.Context, teacherID, submissionID string) (*Dashboard, error) {
	if err := s.api.RejectSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	s.logger.Info(fmt.Sprintf("Submission %s rejected by teacher %s", submissionID, teacherID))
	return s.Refresh(ctx, teacherID)
}

// DigestEnabled reports whether SendDigest can deliver mail
func (s *DashboardService) DigestEnabled() bool {
	return s.email != nil && s.email.IsEnabled()
}

// SendDigest emails the teacher a summary of the current dashboard
func (s *DashboardService) SendDigest(ctx context.Context, teacher models.Identity) error {
	if !teacher.Is(models.RoleTeacher) || teacher.Email == "" {
		return fmt.Errorf("digest needs a signed-in teacher with an email address")
	}

	dash, err := s.Refresh(ctx, teacher.TeacherID)
	if err != nil {
		return err
	}
	if s.email == nil {
		return nil
	}
	return s.email.SendDigest(ctx, teacher.Email, teacher.FullName, dash)
}
