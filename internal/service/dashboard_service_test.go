package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoquest/internal/api"
	"ecoquest/internal/logging"
	"ecoquest/internal/models"
)

type fakeTeacherAPI struct {
	mu              sync.Mutex
	submissions     []models.Submission
	roster          []models.RosterEntry
	submissionCalls int
	rosterCalls     int
	approved        []string
	rejected        []string
	rosterErr       error
	approveErr      error
}

func (f *fakeTeacherAPI) TeacherSubmissions(context.Context, string) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissionCalls++
	return f.submissions, nil
}

func (f *fakeTeacherAPI) TeacherRoster(context.Context, string) ([]models.RosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	return f.roster, f.rosterErr
}

func (f *fakeTeacherAPI) ApproveSubmission(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.approveErr != nil {
		return f.approveErr
	}
	f.approved = append(f.approved, id)
	return nil
}

func (f *fakeTeacherAPI) RejectSubmission(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, id)
	return nil
}

func rosterWithPoints(points ...int) []models.RosterEntry {
	roster := make([]models.RosterEntry, len(points))
	for i, p := range points {
		roster[i] = models.RosterEntry{FullName: "Student", Points: p}
	}
	return roster
}

func TestComputeAnalytics(t *testing.T) {
	a := ComputeAnalytics(rosterWithPoints(50, 100, 101, 300, 301))

	assert.Equal(t, 2, a.Beginner)
	assert.Equal(t, 2, a.Intermediate)
	assert.Equal(t, 1, a.Advanced)
	assert.Equal(t, 5, a.Total)
	assert.InDelta(t, 170.4, a.AveragePoints, 0.001)
	assert.Equal(t, 40, a.Share(a.Beginner))

	empty := ComputeAnalytics(nil)
	assert.Equal(t, Analytics{}, empty)
	assert.Equal(t, 0, empty.Share(0))
}

func TestRefreshKeepsOnlyPending(t *testing.T) {
	fake := &fakeTeacherAPI{
		submissions: []models.Submission{
			{ID: "1", StudentName: "Ada", TaskTitle: "Tree Planting Hero"},
			{ID: "2", Status: models.StatusApproved},
			{ID: "3", Status: models.StatusPending},
		},
		roster: rosterWithPoints(10, 200),
	}
	svc := NewDashboardService(fake, nil, logging.Nop{})

	dash, err := svc.Refresh(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, dash.Pending, 2)
	assert.Equal(t, "1", dash.Pending[0].ID)
	assert.Equal(t, 2, dash.Analytics.Total)
}

func TestRefreshFailsAsAWhole(t *testing.T) {
	fake := &fakeTeacherAPI{rosterErr: &api.APIError{Status: 500, Message: "Roster unavailable"}}
	svc := NewDashboardService(fake, nil, logging.Nop{})

	dash, err := svc.Refresh(context.Background(), "t-1")
	assert.Nil(t, dash)
	var apiErr *api.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestApproveRejectRefreshExactlyOnce(t *testing.T) {
	fake := &fakeTeacherAPI{roster: rosterWithPoints(5)}
	svc := NewDashboardService(fake, nil, logging.Nop{})
	ctx := context.Background()

	_, err := svc.Approve(ctx, "t-1", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.submissionCalls)
	assert.Equal(t, 1, fake.rosterCalls)

	_, err = svc.Reject(ctx, "t-1", "sub-2")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.submissionCalls)
	assert.Equal(t, 2, fake.rosterCalls)

	assert.Equal(t, []string{"sub-1"}, fake.approved)
	assert.Equal(t, []string{"sub-2"}, fake.rejected)
}

func TestApproveFailureSkipsRefresh(t *testing.T) {
	fake := &fakeTeacherAPI{approveErr: &api.APIError{Status: 404, Message: "Submission not found"}}
	svc := NewDashboardService(fake, nil, logging.Nop{})

	_, err := svc.Approve(context.Background(), "t-1", "missing")
	require.Error(t, err)
	assert.Equal(t, 0, fake.submissionCalls)
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sesv2.SendEmailOutput{}, nil
}

func TestSendDigest(t *testing.T) {
	fake := &fakeTeacherAPI{
		submissions: []models.Submission{{ID: "1"}, {ID: "2"}},
		roster:      rosterWithPoints(20, 150, 400),
	}
	ses := &fakeSES{}
	email := &EmailService{client: ses, fromEmail: "noreply@ecoquest.app", fromName: "EcoQuest", appBaseURL: "https://eco.example", enabled: true}
	svc := NewDashboardService(fake, email, logging.Nop{})

	teacher := models.NewTeacherIdentity("t-1", "Ms Green", "green@school.org")
	require.NoError(t, svc.SendDigest(context.Background(), teacher))

	require.Len(t, ses.inputs, 1)
	in := ses.inputs[0]
	assert.Equal(t, []string{"green@school.org"}, in.Destination.ToAddresses)
	assert.Equal(t, "EcoQuest <noreply@ecoquest.app>", *in.FromEmailAddress)
	assert.Equal(t, "EcoQuest: 2 submission(s) to review", *in.Content.Simple.Subject.Data)
	assert.True(t, strings.Contains(*in.Content.Simple.Body.Text.Data, "Advanced (300+ points): 1"))
	assert.True(t, strings.Contains(*in.Content.Simple.Body.Html.Data, "https://eco.example/teacher/dashboard"))
}

func TestSendDigestDisabledOrNoEmail(t *testing.T) {
	fake := &fakeTeacherAPI{}
	email, err := NewEmailService(context.Background(), "us-east-1", "", "EcoQuest", "http://localhost", false)
	require.NoError(t, err)
	svc := NewDashboardService(fake, email, logging.Nop{})

	assert.False(t, svc.DigestEnabled())
	assert.NoError(t, svc.SendDigest(context.Background(), models.NewTeacherIdentity("t-1", "Ms Green", "green@school.org")))
	assert.Error(t, svc.SendDigest(context.Background(), models.NewTeacherIdentity("t-1", "Ms Green", "")))
}
