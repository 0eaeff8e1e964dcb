package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoquest/internal/api"
	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/service"
	"ecoquest/internal/session"
)

type memoryState struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memoryState) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryState) Set(_ context.Context, key, value string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryState) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type fakeAPI struct {
	loginErr  error
	pending   []models.Submission
	roster    []models.RosterEntry
	approved  []string
	rejected  []string
	added     []api.AddStudentRequest
	ranking   []models.LeaderboardEntry
	teacherID string
}

func (f *fakeAPI) TeacherLogin(_ context.Context, req api.TeacherLoginRequest) (*api.TeacherLoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.TeacherLoginResponse{TeacherID: "t-1", FullName: "Ms Green"}, nil
}

func (f *fakeAPI) TeacherSubmissions(_ context.Context, teacherID string) ([]models.Submission, error) {
	f.teacherID = teacherID
	return f.pending, nil
}

func (f *fakeAPI) TeacherRoster(context.Context, string) ([]models.RosterEntry, error) {
	return f.roster, nil
}

func (f *fakeAPI) ApproveSubmission(_ context.Context, id string) error {
	f.approved = append(f.approved, id)
	f.pending = nil
	return nil
}

func (f *fakeAPI) RejectSubmission(_ context.Context, id string) error {
	f.rejected = append(f.rejected, id)
	f.pending = nil
	return nil
}

func (f *fakeAPI) AddStudent(_ context.Context, _ string, req api.AddStudentRequest) error {
	f.added = append(f.added, req)
	return nil
}

func (f *fakeAPI) CreateTask(context.Context, api.CreateTaskRequest) (*models.Task, error) {
	return &models.Task{}, nil
}

func (f *fakeAPI) CreateQuiz(context.Context, api.CreateQuizRequest) (*models.Task, error) {
	return &models.Task{}, nil
}

func (f *fakeAPI) StudentProfile(context.Context, string) (*models.StudentProfile, error) {
	return &models.StudentProfile{}, nil
}

func (f *fakeAPI) ListTasks(context.Context) ([]models.Task, error) {
	return nil, nil
}

func (f *fakeAPI) StudentSubmissions(context.Context, string) ([]models.Submission, error) {
	return nil, nil
}

func (f *fakeAPI) Leaderboard(context.Context) ([]models.LeaderboardEntry, error) {
	return f.ranking, nil
}

func newTestApp(t *testing.T, input string) (*app, *fakeAPI, *bytes.Buffer) {
	t.Helper()
	store, err := session.NewStore(&memoryState{values: make(map[string]string)}, "cli-secret", time.Hour)
	require.NoError(t, err)

	fake := &fakeAPI{}
	out := &bytes.Buffer{}
	return &app{
		auth:         fake,
		identity:     store.Scope(""),
		dashboard:    service.NewDashboardService(fake, nil, logging.Nop{}),
		classroom:    service.NewClassroomService(fake),
		students:     service.NewStudentService(fake),
		cards:        service.NewCardService(128),
		in:           bufio.NewReader(strings.NewReader(input)),
		out:          out,
		readPassword: func() (string, error) { return "secret", nil },
		scanTimeout:  time.Second,
	}, fake, out
}

func signIn(t *testing.T, a *app) {
	t.Helper()
	require.NoError(t, run(context.Background(), a, []string{"login", "-email", "green@school.org"}))
}

func TestLoginThenWhoami(t *testing.T) {
	a, _, out := newTestApp(t, "")
	signIn(t, a)
	assert.Contains(t, out.String(), "Signed in as Ms Green <green@school.org>")

	out.Reset()
	require.NoError(t, run(context.Background(), a, []string{"whoami"}))
	assert.Equal(t, "Ms Green <green@school.org> (teacher t-1)\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), a, []string{"logout"}))
	require.NoError(t, run(context.Background(), a, []string{"whoami"}))
	assert.Equal(t, "Signed out.\nNot signed in.\n", out.String())
}

func TestLoginErrors(t *testing.T) {
	a, fake, _ := newTestApp(t, "")

	err := run(context.Background(), a, []string{"login", "-email", "nope"})
	require.Error(t, err)
	assert.Contains(t, describe(err), "Please correct the highlighted fields.")

	fake.loginErr = &api.APIError{Status: 401, Message: "Invalid password"}
	err = run(context.Background(), a, []string{"login", "-email", "green@school.org"})
	require.Error(t, err)
	assert.Equal(t, "Invalid password", describe(err))
}

func TestCommandsNeedTeacher(t *testing.T) {
	for _, args := range [][]string{{"dashboard"}, {"approve", "-id", "s1"}, {"digest"}, {"add-student", "-name", "Ada"}} {
		t.Run(args[0], func(t *testing.T) {
			a, _, _ := newTestApp(t, "")
			err := run(context.Background(), a, args)
			assert.ErrorIs(t, err, errNotSignedIn)
		})
	}
}

func TestDashboardPrintsAnalyticsAndPending(t *testing.T) {
	a, fake, out := newTestApp(t, "")
	signIn(t, a)
	fake.pending = []models.Submission{{ID: "sub-1", StudentName: "Ada", TaskTitle: "Tree Planting Hero"}}
	fake.roster = []models.RosterEntry{{FullName: "Ada", ClassName: "5B", Points: 50}, {FullName: "Bo", ClassName: "5B", Points: 350}}

	out.Reset()
	require.NoError(t, run(context.Background(), a, []string{"dashboard"}))

	text := out.String()
	assert.Contains(t, text, "2 students, average 200.0 points")
	assert.Contains(t, text, "Pending submissions (1)")
	assert.Contains(t, text, "sub-1")
	assert.Contains(t, text, "Tree Planting Hero")
	assert.Equal(t, "t-1", fake.teacherID)
}

func TestReviewAsksForConfirmation(t *testing.T) {
	tests := []struct {
		action string
		done   string
		calls  func(f *fakeAPI) []string
	}{
		{action: "approve", done: "approved", calls: func(f *fakeAPI) []string { return f.approved }},
		{action: "reject", done: "rejected", calls: func(f *fakeAPI) []string { return f.rejected }},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			a, fake, out := newTestApp(t, "n\n")
			signIn(t, a)

			require.NoError(t, run(context.Background(), a, []string{tt.action, "-id", "sub-1"}))
			assert.Contains(t, out.String(), "Really "+tt.action+" submission sub-1? [y/N]")
			assert.Contains(t, out.String(), "Cancelled.")
			assert.Empty(t, tt.calls(fake))

			a.in = bufio.NewReader(strings.NewReader("y\n"))
			require.NoError(t, run(context.Background(), a, []string{tt.action, "-id", "sub-1"}))
			assert.Equal(t, []string{"sub-1"}, tt.calls(fake))
			assert.Contains(t, out.String(), "Submission sub-1 "+tt.done+". 0 still pending.")
		})
	}
}

func TestReviewYesSkipsPrompt(t *testing.T) {
	a, fake, out := newTestApp(t, "")
	signIn(t, a)

	assert.Error(t, run(context.Background(), a, []string{"approve", "-yes"}), "an id is required")
	out.Reset()
	require.NoError(t, run(context.Background(), a, []string{"approve", "-id", "sub-9", "-yes"}))
	assert.Equal(t, []string{"sub-9"}, fake.approved)
	assert.NotContains(t, out.String(), "[y/N]")
}

func TestAddStudentCardSources(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		input    string
		wantCard string
	}{
		{name: "explicit card", args: []string{"-card", "ECO-00000001"}, wantCard: "ECO-00000001"},
		{name: "scanned card", args: []string{"-scan"}, input: "\nECO-SCANNED\n", wantCard: "ECO-SCANNED"},
		{name: "generated card"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, fake, _ := newTestApp(t, tt.input)
			signIn(t, a)

			args := append([]string{"add-student", "-name", " Ada ", "-class", "5B"}, tt.args...)
			require.NoError(t, run(context.Background(), a, args))
			require.Len(t, fake.added, 1)
			assert.Equal(t, "Ada", fake.added[0].FullName)
			if tt.wantCard != "" {
				assert.Equal(t, tt.wantCard, fake.added[0].StudentIDCard)
			} else {
				assert.Regexp(t, `^ECO-[0-9A-F]{8}$`, fake.added[0].StudentIDCard)
			}
		})
	}
}

func TestCardWritesPNG(t *testing.T) {
	a, _, out := newTestApp(t, "")
	path := filepath.Join(t.TempDir(), "card.png")

	require.NoError(t, run(context.Background(), a, []string{"card", "-code", "ECO-1234ABCD", "-out", path}))
	assert.Contains(t, out.String(), "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	assert.Error(t, run(context.Background(), a, []string{"card", "-code", "ECO-1234ABCD"}))
}

func TestDigestDisabled(t *testing.T) {
	a, _, _ := newTestApp(t, "")
	signIn(t, a)
	err := run(context.Background(), a, []string{"digest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SES_FROM_EMAIL")
}

func TestLeaderboard(t *testing.T) {
	a, fake, out := newTestApp(t, "")
	fake.ranking = []models.LeaderboardEntry{{FullName: "Ada", Points: 300}, {FullName: "Bo", Points: 300}, {FullName: "Cy", Points: 10}}

	require.NoError(t, run(context.Background(), a, []string{"leaderboard"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"1", "Ada", "300"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "Bo", "300"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"3", "Cy", "10"}, strings.Fields(lines[3]))
}

func TestUnknownCommand(t *testing.T) {
	a, _, out := newTestApp(t, "")
	assert.ErrorIs(t, run(context.Background(), a, []string{"frobnicate"}), errUsage)
	assert.Contains(t, out.String(), "Unknown command \"frobnicate\"")
	assert.Contains(t, out.String(), "teacher add-student")
}
