package handlers

import (
	"testing"
	"time"

	"ecoquest/internal/models"
	"ecoquest/internal/service"
)

func TestNewTeacherDashboardView(t *testing.T) {
	roster := []models.RosterEntry{
		{FullName: "Ada", ClassName: "5B", Points: 50},
		{FullName: "Ben", ClassName: "5B", Points: 150},
		{FullName: "Cy", ClassName: "5C", Points: 400},
		{FullName: "Di", ClassName: "5C", Points: 100},
	}
	dash := &service.Dashboard{
		Pending:     []models.Submission{{ID: "s1", StudentName: "Ada", TaskTitle: "Water Wise"}},
		Roster:      roster,
		Analytics:   service.ComputeAnalytics(roster),
		RefreshedAt: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
	}

	data := newTeacherDashboardView(Layout{}, dash, true)

	if len(data.Pending) != 1 || data.Pending[0].ID != "s1" {
		t.Fatalf("unexpected pending rows %+v", data.Pending)
	}
	wantLevels := []string{"Beginner", "Intermediate", "Advanced", "Beginner"}
	for i, row := range data.Roster {
		if row.Level != wantLevels[i] {
			t.Errorf("roster[%d].Level = %q, want %q", i, row.Level, wantLevels[i])
		}
	}
	if got := data.Analytics.Bars[0]; got.Count != 2 || got.Percent != 50 {
		t.Errorf("beginner bar = %+v, want 2 students at 50%%", got)
	}
	if data.Analytics.AveragePoints != "175.0" {
		t.Errorf("AveragePoints = %q, want 175.0", data.Analytics.AveragePoints)
	}
	if data.RefreshedAt != "Oct 14, 2026 09:30" {
		t.Errorf("RefreshedAt = %q", data.RefreshedAt)
	}
	if !data.DigestEnabled {
		t.Error("DigestEnabled should be carried through")
	}
}

func TestNewTaskCard(t *testing.T) {
	tests := []struct {
		task     models.Task
		url      string
		playable bool
	}{
		{task: models.Task{ID: "t1", TaskType: models.TaskTypePhotoUpload}, url: "/student/tasks/t1", playable: true},
		{task: models.Task{ID: "t2", TaskType: models.TaskTypeQuiz}, url: "/student/tasks/t2/quiz", playable: true},
		{task: models.Task{ID: "t3", TaskType: "ar_scan"}, url: "/student/tasks/t3", playable: false},
	}
	for _, tt := range tests {
		card := newTaskCard(tt.task)
		if card.URL != tt.url || card.Playable != tt.playable {
			t.Errorf("newTaskCard(%s) = %+v, want url %s playable %v", tt.task.ID, card, tt.url, tt.playable)
		}
	}
}

func TestNewStudentDashboardViewStatuses(t *testing.T) {
	dash := &service.StudentDashboard{
		Profile: models.StudentProfile{FullName: "Ada", Points: 120, Badges: []models.Badge{{Name: "Tree Hugger"}}},
		History: []models.Submission{
			{TaskTitle: "a", Status: models.StatusApproved},
			{TaskTitle: "b", Status: models.StatusRejected},
			{TaskTitle: "c"},
		},
	}
	data := newStudentDashboardView(Layout{}, dash)

	want := []string{"approved", "rejected", "pending"}
	for i, row := range data.History {
		if row.StatusClass != want[i] {
			t.Errorf("history[%d] class = %q, want %q", i, row.StatusClass, want[i])
		}
	}
	if data.Points != 120 || len(data.Badges) != 1 {
		t.Errorf("unexpected profile data %+v", data)
	}

	empty := newStudentDashboardView(Layout{}, nil)
	if empty.Tasks != nil || empty.History != nil {
		t.Error("a failed load must render nothing")
	}
}

func TestNewLeaderboardRowsHighlightsStudent(t *testing.T) {
	ranked := models.RankLeaderboard([]models.LeaderboardEntry{{FullName: "Ada", Points: 30}, {FullName: "Ben", Points: 20}})
	student := models.NewStudentIdentity("s1", "Ben")

	rows := newLeaderboardRows(ranked, &student)
	if rows[0].IsCurrent || !rows[1].IsCurrent {
		t.Errorf("unexpected highlight %+v", rows)
	}

	teacher := models.NewTeacherIdentity("t1", "Ben", "b@school.org")
	for _, row := range newLeaderboardRows(ranked, &teacher) {
		if row.IsCurrent {
			t.Error("teachers are never highlighted")
		}
	}
	for _, row := range newLeaderboardRows(ranked, nil) {
		if row.IsCurrent {
			t.Error("anonymous visitors are never highlighted")
		}
	}
}

func TestNewQuizQuestions(t *testing.T) {
	task := models.Task{ID: "q", TaskType: models.TaskTypeQuiz, Questions: []models.Question{
		{ID: "1", QuestionText: "One", OptionA: "a", OptionB: "b", OptionC: "c", CorrectAnswer: "B"},
		{ID: "2", QuestionText: "Two", OptionA: "a", OptionB: "b", OptionC: "c"},
	}}

	views := newQuizQuestions(task, map[string]string{"1": "C"}, []models.Question{task.Questions[1]})
	if views[0].Number != 1 || views[1].Number != 2 {
		t.Fatalf("unexpected numbering %+v", views)
	}
	if !views[0].Options[2].Selected || views[0].Options[1].Selected {
		t.Errorf("selected option not marked: %+v", views[0].Options)
	}
	if views[0].Missing || !views[1].Missing {
		t.Errorf("missing flags wrong: %v %v", views[0].Missing, views[1].Missing)
	}
}

func TestQuestionHelpers(t *testing.T) {
	if questionCount("") != defaultQuizQuestions || questionCount("0") != defaultQuizQuestions {
		t.Error("questionCount should fall back to the default")
	}
	if questionCount("500") != maxQuizQuestions {
		t.Error("questionCount should cap at the maximum")
	}
	if questionField(2, "text") != "q2_text" {
		t.Errorf("questionField = %q", questionField(2, "text"))
	}
	if !isBlankQuestion(QuestionForm{CorrectAnswer: "A"}) {
		t.Error("a block with only the default answer is blank")
	}
	if parsePoints(" 25 ") != 25 || parsePoints("lots") != 0 {
		t.Error("parsePoints mismatch")
	}
}
