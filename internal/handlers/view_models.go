package handlers

import (
	"fmt"
	"strconv"

	"ecoquest/internal/models"
	"ecoquest/internal/service"
)

type LandingViewData struct {
	Layout
}

type TeacherLoginViewData struct {
	Layout
	Email string
	Error string
}

type StudentLoginViewData struct {
	Layout
	Error       string
	CameraError string
}

type SubmissionRow struct {
	ID          string
	StudentName string
	TaskTitle   string
	SubmittedAt string
	Data        string
}

type RosterRow struct {
	FullName  string
	ClassName string
	Points    int
	Level     string
}

type AnalyticsBar struct {
	Label   string
	Count   int
	Percent int
}

type AnalyticsView struct {
	Bars          []AnalyticsBar
	Total         int
	AveragePoints string
}

type TeacherDashboardViewData struct {
	Layout
	Pending       []SubmissionRow
	Roster        []RosterRow
	Analytics     AnalyticsView
	DigestEnabled bool
	RefreshedAt   string
	Error         string
}

type ConfirmReviewViewData struct {
	Layout
	SubmissionID string
	Action       string
	ActionLabel  string
}

type AddStudentViewData struct {
	Layout
	FullName      string
	ClassName     string
	StudentIDCard string
	LastCard      string
	Errors        map[string]string
	Error         string
	CameraError   string
}

type TaskTypeOption struct {
	Value    string
	Label    string
	Selected bool
}

type CreateTaskViewData struct {
	Layout
	Title        string
	Description  string
	PointsReward string
	TaskTypes    []TaskTypeOption
	Errors       map[string]string
	Error        string
}

type QuestionForm struct {
	Index         int
	QuestionText  string
	OptionA       string
	OptionB       string
	OptionC       string
	CorrectAnswer string
}

type CreateQuizViewData struct {
	Layout
	Title        string
	Description  string
	PointsReward string
	Questions    []QuestionForm
	Errors       map[string]string
	Error        string
}

type TaskCard struct {
	ID          string
	Title       string
	Description string
	Points      int
	TypeLabel   string
	URL         string
	Playable    bool
}

type HistoryRow struct {
	TaskTitle   string
	Status      string
	StatusClass string
	SubmittedAt string
}

type BadgeView struct {
	Name        string
	Description string
	IconURL     string
}

type StudentDashboardViewData struct {
	Layout
	FullName string
	Points   int
	Badges   []BadgeView
	Tasks    []TaskCard
	History  []HistoryRow
	Error    string
}

type LeaderboardRow struct {
	Rank      int
	FullName  string
	Points    int
	IsCurrent bool
}

type LeaderboardViewData struct {
	Layout
	Rows  []LeaderboardRow
	Error string
}

type TaskViewData struct {
	Layout
	Task        TaskCard
	Kind        string // "photo", "secret", "quiz" or "unsupported"
	State       string
	HasStill    bool
	StillURL    string
	Done        bool
	Message     string
	Error       string
	CameraError string
}

type OptionView struct {
	Key      string
	Text     string
	Selected bool
}

type QuizQuestionView struct {
	ID      string
	Number  int
	Text    string
	Options []OptionView
	Missing bool
}

type QuizViewData struct {
	Layout
	Task      TaskCard
	Questions []QuizQuestionView
	Done      bool
	Message   string
	Status    string
	Error     string
}

const timeLayout = "Jan 2, 2006 15:04"

func formatTimestamp(ts models.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(timeLayout)
}

func levelFor(points int) string {
	switch {
	case points <= service.BeginnerMaxPoints:
		return "Beginner"
	case points <= service.IntermediateMaxPoints:
		return "Intermediate"
	}
	return "Advanced"
}

func newAnalyticsView(a service.Analytics) AnalyticsView {
	return AnalyticsView{
		Bars: []AnalyticsBar{
			{Label: "Beginner (0-100)", Count: a.Beginner, Percent: a.Share(a.Beginner)},
			{Label: "Intermediate (101-300)", Count: a.Intermediate, Percent: a.Share(a.Intermediate)},
			{Label: "Advanced (300+)", Count: a.Advanced, Percent: a.Share(a.Advanced)},
		},
		Total:         a.Total,
		AveragePoints: strconv.FormatFloat(a.AveragePoints, 'f', 1, 64),
	}
}

func newTeacherDashboardView(layout Layout, dash *service.Dashboard, digestEnabled bool) TeacherDashboardViewData {
	data := TeacherDashboardViewData{Layout: layout, DigestEnabled: digestEnabled}
	if dash == nil {
		return data
	}
	for _, sub := range dash.Pending {
		data.Pending = append(data.Pending, SubmissionRow{
			ID:          sub.ID,
			StudentName: sub.StudentName,
			TaskTitle:   sub.TaskTitle,
			SubmittedAt: formatTimestamp(sub.SubmittedAt),
			Data:        sub.SubmissionData,
		})
	}
	for _, st := range dash.Roster {
		data.Roster = append(data.Roster, RosterRow{
			FullName:  st.FullName,
			ClassName: st.ClassName,
			Points:    st.Points,
			Level:     levelFor(st.Points),
		})
	}
	data.Analytics = newAnalyticsView(dash.Analytics)
	data.RefreshedAt = dash.RefreshedAt.Format(timeLayout)
	return data
}

func newTaskCard(task models.Task) TaskCard {
	card := TaskCard{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Points:      task.PointsReward,
		TypeLabel:   task.TaskType.Label(),
		Playable:    task.TaskType.Known(),
	}
	card.URL = "/student/tasks/" + task.ID
	if task.IsQuiz() {
		card.URL += "/quiz"
	}
	return card
}

func statusLabel(status models.SubmissionStatus) (label, class string) {
	switch status {
	case models.StatusApproved:
		return "Approved", "approved"
	case models.StatusRejected:
		return "Rejected", "rejected"
	}
	return "Pending review", "pending"
}

func newStudentDashboardView(layout Layout, dash *service.StudentDashboard) StudentDashboardViewData {
	data := StudentDashboardViewData{Layout: layout}
	if dash == nil {
		return data
	}
	data.FullName = dash.Profile.FullName
	data.Points = dash.Profile.Points
	for _, b := range dash.Profile.Badges {
		data.Badges = append(data.Badges, BadgeView{Name: b.Name, Description: b.Description, IconURL: b.IconURL})
	}
	for _, task := range dash.Tasks {
		data.Tasks = append(data.Tasks, newTaskCard(task))
	}
	for _, sub := range dash.History {
		label, class := statusLabel(sub.StatusOrPending())
		data.History = append(data.History, HistoryRow{
			TaskTitle:   sub.TaskTitle,
			Status:      label,
			StatusClass: class,
			SubmittedAt: formatTimestamp(sub.SubmittedAt),
		})
	}
	return data
}

// newLeaderboardRows marks the rows of the signed-in student by name, the only
// field the leaderboard carries
func newLeaderboardRows(ranked []models.RankedEntry, identity *models.Identity) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(ranked))
	for _, e := range ranked {
		rows = append(rows, LeaderboardRow{
			Rank:      e.Rank,
			FullName:  e.FullName,
			Points:    e.Points,
			IsCurrent: identity.Is(models.RoleStudent) && identity.FullName == e.FullName,
		})
	}
	return rows
}

func newQuizQuestions(task models.Task, answers map[string]string, missing []models.Question) []QuizQuestionView {
	missingIDs := make(map[string]bool, len(missing))
	for _, q := range missing {
		missingIDs[q.ID] = true
	}

	views := make([]QuizQuestionView, 0, len(task.Questions))
	for i, q := range task.Questions {
		view := QuizQuestionView{ID: q.ID, Number: i + 1, Text: q.QuestionText, Missing: missingIDs[q.ID]}
		for _, opt := range q.Options() {
			view.Options = append(view.Options, OptionView{Key: opt.Key, Text: opt.Text, Selected: answers[q.ID] == opt.Key})
		}
		views = append(views, view)
	}
	return views
}

func taskTypeOptions(selected models.TaskType) []TaskTypeOption {
	types := []models.TaskType{models.TaskTypePhotoUpload, models.TaskTypeSecretCode}
	opts := make([]TaskTypeOption, 0, len(types))
	for _, t := range types {
		opts = append(opts, TaskTypeOption{Value: string(t), Label: t.Label(), Selected: t == selected})
	}
	return opts
}

func blankQuestions(n int) []QuestionForm {
	qs := make([]QuestionForm, n)
	for i := range qs {
		qs[i].Index = i
	}
	return qs
}

func questionField(i int, name string) string {
	return fmt.Sprintf("q%d_%s", i, name)
}
