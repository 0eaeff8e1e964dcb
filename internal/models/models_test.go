package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTaskValidate(t *testing.T) {
	question := Question{ID: "q1", QuestionText: "How much of Earth's water is fresh?", OptionA: "10%", OptionB: "3%", OptionC: "30%"}

	tests := []struct {
		name    string
		task    Task
		wantErr error
	}{
		{
			name:    "quiz with questions",
			task:    Task{ID: "t1", TaskType: TaskTypeQuiz, Questions: []Question{question}},
			wantErr: nil,
		},
		{
			name:    "quiz without questions",
			task:    Task{ID: "t1", TaskType: TaskTypeQuiz},
			wantErr: ErrQuizWithoutQuestions,
		},
		{
			name:    "photo task without questions",
			task:    Task{ID: "t2", TaskType: TaskTypePhotoUpload},
			wantErr: nil,
		},
		{
			name:    "secret code task with questions",
			task:    Task{ID: "t3", TaskType: TaskTypeSecretCode, Questions: []Question{question}},
			wantErr: ErrQuestionsOnNonQuiz,
		},
		{
			name:    "legacy ar_scan task",
			task:    Task{ID: "t4", TaskType: "ar_scan"},
			wantErr: ErrUnknownTaskType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.task.Validate(); err != tt.wantErr {
				t.Errorf("Task.Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskDecodeEmptyQuestions(t *testing.T) {
	// The backend sends "questions": [] for every non-quiz task.
	body := `{"id":"t2","title":"Tree Planting Hero","points_reward":100,"task_type":"photo_upload","questions":[]}`

	var task Task
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for photo task with empty questions", err)
	}
}

func TestIdentityValidate(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		wantErr  error
	}{
		{name: "teacher", identity: NewTeacherIdentity("t-1", "Ms Green", "green@school.org")},
		{name: "student", identity: NewStudentIdentity("s-1", "Ada")},
		{name: "teacher without id", identity: Identity{Role: RoleTeacher, FullName: "Ms Green"}, wantErr: ErrMissingSubjectID},
		{name: "student with teacher id only", identity: Identity{Role: RoleStudent, TeacherID: "t-1", FullName: "Ada"}, wantErr: ErrMissingSubjectID},
		{name: "unknown role", identity: Identity{Role: "admin", FullName: "Root"}, wantErr: ErrUnknownRole},
		{name: "missing name", identity: Identity{Role: RoleStudent, StudentID: "s-1"}, wantErr: ErrMissingFullName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.identity.Validate(); err != tt.wantErr {
				t.Errorf("Identity.Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIdentityIsNilSafe(t *testing.T) {
	var identity *Identity
	if identity.Is(RoleTeacher) {
		t.Error("nil identity should not match any role")
	}
	teacher := NewTeacherIdentity("t-1", "Ms Green", "")
	if !teacher.Is(RoleTeacher) || teacher.Is(RoleStudent) {
		t.Error("teacher identity role check failed")
	}
}

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "naive microseconds", input: `"2024-03-01T10:15:30.123456"`, want: time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC)},
		{name: "naive seconds", input: `"2024-03-01T10:15:30"`, want: time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{name: "rfc3339", input: `"2024-03-01T10:15:30Z"`, want: time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{name: "null", input: `null`},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `12`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := ts.UnmarshalJSON([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalJSON(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !ts.Equal(tt.want) {
				t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.input, ts.Time, tt.want)
			}
		})
	}
}

func TestSubmissionStatus(t *testing.T) {
	if !StatusApproved.IsTerminal() || !StatusRejected.IsTerminal() {
		t.Error("approved and rejected must be terminal")
	}
	if StatusPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	if got := (Submission{}).StatusOrPending(); got != StatusPending {
		t.Errorf("StatusOrPending() = %q, want pending", got)
	}
}

func TestRankLeaderboard(t *testing.T) {
	entries := []LeaderboardEntry{
		{FullName: "Ada", Points: 320},
		{FullName: "Ben", Points: 150},
		{FullName: "Cy", Points: 150},
		{FullName: "Di", Points: 40},
	}

	ranked := RankLeaderboard(entries)

	wantRanks := []int{1, 2, 2, 4}
	for i, r := range ranked {
		if r.Rank != wantRanks[i] {
			t.Errorf("rank[%d] (%s) = %d, want %d", i, r.FullName, r.Rank, wantRanks[i])
		}
	}
}

func TestQuestionOptionsOrder(t *testing.T) {
	q := Question{OptionA: "10%", OptionB: "3%", OptionC: "30%"}
	opts := q.Options()
	if len(opts) != 3 || opts[0].Key != AnswerA || opts[1].Text != "3%" || opts[2].Key != AnswerC {
		t.Errorf("Options() = %+v", opts)
	}
}
