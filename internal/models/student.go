package models

// Badge is an award shown on the student dashboard
type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
}

// StudentProfile is the student dashboard header data
type StudentProfile struct {
	ID       string  `json:"id,omitempty"`
	FullName string  `json:"full_name"`
	Points   int     `json:"points"`
	Badges   []Badge `json:"badges"`
}

// RosterEntry is one student in a teacher's class
type RosterEntry struct {
	FullName  string `json:"full_name"`
	ClassName string `json:"class_name"`
	Points    int    `json:"points"`
}

// LeaderboardEntry is one row of the leaderboard as returned by the API
type LeaderboardEntry struct {
	FullName string `json:"full_name"`
	Points   int    `json:"points"`
}

// RankedEntry is a leaderboard row with its display rank
type RankedEntry struct {
	Rank int
	LeaderboardEntry
}

// RankLeaderboard assigns 1-based ranks in the order the API returned the rows.
// Rows with equal points share a rank ("1, 1, 3").
func RankLeaderboard(entries []LeaderboardEntry) []RankedEntry {
	ranked := make([]RankedEntry, 0, len(entries))
	for i, e := range entries {
		rank := i + 1
		if i > 0 && e.Points == entries[i-1].Points {
			rank = ranked[i-1].Rank
		}
		ranked = append(ranked, RankedEntry{Rank: rank, LeaderboardEntry: e})
	}
	return ranked
}
