package service

import "ecoquest/internal/models"

// Class level thresholds, in points
const (
	BeginnerMaxPoints     = 100
	IntermediateMaxPoints = 300
)

// Analytics is the class points histogram shown on the teacher dashboard
type Analytics struct {
	Beginner      int
	Intermediate  int
	Advanced      int
	Total         int
	AveragePoints float64
}

// ComputeAnalytics buckets students: Beginner <= 100, Intermediate 101-300, Advanced > 300
func ComputeAnalytics(roster []models.RosterEntry) Analytics {
	var a Analytics
	var sum int
	for _, student := range roster {
		switch {
		case student.Points <= BeginnerMaxPoints:
			a.Beginner++
		case student.Points <= IntermediateMaxPoints:
			a.Intermediate++
		default:
			a.Advanced++
		}
		sum += student.Points
	}
	a.Total = len(roster)
	if a.Total > 0 {
		a.AveragePoints = float64(sum) / float64(a.Total)
	}
	return a
}

// Share returns n as a whole percentage of the class, for bar widths
func (a Analytics) Share(n int) int {
	if a.Total == 0 {
		return 0
	}
	return n * 100 / a.Total
}
