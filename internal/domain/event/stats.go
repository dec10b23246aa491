package event

import (
	"math"
	"time"
)

// Stats is the admin reporting row for one past event.
type Stats struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Date            time.Time `json:"date"`
	Description     string    `json:"description"`
	TotalRegistered int       `json:"totalRegistered"`
	TotalCheckedIn  int       `json:"totalCheckedIn"`
	AttendanceRate  float64   `json:"attendanceRate"`
}

// AttendanceRate is checked-in over registered as a percentage, rounded to
// 2 decimal places. Zero registrations means a 0 rate, not a division error.
func AttendanceRate(registered, checkedIn int) float64 {
	if registered <= 0 {
		return 0
	}

	rate := float64(checkedIn) / float64(registered) * 100

	return math.Round(rate*100) / 100
}
