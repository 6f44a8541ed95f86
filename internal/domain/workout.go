package domain

import "time"

// DateLayout is the wire and storage format of a workout date.
const DateLayout = "2006-01-02"

// Workout is a training session owned by a single user.
type Workout struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Date      time.Time `json:"-"`
	Aim       string    `json:"aim"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName falls back to the date when the workout is unnamed.
func (w *Workout) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.Date.Format(DateLayout)
}
