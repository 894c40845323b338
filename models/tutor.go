package models

import "time"

// DayWindow is one weekday's bookable window in minutes from midnight.
// FromMin > ToMin means the window wraps past midnight into the next day;
// that is a valid window, not an error.
type DayWindow struct {
	Available bool `bson:"available" json:"available"`
	FromMin   int  `bson:"from_min" json:"fromMin"`
	ToMin     int  `bson:"to_min" json:"toMin"`
}

// WeeklyAvailability holds one window per weekday, indexed by time.Weekday
// (Sunday = 0).
type WeeklyAvailability [7]DayWindow

// TutorProfile is the scheduling-relevant view of a tutor.
type TutorProfile struct {
	ID         string             `bson:"id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Subjects   []string           `bson:"subjects" json:"subjects"`
	HourlyRate float64            `bson:"hourly_rate" json:"hourlyRate"`
	Weekly     WeeklyAvailability `bson:"weekly" json:"weekly"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}
