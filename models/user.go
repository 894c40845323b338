package models

import "time"

// User is the opaque party record owned by the profile store. The scheduling
// core reads it to validate party existence and enrich responses; it never
// writes profile fields.
type User struct {
	ID            string         `bson:"id" json:"id"`
	Name          string         `bson:"name" json:"name"`
	Email         string         `bson:"email" json:"email"`
	Role          string         `bson:"role" json:"role"` // "student", "tutor", "admin"
	Notifications []Notification `bson:"notifications,omitempty" json:"notifications,omitempty"`
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updatedAt"`
}
