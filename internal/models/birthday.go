package models

import "time"

// BirthdayEvent is a read-only projection of a user's birthday for calendar
// display. It is derived from the users collection and never persisted.
// The birth year is withheld (year 1) when the user hides their age.
type BirthdayEvent struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Birthdate time.Time `json:"birthdate"`
	Hobbies   []string  `json:"hobbies"`
	Email     string    `json:"email,omitempty"`
}
