package models

import (
	"strings"
	"time"
)

// User is the profile document stored in Mongo and keyed by the auth UID.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash,omitempty"`
	Name         string    `json:"name" bson:"name"`
	Birthdate    time.Time `json:"birthdate" bson:"birthdate"`
	Avatar       string    `json:"avatar" bson:"avatar,omitempty"`
	Hobbies      []string  `json:"hobbies" bson:"hobbies,omitempty"`
	HideAge      bool      `json:"hide_age" bson:"hide_age"`

	PushToken          string    `json:"-" bson:"push_token,omitempty"`
	PushTokenUpdatedAt time.Time `json:"-" bson:"push_token_updated_at,omitempty"`

	// Daily change-limit counters. Each pair tracks how many edits happened
	// on the calendar day of its last-change date.
	NameChangesCount    int       `json:"name_changes_count" bson:"name_changes_count"`
	NameLastChangeAt    time.Time `json:"name_last_change_at" bson:"name_last_change_at,omitempty"`
	HideAgeChangesCount int       `json:"hide_age_changes_count" bson:"hide_age_changes_count"`
	HideAgeLastChangeAt time.Time `json:"hide_age_last_change_at" bson:"hide_age_last_change_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// PublicUser is safe to share with other authenticated users. When the owner
// hides their age the birthdate carries only month and day (year 1).
type PublicUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Birthdate    time.Time `json:"birthdate"`
	Avatar       string    `json:"avatar"`
	Hobbies      []string  `json:"hobbies"`
	HideAge      bool      `json:"hide_age"`
	NextBirthday time.Time `json:"next_birthday"`
}

type CreateUserRequest struct {
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	Name      string    `json:"name"`
	Birthdate time.Time `json:"birthdate"`
	Avatar    string    `json:"avatar"`
	Hobbies   []string  `json:"hobbies"`
	HideAge   bool      `json:"hide_age"`
}

type UpdateUserRequest struct {
	Name      *string    `json:"name"`
	Birthdate *time.Time `json:"birthdate"`
	Avatar    *string    `json:"avatar"`
	Hobbies   *[]string  `json:"hobbies"`
	HideAge   *bool      `json:"hide_age"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type PushTokenRequest struct {
	Token string `json:"token"`
}

func (r *CreateUserRequest) Validate() map[string]string {
	errors := make(map[string]string)

	email := strings.TrimSpace(r.Email)
	if email == "" {
		errors["email"] = "Email is required"
	} else if !strings.Contains(email, "@") {
		errors["email"] = "Email is invalid"
	}
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.Birthdate.IsZero() {
		errors["birthdate"] = "Birthdate is required"
	} else if r.Birthdate.After(time.Now()) {
		errors["birthdate"] = "Birthdate cannot be in the future"
	}
	if r.Password != "" && len(r.Password) < 6 {
		errors["password"] = "Password must be at least 6 characters"
	}

	return errors
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}
