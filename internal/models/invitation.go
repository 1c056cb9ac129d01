package models

import "time"

// ConnectionInvitation is a single-use shareable link token. The sender's
// name and avatar are denormalized so the landing screen can render before
// the recipient authenticates.
type ConnectionInvitation struct {
	ID             string    `json:"id" bson:"_id"`
	FromUserID     string    `json:"from_user_id" bson:"from_user_id"`
	FromUserName   string    `json:"from_user_name" bson:"from_user_name"`
	FromUserAvatar string    `json:"from_user_avatar" bson:"from_user_avatar,omitempty"`
	ExpiresAt      time.Time `json:"expires_at" bson:"expires_at"`
	Used           bool      `json:"used" bson:"used"`
	UsedBy         string    `json:"used_by,omitempty" bson:"used_by,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// Expired reports whether the invitation is past its expiry at the given time.
func (i *ConnectionInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// InvitationLinkResponse is returned when a user requests a shareable link.
type InvitationLinkResponse struct {
	ID        string    `json:"id"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}
