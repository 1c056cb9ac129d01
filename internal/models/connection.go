package models

import "time"

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
)

// Connection links two users. UserID1 initiated the request, UserID2 decides
// on it; once accepted the relationship is symmetric.
type Connection struct {
	ID            string           `json:"id" bson:"_id"`
	UserID1       string           `json:"user_id_1" bson:"user_id_1"`
	UserID2       string           `json:"user_id_2" bson:"user_id_2"`
	Status        ConnectionStatus `json:"status" bson:"status"`
	ViewedByUser1 bool             `json:"viewed_by_user_1" bson:"viewed_by_user_1"`
	ViewedByUser2 bool             `json:"viewed_by_user_2" bson:"viewed_by_user_2"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" bson:"updated_at"`
}

// Involves reports whether userID is either side of the connection.
func (c *Connection) Involves(userID string) bool {
	return c.UserID1 == userID || c.UserID2 == userID
}

// OtherUser returns the counterpart of userID, or "" if userID is not a side.
func (c *Connection) OtherUser(userID string) string {
	switch userID {
	case c.UserID1:
		return c.UserID2
	case c.UserID2:
		return c.UserID1
	}
	return ""
}

// Active reports whether the connection blocks creating another one between
// the same pair (pending or accepted).
func (c *Connection) Active() bool {
	return c.Status == ConnectionPending || c.Status == ConnectionAccepted
}

// ViewedBy reports whether userID's side has acknowledged the connection.
func (c *Connection) ViewedBy(userID string) bool {
	switch userID {
	case c.UserID1:
		return c.ViewedByUser1
	case c.UserID2:
		return c.ViewedByUser2
	}
	return false
}

// PendingInvitation is a pending connection decorated with the sender's
// profile, for the recipient's invitation list.
type PendingInvitation struct {
	Connection
	FromUser *PublicUser `json:"from_user,omitempty"`
}

// AcceptedConnection is an accepted-but-unviewed connection decorated with
// the other side's profile, for the notification feed.
type AcceptedConnection struct {
	Connection
	OtherUser *PublicUser `json:"other_user,omitempty"`
}
