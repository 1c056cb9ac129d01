package services

import (
	"context"
	"errors"
)

// ErrPushTokenInvalid marks a device token the gateway reports as permanently
// dead (unregistered or malformed). Callers clear the stored token so future
// runs stop retrying it. Transient delivery failures are returned as plain
// errors and left alone.
var ErrPushTokenInvalid = errors.New("push token permanently invalid")

// PushMessage is one notification payload.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// MulticastResult reports per-token outcomes of a multicast send.
type MulticastResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// PushSender is the push-delivery gateway. The FCM implementation is used in
// production; tests use a recording fake.
type PushSender interface {
	Send(ctx context.Context, token string, msg PushMessage) error
	SendMulticast(ctx context.Context, tokens []string, msg PushMessage) (*MulticastResult, error)
}
