package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMPushService delivers notifications through Firebase Cloud Messaging.
type FCMPushService struct {
	client *messaging.Client
}

func NewFCMPushService(ctx context.Context, projectID, credentialsJSON string) (*FCMPushService, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM client: %w", err)
	}
	return &FCMPushService{client: client}, nil
}

func (s *FCMPushService) Send(ctx context.Context, token string, msg PushMessage) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:  msg.Data,
		Token: token,
	})
	if err != nil && isTokenInvalid(err) {
		return fmt.Errorf("%w: %v", ErrPushTokenInvalid, err)
	}
	return err
}

func (s *FCMPushService) SendMulticast(ctx context.Context, tokens []string, msg PushMessage) (*MulticastResult, error) {
	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:   msg.Data,
		Tokens: tokens,
	})
	if err != nil {
		return nil, err
	}

	result := &MulticastResult{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}
	for i, r := range resp.Responses {
		if r.Success || r.Error == nil {
			continue
		}
		if isTokenInvalid(r.Error) {
			result.InvalidTokens = append(result.InvalidTokens, tokens[i])
		} else {
			log.Printf("[FCM] transient send failure token=%s error=%v", tokens[i], r.Error)
		}
	}
	return result, nil
}

// isTokenInvalid classifies the permanent-failure error codes: the token is
// unregistered or was never valid.
func isTokenInvalid(err error) bool {
	return messaging.IsUnregistered(err) || errorutils.IsInvalidArgument(err)
}
