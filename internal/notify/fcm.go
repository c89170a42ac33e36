package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/GlebRadaev/ratnzer/pkg/clients"
)

const fcmBaseURL = "https://fcm.googleapis.com/v1/projects/"

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// FCMPusher sends pushes through the FCM HTTP v1 API.
type FCMPusher struct {
	endpoint string
	tokens   TokenSource
	http     clients.HTTPClientI
}

func NewFCMPusher(projectID string, tokens TokenSource, httpClient clients.HTTPClientI) *FCMPusher {
	return &FCMPusher{
		endpoint: fcmBaseURL + projectID + "/messages:send",
		tokens:   tokens,
		http:     httpClient,
	}
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmError struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func (p *FCMPusher) Push(ctx context.Context, token string, msg Message) error {
	access, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req := fcmRequest{Message: fcmMessage{
		Token:        token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
	}}
	if msg.Category != "" {
		req.Message.Data = map[string]string{"category": msg.Category}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+access)
	headers.Set("Content-Type", "application/json")

	status, respBody, err := p.http.Post(ctx, p.endpoint, headers, body)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}

	var e fcmError
	_ = json.Unmarshal(respBody, &e)
	if status == http.StatusNotFound || e.Error.Status == "NOT_FOUND" || hasErrorCode(e, "UNREGISTERED") {
		return ErrTokenUnregistered
	}
	return fmt.Errorf("fcm send: status %d: %s", status, strings.TrimSpace(e.Error.Message))
}

func hasErrorCode(e fcmError, code string) bool {
	for _, d := range e.Error.Details {
		if d.ErrorCode == code {
			return true
		}
	}
	return false
}
