package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mkallevig/sentrycam/internal/httpc"
	"github.com/mkallevig/sentrycam/pkg/alert"
)

// DefaultEmailJSEndpoint is the transactional send API.
const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJS is the still-image variant: a templated alert with no
// attachment, sent through a third-party transactional API. It runs under
// the same controller contract and cooldown as the video pipeline.
type EmailJS struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	UserID     string

	client *http.Client
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// NewEmailJS creates an EmailJS deliverer.
func NewEmailJS(serviceID, templateID, userID string) *EmailJS {
	return &EmailJS{
		Endpoint:   DefaultEmailJSEndpoint,
		ServiceID:  serviceID,
		TemplateID: templateID,
		UserID:     userID,
		client:     httpc.Client,
	}
}

// Deliver sends the templated alert. The attachment, if any, is ignored:
// this variant alerts with text only.
func (e *EmailJS) Deliver(ctx context.Context, msg alert.Message) (alert.DeliveryResult, error) {
	payload, err := json.Marshal(emailJSRequest{
		ServiceID:  e.ServiceID,
		TemplateID: e.TemplateID,
		UserID:     e.UserID,
		TemplateParams: map[string]string{
			"to":      msg.Recipient,
			"subject": "Intruder Alert!",
			"message": "<b>INTRUDER ALERT!</b> SOMEONE IS IN YOUR ROOM!",
		},
	})
	if err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("emailjs: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("emailjs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.client
	if client == nil {
		client = httpc.Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("emailjs: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return alert.DeliveryResult{}, fmt.Errorf("emailjs: API returned %d: %s",
			resp.StatusCode, detail)
	}

	return alert.DeliveryResult{ID: e.TemplateID}, nil
}
