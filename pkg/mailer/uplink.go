package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mkallevig/sentrycam/internal/httpc"
	"github.com/mkallevig/sentrycam/pkg/alert"
)

// SendRequest is the wire format of the alert server's /send-email endpoint.
type SendRequest struct {
	VideoBase64 string `json:"videoBase64"`
	Filename    string `json:"filename"`
}

// Uplink delivers alerts by handing the evidence to a remote alert server
// which transcodes and mails it.
type Uplink struct {
	// Endpoint is the full URL of the /send-email route.
	Endpoint string

	// client defaults to the shared httpc client.
	client *http.Client
}

// NewUplink creates an uplink deliverer for the given endpoint URL.
func NewUplink(endpoint string) *Uplink {
	return &Uplink{Endpoint: endpoint, client: httpc.Client}
}

// Deliver posts the evidence as base64 JSON (no data-URI prefix).
func (u *Uplink) Deliver(ctx context.Context, msg alert.Message) (alert.DeliveryResult, error) {
	if err := msg.Validate(); err != nil {
		return alert.DeliveryResult{}, err
	}

	body, err := json.Marshal(SendRequest{
		VideoBase64: base64.StdEncoding.EncodeToString(msg.Attachment),
		Filename:    msg.Filename,
	})
	if err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("uplink: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, bytes.NewReader(body))
	if err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("uplink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := u.client
	if client == nil {
		client = httpc.Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("uplink: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return alert.DeliveryResult{}, fmt.Errorf("uplink: alert server returned %d: %s",
			resp.StatusCode, detail)
	}

	return alert.DeliveryResult{ID: msg.Filename}, nil
}
