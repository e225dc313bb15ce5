// Package alert contains the detection-to-alert state machine and the
// outbound alert message model.
package alert

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidAlert is returned when a message that requires an attachment
// is handed to delivery without one.
var ErrInvalidAlert = errors.New("alert: message has no attachment")

// Subject is the fixed intruder-alert subject line.
const Subject = "⚠️ INTRUDER ALERT - Security Camera Footage"

// Message is the fully composed outbound alert. It is constructed once
// per completed capture session and never mutated after a send attempt.
type Message struct {
	Recipient  string
	Subject    string
	BodyHTML   string
	Attachment []byte
	Filename   string
	MIMEType   string
}

// DeliveryResult reports the outcome of one delivery attempt.
type DeliveryResult struct {
	ID string // Transport delivery identifier
}

// NewIntruderMessage composes the standard video-evidence alert.
func NewIntruderMessage(recipient string, evidence []byte, filename string, detectedAt time.Time) Message {
	return Message{
		Recipient: recipient,
		Subject:   Subject,
		BodyHTML: `<div style="background-color: #ff0000; color: white; padding: 20px; text-align: center;">` +
			`<h1>⚠️ INTRUDER DETECTED! ⚠️</h1>` +
			`<p>An intruder was detected by your security camera.</p>` +
			`<p>Please find the 10-second video footage attached (MP4 format).</p>` +
			`<p>Detection Time: ` + detectedAt.Format(time.RFC1123) + `</p>` +
			`</div>`,
		Attachment: evidence,
		Filename:   filename,
		MIMEType:   "video/webm",
	}
}

// Validate checks that a message carrying evidence actually has some.
func (m Message) Validate() error {
	if len(m.Attachment) == 0 {
		return ErrInvalidAlert
	}
	return nil
}

// EvidenceFilename names a capture artifact after its start time.
func EvidenceFilename(t time.Time) string {
	return "intruder_" + t.UTC().Format(time.RFC3339) + ".webm"
}

// RewriteExt swaps a filename's extension, e.g. ".webm" to ".mp4" after
// transcoding.
func RewriteExt(filename, ext string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[:i] + ext
	}
	return filename + ext
}
