// Package alertapi exposes the delivery endpoint of the alarm pipeline:
// it accepts captured evidence, converts it to a delivery-compatible
// container and mails it to the configured recipient.
package alertapi

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/mkallevig/sentrycam/internal/log"
	"github.com/mkallevig/sentrycam/pkg/alert"
	"github.com/mkallevig/sentrycam/pkg/transcode"
)

// Converter turns the posted webm evidence into mp4
type Converter interface {
	Convert(ctx context.Context, src []byte, from, to transcode.Format) ([]byte, error)
}

// Server is the alert delivery HTTP server.
type Server struct {
	app       *fiber.App
	port      string
	converter Converter
	mailer    alert.Deliverer
	recipient string
}

// sendRequest mirrors the monitor's uplink wire format.
type sendRequest struct {
	VideoBase64 string `json:"videoBase64"`
	Filename    string `json:"filename"`
}

// NewServer wires the delivery endpoint to its collaborators.
func NewServer(port string, converter Converter, mailer alert.Deliverer, recipient string) *Server {
	s := &Server{
		port:      port,
		converter: converter,
		mailer:    mailer,
		recipient: recipient,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Sentrycam Alert Server",
		DisableStartupMessage: true,
		BodyLimit:             64 * 1024 * 1024, // Evidence arrives base64-inflated
	})
	app.Use(cors.New())

	app.Post("/send-email", s.handleSendEmail)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	s.app = app
	return s
}

// handleSendEmail transcodes the posted evidence and mails it.
func (s *Server) handleSendEmail(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil || req.VideoBase64 == "" || req.Filename == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing video data or filename")
	}

	evidence, err := base64.StdEncoding.DecodeString(req.VideoBase64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid base64 video data")
	}

	log.Info("alert received", "filename", req.Filename, "bytes", len(evidence))

	mp4, err := s.converter.Convert(c.UserContext(), evidence, transcode.WebM, transcode.MP4)
	if err != nil {
		log.Error("transcode failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to send email")
	}

	msg := alert.NewIntruderMessage(s.recipient, mp4, alert.RewriteExt(req.Filename, ".mp4"), time.Now())
	msg.MIMEType = "video/mp4"

	result, err := s.mailer.Deliver(c.UserContext(), msg)
	if err != nil {
		log.Error("mail delivery failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to send email")
	}

	log.Info("alert mailed", "id", result.ID, "filename", msg.Filename)
	return c.SendString("Email sent successfully")
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving the delivery endpoint.
func (s *Server) Start() error {
	log.Info("alert server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
