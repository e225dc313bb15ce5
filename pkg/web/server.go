// Package web provides the monitor's real-time status dashboard: the
// continuously updated status line of the alarm pipeline plus a live
// annotated camera feed.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/mkallevig/sentrycam/pkg/alert"
	"github.com/mkallevig/sentrycam/pkg/hub"
)

// StatusProvider exposes the alert controller's current view.
type StatusProvider interface {
	Snapshot() alert.Snapshot
}

// LogEntry is one status line for the dashboard.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, alert, error
	Message string `json:"message"`
}

// Server is the dashboard server. It implements alert.StatusSink so the
// controller's phase changes and log lines show up live.
type Server struct {
	app    *fiber.App
	port   string
	status StatusProvider

	// Log buffer (last 500 entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates the dashboard server.
func NewServer(port string, status StatusProvider) *Server {
	s := &Server{
		port:      port,
		status:    status,
		logs:      make([]LogEntry, 0, 500),
		statusHub: hub.New("status"),
		logHub:    hub.New("logs"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Sentrycam Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/logs", s.handleGetLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleWS(s.statusHub)))
	app.Get("/ws/logs", websocket.New(s.handleWS(s.logHub)))
	app.Get("/ws/camera", websocket.New(s.handleWS(s.cameraHub)))

	s.app = app
	return s
}

// handleStatus returns the current pipeline snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.status == nil {
		return c.JSON(alert.Snapshot{State: alert.StateIdle})
	}
	return c.JSON(s.status.Snapshot())
}

// handleGetLogs returns the buffered log lines.
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleWS registers the connection with a hub and pumps until it closes.
func (s *Server) handleWS(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		hub.NewClient(h, conn).Run()
	}
}

// SetPhase broadcasts the controller's snapshot whenever it moves.
// Part of the alert.StatusSink contract.
func (s *Server) SetPhase(snap alert.Snapshot) {
	s.statusHub.BroadcastJSON(snap)
}

// AddLog buffers a log line and broadcasts it to dashboard clients.
// Part of the alert.StatusSink contract.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > 500 {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// SendCameraFrame broadcasts an annotated JPEG frame to viewers.
func (s *Server) SendCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// SetStatusProvider wires the controller in after construction.
func (s *Server) SetStatusProvider(p StatusProvider) {
	s.status = p
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving the dashboard.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.logHub.Run()
	go s.cameraHub.Run()
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the dashboard in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			// The monitor keeps running without its dashboard
			s.AddLog("error", "dashboard server stopped: "+err.Error())
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
