package alert

import (
	"context"
	"sync"
	"time"

	"github.com/mkallevig/sentrycam/internal/log"
	"github.com/mkallevig/sentrycam/pkg/capture"
)

// State is the controller's phase in the alert cycle.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateEncoding   State = "encoding"
	StateDelivering State = "delivering"
	StateCooldown   State = "cooldown"
)

// Encoder converts a complete capture artifact into deliverable evidence
type Encoder interface {
	Encode(ctx context.Context, raw []byte) ([]byte, error)
}

// Deliverer sends a composed alert exactly once, no retries
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) (DeliveryResult, error)
}

// StatusSink receives status snapshots and log lines for display. SetPhase
// is handed the snapshot directly so implementations never call back into
// the controller.
type StatusSink interface {
	SetPhase(snap Snapshot)
	AddLog(logType, message string)
}

// Config holds the controller's timing and delivery parameters.
type Config struct {
	Cooldown  time.Duration // Earliest-next-alert window after a delivery attempt
	Recipient string        // Alert recipient, carried into the message
}

// DefaultConfig returns the reference timing.
func DefaultConfig() Config {
	return Config{Cooldown: 60 * time.Second}
}

// Controller is the alert state machine. It exclusively owns the active
// capture session and the cooldown window; every flag that used to float
// free (recording, sending, last alert time) lives here behind one mutex.
type Controller struct {
	cfg       Config
	buffer    *capture.Buffer
	encoder   Encoder
	deliverer Deliverer
	status    StatusSink

	now func() time.Time

	mu            sync.Mutex
	state         State
	present       bool // Classifier verdict from the latest frame
	cooldownUntil time.Time
	inFlight      bool // One delivery at a time
	suppressed    int  // Presence observed while an alert cycle was already pending
	lastErr       error
	lastAlertAt   time.Time

	wg sync.WaitGroup
}

// Snapshot is a point-in-time view of the controller for status display.
type Snapshot struct {
	State             State     `json:"state"`
	Present           bool      `json:"present"`
	CooldownRemaining float64   `json:"cooldown_remaining_secs"`
	Suppressed        int       `json:"suppressed_detections"`
	LastError         string    `json:"last_error,omitempty"`
	LastAlertAt       time.Time `json:"last_alert_at,omitzero"`
	DeliveryInFlight  bool      `json:"delivery_in_flight"`
}

// NewController wires the state machine to its collaborators.
// The status sink may be nil.
func NewController(cfg Config, buffer *capture.Buffer, encoder Encoder, deliverer Deliverer, status StatusSink) *Controller {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	return &Controller{
		cfg:       cfg,
		buffer:    buffer,
		encoder:   encoder,
		deliverer: deliverer,
		status:    status,
		now:       time.Now,
		state:     StateIdle,
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current status view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked builds the status view. Caller holds c.mu.
func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:            c.state,
		Present:          c.present,
		Suppressed:       c.suppressed,
		LastAlertAt:      c.lastAlertAt,
		DeliveryInFlight: c.inFlight,
	}
	if remaining := c.cooldownUntil.Sub(c.now()); remaining > 0 {
		snap.CooldownRemaining = remaining.Seconds()
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	return snap
}

// OnFrame drives the state machine for one detection cycle. The frame is
// the evidence chunk recorded while capturing; present is the classifier's
// verdict for this cycle. Never blocks on encoding or delivery.
func (c *Controller) OnFrame(frame []byte, present bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.present = present

	// Cooldown expiry is lazy: checked here, no timer task
	if c.state == StateCooldown && !now.Before(c.cooldownUntil) {
		c.setState(StateIdle)
	}

	switch c.state {
	case StateCapturing:
		c.buffer.Append(frame)
		if c.buffer.Expired(now) {
			c.finishCapture()
		}

	case StateIdle:
		if !present {
			return
		}
		if now.Before(c.cooldownUntil) || c.inFlight {
			// Rate limit: observed, counted, not alerted
			c.suppressed++
			return
		}
		if _, err := c.buffer.Start(now); err != nil {
			// Guard failure: reject rather than corrupt state
			c.lastErr = err
			log.Warn("capture start rejected", "error", err)
			return
		}
		c.buffer.Append(frame)
		c.suppressed = 0
		c.setState(StateCapturing)
		c.logf("alert", "presence detected, capturing evidence")

	default:
		// Encoding, delivering or cooling down: presence changes nothing
		if present {
			c.suppressed++
		}
	}
}

// StopCapture ends an active capture early (explicit stop beats the timer).
func (c *Controller) StopCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCapturing {
		c.finishCapture()
	}
}

// AbortCapture discards an active capture after a stream error. The
// session never reaches encoding or delivery and the machine returns to
// Idle instead of hanging on a completion that will not come. The
// cooldown window still advances so a flapping stream cannot hot-loop.
func (c *Controller) AbortCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCapturing {
		return
	}
	c.buffer.Abort()
	c.cooldownUntil = c.now().Add(c.cfg.Cooldown)
	c.setState(StateIdle)
	c.logf("error", "capture aborted, evidence discarded")
}

// Stop shuts the controller down: any active capture is aborted and
// discarded; an in-flight delivery is left to finish asynchronously.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == StateCapturing {
		c.buffer.Abort()
	}
	c.setState(StateIdle)
	c.mu.Unlock()
}

// Wait blocks until any outstanding encode/deliver pipeline has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// finishCapture hands the completed session to the async pipeline.
// Caller holds c.mu.
func (c *Controller) finishCapture() {
	session := c.buffer.Stop()
	if session == nil {
		return
	}
	c.setState(StateEncoding)
	c.wg.Add(1)
	go c.process(session)
}

// process runs encode → deliver for one completed session. It is the only
// writer of the cooldown window, and always writes it after the terminal
// outcome of the cycle.
func (c *Controller) process(session *capture.Session) {
	defer c.wg.Done()
	ctx := context.Background()

	encoded, err := c.encoder.Encode(ctx, session.Bytes())
	if err != nil {
		// Cooldown starts anyway so a broken transcoder can't hot-loop
		c.mu.Lock()
		c.lastErr = err
		c.cooldownUntil = c.now().Add(c.cfg.Cooldown)
		c.setState(StateIdle)
		c.mu.Unlock()
		c.logf("error", "encoding failed: "+err.Error())
		return
	}

	msg := NewIntruderMessage(c.cfg.Recipient, encoded, EvidenceFilename(session.StartedAt), session.StartedAt)

	c.mu.Lock()
	c.inFlight = true
	c.setState(StateDelivering)
	c.mu.Unlock()

	result, err := c.deliverer.Deliver(ctx, msg)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.lastErr = err
	} else {
		c.lastErr = nil
		c.lastAlertAt = c.now()
	}
	c.cooldownUntil = c.now().Add(c.cfg.Cooldown)
	c.setState(StateCooldown)
	c.mu.Unlock()

	if err != nil {
		c.logf("error", "delivery failed: "+err.Error())
	} else {
		c.logf("alert", "alert delivered ("+result.ID+")")
	}
}

// setState transitions and notifies the sink. Caller holds c.mu.
func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.status != nil {
		c.status.SetPhase(c.snapshotLocked())
	}
}

func (c *Controller) logf(logType, message string) {
	log.Info(message, "type", logType)
	if c.status != nil {
		c.status.AddLog(logType, message)
	}
}
