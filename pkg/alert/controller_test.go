package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkallevig/sentrycam/pkg/capture"
)

// fakeClock lets tests drive the controller's notion of time.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

type fakeEncoder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *fakeEncoder) Encode(ctx context.Context, raw []byte) ([]byte, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return append([]byte("webm:"), raw...), nil
}

func (e *fakeEncoder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeDeliverer struct {
	mu       sync.Mutex
	err      error
	messages []Message
	times    []time.Time // Delivery completion times on the fake clock

	clock *fakeClock
	gate  chan struct{} // If set, Deliver blocks until the gate closes
}

func (d *fakeDeliverer) Deliver(ctx context.Context, msg Message) (DeliveryResult, error) {
	if d.gate != nil {
		<-d.gate
	}
	d.mu.Lock()
	d.messages = append(d.messages, msg)
	d.times = append(d.times, d.clock.Now())
	d.mu.Unlock()
	if d.err != nil {
		return DeliveryResult{}, d.err
	}
	return DeliveryResult{ID: "msg-1"}, nil
}

func (d *fakeDeliverer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

func newTestController(clk *fakeClock, enc *fakeEncoder, del *fakeDeliverer) *Controller {
	c := NewController(
		Config{Cooldown: 60 * time.Second, Recipient: "owner@example.com"},
		capture.NewBuffer(10*time.Second),
		enc, del, nil,
	)
	c.now = clk.Now
	return c
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for state %s, stuck at %s", want, c.State())
}

// driveCapture pushes frames through a full 10-second capture window.
func driveCapture(c *Controller, clk *fakeClock) {
	c.OnFrame([]byte("f0"), true)
	for i := 0; i < 10; i++ {
		clk.Advance(time.Second)
		c.OnFrame([]byte("f"), true)
	}
}

func TestController_ScenarioA_FullCycle(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{}
	del := &fakeDeliverer{clock: clk}
	c := newTestController(clk, enc, del)
	start := clk.Now()

	if c.State() != StateIdle {
		t.Fatalf("Expected idle start, got %s", c.State())
	}

	driveCapture(c, clk)
	waitState(t, c, StateCooldown)

	if del.Count() != 1 {
		t.Fatalf("Expected 1 delivery, got %d", del.Count())
	}
	msg := del.messages[0]
	if !strings.HasPrefix(msg.Filename, "intruder_") || !strings.HasSuffix(msg.Filename, ".webm") {
		t.Errorf("Bad evidence filename: %s", msg.Filename)
	}
	if !strings.HasPrefix(string(msg.Attachment), "webm:") {
		t.Error("Delivered attachment did not come from the encoder")
	}
	if msg.Subject != Subject {
		t.Errorf("Wrong subject: %s", msg.Subject)
	}

	// Cooldown window = end of delivery + 60s = start + 10 + 60
	snap := c.Snapshot()
	if snap.CooldownRemaining < 59 || snap.CooldownRemaining > 60 {
		t.Errorf("Expected ~60s cooldown remaining, got %v", snap.CooldownRemaining)
	}

	// Presence just before expiry is suppressed
	clk.Advance(59 * time.Second)
	c.OnFrame([]byte("f"), true)
	if c.State() != StateCooldown {
		t.Errorf("Expected still cooling down at t+69, got %s", c.State())
	}

	// At start+70 the window has expired and a new cycle begins
	clk.Advance(time.Second)
	c.OnFrame([]byte("f"), true)
	if c.State() != StateCapturing {
		t.Errorf("Expected capturing at t+70, got %s", c.State())
	}
	if got := clk.Now().Sub(start); got != 70*time.Second {
		t.Errorf("Clock drift in test: %v", got)
	}
}

func TestController_ScenarioB_PresenceMidCaptureIgnored(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{}
	del := &fakeDeliverer{clock: clk}
	c := newTestController(clk, enc, del)

	c.OnFrame([]byte("f"), true)
	clk.Advance(5 * time.Second)
	c.OnFrame([]byte("f"), true) // Second detection mid-capture

	if c.State() != StateCapturing {
		t.Fatalf("Expected capturing, got %s", c.State())
	}

	clk.Advance(5 * time.Second)
	c.OnFrame([]byte("f"), true)
	waitState(t, c, StateCooldown)

	if enc.Calls() != 1 {
		t.Errorf("Expected exactly one session encoded, got %d", enc.Calls())
	}
	if del.Count() != 1 {
		t.Errorf("Expected exactly one delivery, got %d", del.Count())
	}
}

func TestController_ScenarioC_DeliveryFailureNoRetryUntilCooldown(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{}
	del := &fakeDeliverer{clock: clk, err: errors.New("smtp: connection refused")}
	c := newTestController(clk, enc, del)

	driveCapture(c, clk)
	waitState(t, c, StateCooldown)

	if del.Count() != 1 {
		t.Fatalf("Expected 1 attempt, got %d", del.Count())
	}
	if c.Snapshot().LastError == "" {
		t.Error("Expected delivery error surfaced in snapshot")
	}

	// No retry while cooling down, even with sustained presence
	clk.Advance(30 * time.Second)
	c.OnFrame([]byte("f"), true)
	if del.Count() != 1 || c.State() != StateCooldown {
		t.Errorf("Retry before cooldown expiry: count=%d state=%s", del.Count(), c.State())
	}

	// Fresh attempt allowed once the window expires (t = 10 + 60)
	clk.Advance(30 * time.Second)
	c.OnFrame([]byte("f"), true)
	if c.State() != StateCapturing {
		t.Errorf("Expected new capture after cooldown expiry, got %s", c.State())
	}
}

func TestController_ScenarioD_NoPresenceNoTransition(t *testing.T) {
	clk := newFakeClock()
	c := newTestController(clk, &fakeEncoder{}, &fakeDeliverer{clock: clk})

	for i := 0; i < 5; i++ {
		c.OnFrame([]byte("f"), false)
		clk.Advance(time.Second)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle with no presence, got %s", c.State())
	}
}

func TestController_CooldownInvariant(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{}
	del := &fakeDeliverer{clock: clk}
	c := newTestController(clk, enc, del)

	// Sustained presence for five minutes of frames
	for i := 0; i < 300; i++ {
		c.OnFrame([]byte("f"), true)
		clk.Advance(time.Second)
		// Let any finished pipeline settle so state is deterministic
		if c.State() == StateEncoding || c.State() == StateDelivering {
			c.Wait()
			c.OnFrame([]byte("f"), true)
		}
	}
	c.Wait()

	del.mu.Lock()
	times := append([]time.Time(nil), del.times...)
	del.mu.Unlock()

	if len(times) < 2 {
		t.Fatalf("Expected multiple deliveries over 5 minutes, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < 60*time.Second {
			t.Errorf("Deliveries %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestController_EncodingFailureCoolsDown(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{err: errors.New("ffmpeg exploded")}
	del := &fakeDeliverer{clock: clk}
	c := newTestController(clk, enc, del)

	driveCapture(c, clk)
	waitState(t, c, StateIdle)

	if del.Count() != 0 {
		t.Errorf("Failed encode must not be delivered, got %d deliveries", del.Count())
	}

	// Back in Idle but the cooldown window still gates the next attempt
	c.OnFrame([]byte("f"), true)
	if c.State() != StateIdle {
		t.Errorf("Expected cooldown to suppress immediate retry, got %s", c.State())
	}

	clk.Advance(61 * time.Second)
	c.OnFrame([]byte("f"), true)
	if c.State() != StateCapturing {
		t.Errorf("Expected capture after cooldown, got %s", c.State())
	}
}

func TestController_PresenceMidDeliveryStartsNothing(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{}
	gate := make(chan struct{})
	del := &fakeDeliverer{clock: clk, gate: gate}
	c := newTestController(clk, enc, del)

	driveCapture(c, clk)
	waitState(t, c, StateDelivering)

	// Delivery is blocked in flight; presence must not open a session
	c.OnFrame([]byte("f"), true)
	if c.State() != StateDelivering {
		t.Errorf("Expected delivering, got %s", c.State())
	}
	snap := c.Snapshot()
	if !snap.DeliveryInFlight {
		t.Error("Expected in-flight delivery in snapshot")
	}
	if snap.Suppressed == 0 {
		t.Error("Expected suppressed detection to be counted")
	}

	close(gate)
	waitState(t, c, StateCooldown)
	if del.Count() != 1 {
		t.Errorf("Expected single delivery, got %d", del.Count())
	}
}

func TestController_AbortDiscards(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{}
	del := &fakeDeliverer{clock: clk}
	c := newTestController(clk, enc, del)

	c.OnFrame([]byte("f"), true)
	clk.Advance(3 * time.Second)
	c.OnFrame([]byte("f"), true)

	c.AbortCapture()
	if c.State() != StateIdle {
		t.Errorf("Expected idle after abort, got %s", c.State())
	}
	c.Wait()
	if enc.Calls() != 0 || del.Count() != 0 {
		t.Error("Aborted session must never be encoded or delivered")
	}

	// Abort advanced the cooldown window like any terminated cycle
	c.OnFrame([]byte("f"), true)
	if c.State() != StateIdle {
		t.Errorf("Expected cooldown to gate recapture after abort, got %s", c.State())
	}

	clk.Advance(61 * time.Second)
	c.OnFrame([]byte("f"), true)
	if c.State() != StateCapturing {
		t.Errorf("Expected recapture after cooldown expiry, got %s", c.State())
	}
}

func TestController_ExplicitStopBeatsTimer(t *testing.T) {
	clk := newFakeClock()
	enc := &fakeEncoder{}
	del := &fakeDeliverer{clock: clk}
	c := newTestController(clk, enc, del)

	c.OnFrame([]byte("f"), true)
	clk.Advance(2 * time.Second)
	c.OnFrame([]byte("f"), true)

	c.StopCapture()
	waitState(t, c, StateCooldown)
	if del.Count() != 1 {
		t.Errorf("Expected delivery after explicit stop, got %d", del.Count())
	}

	// Duplicate stop is a no-op
	c.StopCapture()
	c.Wait()
	if del.Count() != 1 {
		t.Errorf("Duplicate stop caused extra work: %d deliveries", del.Count())
	}
}

func TestEvidenceFilename(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	name := EvidenceFilename(ts)
	if name != "intruder_2025-06-01T12:30:45Z.webm" {
		t.Errorf("Unexpected filename: %s", name)
	}
	if got := RewriteExt(name, ".mp4"); got != "intruder_2025-06-01T12:30:45Z.mp4" {
		t.Errorf("Unexpected rewrite: %s", got)
	}
}

func TestMessage_Validate(t *testing.T) {
	msg := NewIntruderMessage("owner@example.com", nil, "intruder_x.webm", time.Now())
	if err := msg.Validate(); !errors.Is(err, ErrInvalidAlert) {
		t.Errorf("Expected ErrInvalidAlert for empty attachment, got %v", err)
	}

	msg.Attachment = []byte{1}
	if err := msg.Validate(); err != nil {
		t.Errorf("Expected valid message, got %v", err)
	}
}
