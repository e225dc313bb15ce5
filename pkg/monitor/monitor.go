// Package monitor runs the per-frame detection cycle: acquire a frame,
// classify presence, drive the alert state machine, feed the dashboard.
package monitor

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/mkallevig/sentrycam/internal/log"
	"github.com/mkallevig/sentrycam/pkg/alert"
	"github.com/mkallevig/sentrycam/pkg/pose"
)

// FrameSource produces JPEG frames from the live feed
type FrameSource interface {
	CaptureJPEG() ([]byte, error)
}

// FrameSink receives annotated frames for display
type FrameSink interface {
	SendCameraFrame(jpeg []byte)
}

// maxConsecutiveReadErrors bounds how long a dead feed is tolerated
// before the monitor gives up.
const maxConsecutiveReadErrors = 30

// Monitor owns the detection loop.
type Monitor struct {
	source     FrameSource
	estimator  pose.Estimator
	classifier *pose.Classifier
	controller *alert.Controller
	sink       FrameSink // Optional
	interval   time.Duration

	readErrors int
}

// New assembles a monitor. The sink may be nil when no dashboard is wanted.
func New(source FrameSource, estimator pose.Estimator, classifier *pose.Classifier,
	controller *alert.Controller, sink FrameSink, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 66 * time.Millisecond // ~15 fps
	}
	return &Monitor{
		source:     source,
		estimator:  estimator,
		classifier: classifier,
		controller: controller,
		sink:       sink,
		interval:   interval,
	}
}

// Run drives detection cycles until the context is cancelled or the feed
// dies. Cancellation force-aborts any active capture; an in-flight
// delivery finishes asynchronously and is not waited for.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Info("monitor started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			m.controller.Stop()
			log.Info("monitor stopped")
			return nil

		case <-ticker.C:
			if err := m.cycle(); err != nil {
				m.controller.Stop()
				return err
			}
		}
	}
}

// cycle runs one detection pass. Every failure short of a dead feed is
// converted to status and the loop keeps going.
func (m *Monitor) cycle() error {
	frame, err := m.source.CaptureJPEG()
	if err != nil {
		m.readErrors++
		// Evidence for the active session is gone; discard it
		m.controller.AbortCapture()
		if m.readErrors >= maxConsecutiveReadErrors {
			return fmt.Errorf("monitor: camera feed dead after %d read errors: %w", m.readErrors, err)
		}
		log.Warn("frame read failed", "error", err, "consecutive", m.readErrors)
		return nil
	}
	m.readErrors = 0

	dets, err := m.estimator.Estimate(frame)
	if err != nil {
		// Fatal to this cycle only: skip it, keep the loop alive
		log.Error("pose estimation failed", "error", err)
		return nil
	}

	sig := m.classifier.Classify(dets)
	m.controller.OnFrame(frame, sig.Present)

	if m.sink != nil {
		m.sink.SendCameraFrame(m.annotate(frame, sig.Keypoints))
	}
	return nil
}

// annotate draws confident keypoints onto the frame for the dashboard.
// Falls back to the raw frame if decoding fails.
func (m *Monitor) annotate(frame []byte, kps []pose.Detection) []byte {
	if len(kps) == 0 {
		return frame
	}

	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return frame
	}
	defer img.Close()

	pose.DrawKeypoints(&img, kps)

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return frame
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out
}
