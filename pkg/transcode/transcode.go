// Package transcode converts captured evidence between container/codec
// formats using an exec'd ffmpeg process.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Format identifies a container/codec pairing the pipeline understands.
type Format string

const (
	// MJPEG is the raw capture artifact: concatenated JPEG frames.
	MJPEG Format = "mjpeg"
	// WebM is the intermediate evidence container (VP8).
	WebM Format = "webm"
	// MP4 is the delivery container: H.264 video + AAC audio.
	MP4 Format = "mp4"
)

// Ext returns the file extension for a format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ErrTranscode marks codec/container failures. They are non-retryable
// within an alert cycle; the controller treats them as encoding failure.
var ErrTranscode = errors.New("transcode failed")

// DefaultTimeout bounds a single ffmpeg run.
const DefaultTimeout = 60 * time.Second

// FFmpeg converts between formats by shelling out to ffmpeg.
// Each call lives in its own temp directory which is always removed,
// on the failure path included.
type FFmpeg struct {
	Binary    string        // ffmpeg binary, default "ffmpeg"
	Framerate int           // frame rate assumed for raw MJPEG input
	Timeout   time.Duration // per-conversion deadline
}

// NewFFmpeg creates a converter with production defaults.
func NewFFmpeg(framerate int) *FFmpeg {
	if framerate <= 0 {
		framerate = 15
	}
	return &FFmpeg{
		Binary:    "ffmpeg",
		Framerate: framerate,
		Timeout:   DefaultTimeout,
	}
}

// Convert transcodes src from one format to another and returns the
// resulting artifact. Callers must only hand it complete captures;
// partial or aborted sessions never reach this point.
func (f *FFmpeg) Convert(ctx context.Context, src []byte, from, to Format) ([]byte, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("%w: empty source", ErrTranscode)
	}

	dir, err := os.MkdirTemp("", "sentrycam-transcode-")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", ErrTranscode, err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "in"+from.Ext())
	outPath := filepath.Join(dir, "out"+to.Ext())

	if err := os.WriteFile(inPath, src, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write source: %v", ErrTranscode, err)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, f.args(from, to, inPath, outPath)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrTranscode, err, lastLine(stderr.Bytes()))
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read result: %v", ErrTranscode, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrTranscode)
	}
	return out, nil
}

// args builds the ffmpeg invocation for a conversion.
func (f *FFmpeg) args(from, to Format, inPath, outPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	// Raw MJPEG has no container timing, so the frame rate is declared
	switch from {
	case MJPEG:
		args = append(args, "-f", "mjpeg", "-framerate", fmt.Sprint(f.Framerate))
	}
	args = append(args, "-i", inPath)

	switch to {
	case MP4:
		args = append(args, "-c:v", "libx264", "-c:a", "aac", "-movflags", "+faststart", "-f", "mp4")
	case WebM:
		args = append(args, "-c:v", "libvpx", "-f", "webm")
	case MJPEG:
		args = append(args, "-c:v", "mjpeg", "-f", "mjpeg")
	}

	return append(args, outPath)
}

func lastLine(b []byte) []byte {
	b = bytes.TrimRight(b, "\n")
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return b[i+1:]
	}
	return b
}
