package transcode

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFFmpeg_Args(t *testing.T) {
	f := NewFFmpeg(15)

	tests := []struct {
		name string
		from Format
		to   Format
		want []string
	}{
		{"webm to mp4", WebM, MP4, []string{"-c:v", "libx264", "-c:a", "aac"}},
		{"mjpeg to webm", MJPEG, WebM, []string{"-f", "mjpeg", "-framerate", "15", "-c:v", "libvpx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(f.args(tt.from, tt.to, "in", "out"), " ")
			for i := 0; i+1 < len(tt.want); i += 2 {
				pair := tt.want[i] + " " + tt.want[i+1]
				if !strings.Contains(got, pair) {
					t.Errorf("args missing %q: %s", pair, got)
				}
			}
			if !strings.HasSuffix(got, "out") {
				t.Errorf("output path must come last: %s", got)
			}
		})
	}
}

func TestFormat_Ext(t *testing.T) {
	if WebM.Ext() != ".webm" || MP4.Ext() != ".mp4" {
		t.Errorf("unexpected extensions: %s %s", WebM.Ext(), MP4.Ext())
	}
}

func TestFFmpeg_EmptySource(t *testing.T) {
	f := NewFFmpeg(15)
	_, err := f.Convert(context.Background(), nil, WebM, MP4)
	if !errors.Is(err, ErrTranscode) {
		t.Errorf("Expected ErrTranscode for empty source, got %v", err)
	}
}

func TestFFmpeg_MissingBinary(t *testing.T) {
	f := NewFFmpeg(15)
	f.Binary = "ffmpeg-definitely-not-installed"

	_, err := f.Convert(context.Background(), []byte("x"), WebM, MP4)
	if !errors.Is(err, ErrTranscode) {
		t.Errorf("Expected ErrTranscode when ffmpeg is missing, got %v", err)
	}
}
