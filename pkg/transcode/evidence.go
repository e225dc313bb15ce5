package transcode

import "context"

// EvidenceEncoder packs a completed capture's MJPEG chunk sequence into
// the webm evidence container. It satisfies the controller's Encoder
// contract.
type EvidenceEncoder struct {
	FF *FFmpeg
}

// Encode converts raw MJPEG frames to webm.
func (e EvidenceEncoder) Encode(ctx context.Context, raw []byte) ([]byte, error) {
	return e.FF.Convert(ctx, raw, MJPEG, WebM)
}
