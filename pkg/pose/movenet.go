package pose

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// MoveNetEstimator runs MoveNet SinglePose (Lightning/Thunder) via OpenCV DNN
type MoveNetEstimator struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex // Protects inference
}

// NewMoveNet creates a MoveNet estimator from an ONNX export
func NewMoveNet(cfg Config) (*MoveNetEstimator, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load MoveNet model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	if cfg.InputWidth == 0 {
		cfg.InputWidth = 192
	}
	if cfg.InputHeight == 0 {
		cfg.InputHeight = 192
	}

	return &MoveNetEstimator{
		net:    net,
		config: cfg,
	}, nil
}

// Estimate finds keypoints in the JPEG image
func (e *MoveNetEstimator) Estimate(jpeg []byte) ([]Detection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	// MoveNet expects RGB input at the model's native resolution
	blob := gocv.BlobFromImage(img, 1.0,
		image.Pt(e.config.InputWidth, e.config.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	// Output is [1,1,17,3]: (y, x, score) per keypoint, already normalized
	kps := out.Reshape(1, len(KeypointNames))
	defer kps.Close()

	detections := make([]Detection, 0, len(KeypointNames))
	for r := 0; r < kps.Rows(); r++ {
		detections = append(detections, Detection{
			Name:  KeypointNames[r],
			Y:     float64(kps.GetFloatAt(r, 0)),
			X:     float64(kps.GetFloatAt(r, 1)),
			Score: float64(kps.GetFloatAt(r, 2)),
		})
	}

	return detections, nil
}

// Close releases the network resources
func (e *MoveNetEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
