package pose

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// PoseNet MobileNetV1 frozen-graph parameters.
const (
	posenetStride = 16
	posenetWidth  = 640
	posenetHeight = 480
)

// PoseNetEstimator runs the classic PoseNet MobileNetV1 graph via OpenCV DNN.
// Decoding is single-pose: argmax per heatmap plane plus the offset field.
type PoseNetEstimator struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex // Protects inference
}

// NewPoseNet creates a PoseNet estimator from a TensorFlow frozen graph
func NewPoseNet(cfg Config) (*PoseNetEstimator, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.GraphConfig)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load PoseNet model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	if cfg.InputWidth == 0 {
		cfg.InputWidth = posenetWidth
	}
	if cfg.InputHeight == 0 {
		cfg.InputHeight = posenetHeight
	}

	return &PoseNetEstimator{
		net:    net,
		config: cfg,
	}, nil
}

// Estimate finds keypoints in the JPEG image
func (e *PoseNetEstimator) Estimate(jpeg []byte) ([]Detection, error) {
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

	// PoseNet expects RGB scaled to [-1,1]
	blob := gocv.BlobFromImage(img, 2.0/255.0,
		image.Pt(e.config.InputWidth, e.config.InputHeight),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	outs := e.net.ForwardLayers([]string{"heatmap", "offset_2"})
	if len(outs) != 2 {
		return nil, fmt.Errorf("unexpected posenet outputs: %d", len(outs))
	}
	heatmap, offsets := outs[0], outs[1]
	defer heatmap.Close()
	defer offsets.Close()

	hm, err := heatmap.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read heatmap: %w", err)
	}
	off, err := offsets.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read offsets: %w", err)
	}

	// Heatmap layout is [1, rows, cols, 17]; offsets [1, rows, cols, 34]
	// with the y offsets in the first 17 planes.
	rows := e.config.InputHeight/posenetStride + 1
	cols := e.config.InputWidth/posenetStride + 1
	n := len(KeypointNames)

	detections := make([]Detection, 0, n)
	for k := 0; k < n; k++ {
		bestRow, bestCol, bestScore := 0, 0, float32(-1)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				s := hm[(r*cols+c)*n+k]
				if s > bestScore {
					bestScore, bestRow, bestCol = s, r, c
				}
			}
		}

		offY := off[(bestRow*cols+bestCol)*2*n+k]
		offX := off[(bestRow*cols+bestCol)*2*n+n+k]

		detections = append(detections, Detection{
			Name:  KeypointNames[k],
			X:     (float64(bestCol*posenetStride) + float64(offX)) / float64(e.config.InputWidth),
			Y:     (float64(bestRow*posenetStride) + float64(offY)) / float64(e.config.InputHeight),
			Score: sigmoid(float64(bestScore)),
		})
	}

	return detections, nil
}

// Close releases the network resources
func (e *PoseNetEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
