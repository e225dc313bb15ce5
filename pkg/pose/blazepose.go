package pose

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// BlazePose landmark indices that map onto the shared COCO keypoint set.
// BlazePose predicts 33 landmarks; the extra face/hand/foot points are
// dropped so downstream code sees one keypoint vocabulary.
var blazeToCoco = map[int]int{
	0:  0,  // nose
	2:  1,  // left eye
	5:  2,  // right eye
	7:  3,  // left ear
	8:  4,  // right ear
	11: 5,  // left shoulder
	12: 6,  // right shoulder
	13: 7,  // left elbow
	14: 8,  // right elbow
	15: 9,  // left wrist
	16: 10, // right wrist
	23: 11, // left hip
	24: 12, // right hip
	25: 13, // left knee
	26: 14, // right knee
	27: 15, // left ankle
	28: 16, // right ankle
}

const blazeLandmarks = 33

// BlazePoseEstimator runs the BlazePose full-body landmark model via OpenCV DNN
type BlazePoseEstimator struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex // Protects inference
}

// NewBlazePose creates a BlazePose estimator from an ONNX export
func NewBlazePose(cfg Config) (*BlazePoseEstimator, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load BlazePose model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	if cfg.InputWidth == 0 {
		cfg.InputWidth = 256
	}
	if cfg.InputHeight == 0 {
		cfg.InputHeight = 256
	}

	return &BlazePoseEstimator{
		net:    net,
		config: cfg,
	}, nil
}

// Estimate finds keypoints in the JPEG image
func (e *BlazePoseEstimator) Estimate(jpeg []byte) ([]Detection, error) {
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

	// BlazePose expects RGB input scaled to [0,1]
	blob := gocv.BlobFromImage(img, 1.0/255.0,
		image.Pt(e.config.InputWidth, e.config.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	// Landmark output is [1,195]: 33 x (x, y, z, visibility, presence)
	// with x/y in input-image pixels.
	lm := out.Reshape(1, blazeLandmarks)
	defer lm.Close()

	detections := make([]Detection, 0, len(blazeToCoco))
	for r := 0; r < lm.Rows(); r++ {
		cocoIdx, ok := blazeToCoco[r]
		if !ok {
			continue
		}
		detections = append(detections, Detection{
			Name:  KeypointNames[cocoIdx],
			X:     float64(lm.GetFloatAt(r, 0)) / float64(e.config.InputWidth),
			Y:     float64(lm.GetFloatAt(r, 1)) / float64(e.config.InputHeight),
			Score: sigmoid(float64(lm.GetFloatAt(r, 3))),
		})
	}

	return detections, nil
}

// Close releases the network resources
func (e *BlazePoseEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
