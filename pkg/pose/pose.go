// Package pose provides human pose estimation using computer vision
package pose

// Keypoint names in COCO order, shared by all estimator backends.
var KeypointNames = []string{
	"nose",
	"left_eye", "right_eye",
	"left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

// Detection represents a single named keypoint
type Detection struct {
	Name  string  // Anatomical keypoint name
	X, Y  float64 // Position (0-1 normalized)
	Score float64 // Confidence (0-1)
}

// Estimator is the interface for pose estimation backends
type Estimator interface {
	// Estimate finds keypoints of the most prominent person in the image
	Estimate(jpeg []byte) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Config holds estimator configuration
type Config struct {
	Model        string  // "movenet", "blazepose" or "posenet"
	ModelPath    string  // Path to ONNX model (or frozen graph for posenet)
	GraphConfig  string  // pbtxt config, posenet only
	ScoreThresh  float64 // Minimum keypoint confidence (default 0.3)
	InputWidth   int     // Model input width
	InputHeight  int     // Model input height
	MinKeypoints int     // Keypoints above threshold required for presence
}

// DefaultConfig returns production defaults for MoveNet Lightning
func DefaultConfig() Config {
	return Config{
		Model:        "movenet",
		ModelPath:    "models/movenet_singlepose_lightning.onnx",
		ScoreThresh:  0.3,
		InputWidth:   192,
		InputHeight:  192,
		MinKeypoints: 1,
	}
}
