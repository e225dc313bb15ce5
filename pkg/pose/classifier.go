package pose

// Signal is the per-cycle presence decision derived from raw detections.
type Signal struct {
	Present   bool
	Keypoints []Detection // Keypoints above the confidence threshold
}

// Classifier converts raw detections into a presence signal.
// It is a pure function over its input; unavailable detectors hand it
// an empty slice and it reports absence rather than failing.
type Classifier struct {
	ScoreThresh  float64 // Minimum keypoint confidence
	MinKeypoints int     // Confident keypoints required for presence
}

// NewClassifier creates a classifier with the given thresholds.
// Zero values fall back to the reference behavior (0.3, one keypoint).
func NewClassifier(scoreThresh float64, minKeypoints int) *Classifier {
	if scoreThresh <= 0 {
		scoreThresh = 0.3
	}
	if minKeypoints <= 0 {
		minKeypoints = 1
	}
	return &Classifier{
		ScoreThresh:  scoreThresh,
		MinKeypoints: minKeypoints,
	}
}

// Classify filters detections by confidence and decides presence.
// Nil or empty input yields Present=false.
func (c *Classifier) Classify(dets []Detection) Signal {
	if len(dets) == 0 {
		return Signal{}
	}

	confident := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Score > c.ScoreThresh {
			confident = append(confident, d)
		}
	}

	return Signal{
		Present:   len(confident) >= c.MinKeypoints,
		Keypoints: confident,
	}
}
