package pose

import "fmt"

// New creates the estimator variant named in cfg.Model.
// Model selection lives here so the detection loop never branches on strings.
func New(cfg Config) (Estimator, error) {
	switch cfg.Model {
	case "movenet", "":
		return NewMoveNet(cfg)
	case "blazepose":
		return NewBlazePose(cfg)
	case "posenet":
		return NewPoseNet(cfg)
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown pose model: %q", cfg.Model)
	}
}
