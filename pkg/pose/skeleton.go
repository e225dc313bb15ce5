package pose

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Bone connections for rendering a human skeleton.
var skeleton = [][2]string{
	{"nose", "left_eye"}, {"nose", "right_eye"},
	{"left_eye", "left_ear"}, {"right_eye", "right_ear"},
	{"nose", "left_shoulder"}, {"nose", "right_shoulder"},
	{"left_shoulder", "left_elbow"}, {"right_shoulder", "right_elbow"},
	{"left_elbow", "left_wrist"}, {"right_elbow", "right_wrist"},
	{"left_shoulder", "right_shoulder"},
	{"left_shoulder", "left_hip"}, {"right_shoulder", "right_hip"},
	{"left_hip", "right_hip"},
	{"left_hip", "left_knee"}, {"right_hip", "right_knee"},
	{"left_knee", "left_ankle"}, {"right_knee", "right_ankle"},
}

var (
	jointColor = color.RGBA{R: 255}
	boneColor  = color.RGBA{G: 200}
)

// DrawKeypoints renders confident keypoints and skeleton bones onto img.
// Keypoint coordinates are 0-1 normalized; img provides the pixel scale.
func DrawKeypoints(img *gocv.Mat, kps []Detection) {
	if img.Empty() || len(kps) == 0 {
		return
	}

	w := float64(img.Cols())
	h := float64(img.Rows())

	byName := make(map[string]Detection, len(kps))
	for _, kp := range kps {
		byName[kp.Name] = kp
	}

	for _, bone := range skeleton {
		p1, ok1 := byName[bone[0]]
		p2, ok2 := byName[bone[1]]
		if !ok1 || !ok2 {
			continue
		}
		gocv.Line(img,
			image.Pt(int(p1.X*w), int(p1.Y*h)),
			image.Pt(int(p2.X*w), int(p2.Y*h)),
			boneColor, 2)
	}

	for _, kp := range kps {
		gocv.Circle(img, image.Pt(int(kp.X*w), int(kp.Y*h)), 4, jointColor, -1)
	}
}
