package recognize

import (
	"math"
)

// DetectionResult is the output of the external face-detection component
// for one enrollment capture. Coordinates are raw pixels.
type DetectionResult struct {
	FaceDetected bool      `json:"faceDetected"`
	DetScore     float64   `json:"detScore"` // detector confidence in [0,1]
	BBox         []float64 `json:"bbox"`     // [x1, y1, x2, y2]
	ImageWidth   int       `json:"imageWidth"`
	ImageHeight  int       `json:"imageHeight"`

	LandmarksPresent bool `json:"landmarksPresent"`
	LeftEyeVisible   bool `json:"leftEyeVisible"`
	RightEyeVisible  bool `json:"rightEyeVisible"`
	MouthVisible     bool `json:"mouthVisible"`

	// Head pose angles in degrees.
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// QualityReport is the result of scoring one enrollment capture.
type QualityReport struct {
	Score         int            `json:"score"` // 0-100
	IsGoodQuality bool           `json:"isGoodQuality"`
	Warnings      []string       `json:"warnings"`
	Details       map[string]int `json:"details"` // points awarded per check
}

// QualityScorer gates what enters the embedding store at enrollment time.
// It is never applied to runtime check-in probes.
type QualityScorer struct {
	MinDetScore     float64 // minimum detector confidence
	MinFaceRatio    float64 // minimum face width relative to image width
	MaxFaceRatio    float64 // maximum face width relative to image width
	MaxCenterOffset float64 // maximum face-center offset from image center, relative
	MaxHeadAngle    float64 // maximum |yaw|/|pitch|/|roll| in degrees
}

// NewQualityScorer returns a scorer with the deployment defaults.
func NewQualityScorer() *QualityScorer {
	return &QualityScorer{
		MinDetScore:     0.8,
		MinFaceRatio:    0.1,
		MaxFaceRatio:    0.8,
		MaxCenterOffset: 0.25,
		MaxHeadAngle:    20,
	}
}

// goodQualityMinScore is the score floor for a capture to pass. A high
// score alone is not enough: any warning fails the capture, so a single
// disqualifying defect cannot be masked by points from other checks.
const goodQualityMinScore = 80

// Score evaluates one detection result. Points are additive per check and
// capped at 100; every failed check adds a warning.
func (q *QualityScorer) Score(det *DetectionResult) *QualityReport {
	report := &QualityReport{
		Warnings: []string{},
		Details:  make(map[string]int),
	}

	award := func(name string, points int, ok bool, warning string) {
		if ok {
			report.Score += points
			report.Details[name] = points
		} else {
			report.Details[name] = 0
			report.Warnings = append(report.Warnings, warning)
		}
	}

	award("faceDetected", 20, det.FaceDetected, "no face detected")
	award("detScore", 20, det.FaceDetected && det.DetScore >= q.MinDetScore, "low detection confidence")
	award("faceSize", 15, q.faceSizeOK(det), "face size out of bounds")
	award("centered", 15, q.centeredOK(det), "face off-center")
	award("landmarks", 10, det.LandmarksPresent, "landmarks missing")
	award("eyes", 10, det.LeftEyeVisible && det.RightEyeVisible, "both eyes not visible")
	award("mouth", 5, det.MouthVisible, "mouth not visible")
	award("headAngle", 5, q.headAngleOK(det), "head angle out of tolerance")

	if report.Score > 100 {
		report.Score = 100
	}

	report.IsGoodQuality = report.Score >= goodQualityMinScore && len(report.Warnings) == 0
	return report
}

func (q *QualityScorer) faceSizeOK(det *DetectionResult) bool {
	if len(det.BBox) != 4 || det.ImageWidth <= 0 {
		return false
	}
	ratio := (det.BBox[2] - det.BBox[0]) / float64(det.ImageWidth)
	return ratio >= q.MinFaceRatio && ratio <= q.MaxFaceRatio
}

func (q *QualityScorer) centeredOK(det *DetectionResult) bool {
	if len(det.BBox) != 4 || det.ImageWidth <= 0 || det.ImageHeight <= 0 {
		return false
	}
	cx := (det.BBox[0] + det.BBox[2]) / 2 / float64(det.ImageWidth)
	cy := (det.BBox[1] + det.BBox[3]) / 2 / float64(det.ImageHeight)
	return math.Abs(cx-0.5) <= q.MaxCenterOffset && math.Abs(cy-0.5) <= q.MaxCenterOffset
}

func (q *QualityScorer) headAngleOK(det *DetectionResult) bool {
	return math.Abs(det.Yaw) <= q.MaxHeadAngle &&
		math.Abs(det.Pitch) <= q.MaxHeadAngle &&
		math.Abs(det.Roll) <= q.MaxHeadAngle
}
