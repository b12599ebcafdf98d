package recognize

import (
	"testing"
)

// goodDetection is a capture that passes every check: centered face,
// roughly a third of the frame, all landmarks visible, head straight.
func goodDetection() *DetectionResult {
	return &DetectionResult{
		FaceDetected:     true,
		DetScore:         0.97,
		BBox:             []float64{200, 150, 440, 450},
		ImageWidth:       640,
		ImageHeight:      480,
		LandmarksPresent: true,
		LeftEyeVisible:   true,
		RightEyeVisible:  true,
		MouthVisible:     true,
		Yaw:              3,
		Pitch:            -5,
		Roll:             1,
	}
}

func TestQualityScorer_PerfectCapture(t *testing.T) {
	report := NewQualityScorer().Score(goodDetection())

	if report.Score != 100 {
		t.Errorf("Score = %d, want 100", report.Score)
	}
	if !report.IsGoodQuality {
		t.Errorf("IsGoodQuality = false, warnings: %v", report.Warnings)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
}

func TestQualityScorer_NoFace(t *testing.T) {
	report := NewQualityScorer().Score(&DetectionResult{})

	if report.IsGoodQuality {
		t.Error("empty detection must not pass the gate")
	}
	if report.Score >= goodQualityMinScore {
		t.Errorf("Score = %d, expected below %d", report.Score, goodQualityMinScore)
	}
	if len(report.Warnings) == 0 {
		t.Error("expected warnings for a faceless capture")
	}
}

func TestQualityScorer_AnyWarningFailsTheGate(t *testing.T) {
	// Losing only the mouth check still scores 95, but the warning alone
	// must fail the capture: a score above the floor cannot mask a defect.
	det := goodDetection()
	det.MouthVisible = false

	report := NewQualityScorer().Score(det)
	if report.Score != 95 {
		t.Errorf("Score = %d, want 95", report.Score)
	}
	if report.IsGoodQuality {
		t.Error("a capture with a warning must not pass even above the score floor")
	}
	if len(report.Warnings) != 1 || report.Warnings[0] != "mouth not visible" {
		t.Errorf("Warnings = %v, want [mouth not visible]", report.Warnings)
	}
}

func TestQualityScorer_Checks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DetectionResult)
		warning string
	}{
		{"low detector confidence", func(d *DetectionResult) { d.DetScore = 0.6 }, "low detection confidence"},
		{"face too small", func(d *DetectionResult) { d.BBox = []float64{300, 200, 340, 260} }, "face size out of bounds"},
		{"face too large", func(d *DetectionResult) { d.BBox = []float64{10, 10, 630, 470} }, "face size out of bounds"},
		{"face off-center", func(d *DetectionResult) { d.BBox = []float64{0, 0, 200, 240} }, "face off-center"},
		{"missing landmarks", func(d *DetectionResult) { d.LandmarksPresent = false }, "landmarks missing"},
		{"one eye hidden", func(d *DetectionResult) { d.RightEyeVisible = false }, "both eyes not visible"},
		{"head turned", func(d *DetectionResult) { d.Yaw = 35 }, "head angle out of tolerance"},
		{"head tilted", func(d *DetectionResult) { d.Roll = -25 }, "head angle out of tolerance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := goodDetection()
			tt.mutate(det)

			report := NewQualityScorer().Score(det)
			if report.IsGoodQuality {
				t.Error("expected the gate to fail")
			}
			found := false
			for _, w := range report.Warnings {
				if w == tt.warning {
					found = true
				}
			}
			if !found {
				t.Errorf("Warnings = %v, want to contain %q", report.Warnings, tt.warning)
			}
		})
	}
}

func TestQualityScorer_DetailsSumToScore(t *testing.T) {
	det := goodDetection()
	det.LandmarksPresent = false
	det.MouthVisible = false

	report := NewQualityScorer().Score(det)
	sum := 0
	for _, points := range report.Details {
		sum += points
	}
	if sum != report.Score {
		t.Errorf("details sum to %d, score is %d", sum, report.Score)
	}
}
