// Package recognize implements identity matching over enrolled face
// embeddings and the quality gate applied to enrollment captures.
package recognize

import (
	"errors"
	"time"
)

// Tier buckets match confidence for UX messaging.
type Tier string

const (
	TierPoor Tier = "poor"
	TierFair Tier = "fair"
	TierGood Tier = "good"
)

// DefaultMatchThreshold is the minimum confidence for an accepted match.
// A candidate with confidence exactly equal to the threshold is accepted.
const DefaultMatchThreshold = 0.65

// Tier boundaries: confidence below TierFairMin is poor, above TierGoodMin
// is good, everything between (inclusive on both ends) is fair.
const (
	TierFairMin = 0.5
	TierGoodMin = 0.8
)

// Match is the transient result of a probe lookup. It is never persisted
// on its own; callers attach the confidence to the attendance event that
// triggered the match.
type Match struct {
	EmployeeID  string
	EmbeddingID int64
	Distance    float64 // cosine distance of the best embedding
	Confidence  float64 // in [0,1], monotonic in similarity
	Tier        Tier
	CapturedAt  time.Time // enrollment time of the winning embedding
}

// Matching failure modes. The caller must distinguish these: each maps to
// different user guidance ("enroll your face" vs "try again" vs "not you").
var (
	ErrNoFacesEnrolled   = errors.New("no faces enrolled")
	ErrNotRecognized     = errors.New("face not recognized")
	ErrLowConfidence     = errors.New("match confidence too low")
	ErrDimensionMismatch = errors.New("probe dimension mismatch")
	ErrMatchTimeout      = errors.New("match timed out")
)

// ConfidenceFromDistance maps a cosine distance in [0,2] to a confidence
// in [0,1]. The mapping is monotonic: smaller distance, higher confidence.
func ConfidenceFromDistance(distance float64) float64 {
	c := 1 - distance/2
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// TierForConfidence buckets a confidence value.
func TierForConfidence(confidence float64) Tier {
	switch {
	case confidence < TierFairMin:
		return TierPoor
	case confidence > TierGoodMin:
		return TierGood
	default:
		return TierFair
	}
}
