package model

// ConfidenceLevel buckets a 0-100 confidence score for presentation.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// DefaultLowConfidenceThreshold is the score below which a prediction is
// flagged as low confidence.
const DefaultLowConfidenceThreshold = 60

// IsLowConfidence reports whether the score falls below the threshold. A
// threshold <= 0 falls back to the default.
func IsLowConfidence(confidence, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultLowConfidenceThreshold
	}
	return confidence < threshold
}

// LevelForConfidence maps a score to a coarse level: >=80 high, >=60 medium,
// anything else low.
func LevelForConfidence(confidence int) ConfidenceLevel {
	switch {
	case confidence >= 80:
		return ConfidenceHigh
	case confidence >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
