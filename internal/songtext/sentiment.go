package songtext

import "fmt"

// SentimentLevel buckets a 0-100 sentiment value.
func SentimentLevel(value int) string {
	switch {
	case value >= 70:
		return "high"
	case value >= 30:
		return "medium"
	default:
		return "low"
	}
}

// SentimentDescriptor renders the lyric sentiment profile sent to lyrics generators,
// e.g. "low-anger (10%), medium-sadness (60%), medium-joy (30%)".
func SentimentDescriptor(anger, sadness, joy int) string {
	return fmt.Sprintf("%s-anger (%d%%), %s-sadness (%d%%), %s-joy (%d%%)",
		SentimentLevel(anger), anger,
		SentimentLevel(sadness), sadness,
		SentimentLevel(joy), joy)
}
