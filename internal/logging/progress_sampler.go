package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when the reporting node changes or the percentage crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastNode   string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 25%) or when the node changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 25
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress update for node at percent should be
// logged. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(node string, percent float64) bool {
	if s == nil {
		return true
	}
	node = strings.TrimSpace(node)
	emit := false
	if node != s.lastNode {
		s.lastNode = node
		s.lastBucket = -1
		emit = true
	}
	if percent < 0 {
		return emit
	}
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastNode = ""
	s.lastBucket = -1
}
