package logging

// ProgressSampler thins out progress logs to one line per bucket crossed,
// plus one line whenever the reported phase changes.
type ProgressSampler struct {
	width  float64
	phase  string
	bucket int
}

// NewProgressSampler returns a sampler with buckets of width percent. A
// non-positive width means 10.
func NewProgressSampler(width float64) *ProgressSampler {
	if width <= 0 {
		width = 10
	}
	return &ProgressSampler{width: width, bucket: -1}
}

// ShouldLog reports whether percent in phase is worth a log line. A negative
// percent means the value is unknown and only a phase change can log.
func (s *ProgressSampler) ShouldLog(percent float64, phase string) bool {
	if s == nil {
		return true
	}
	changed := phase != "" && phase != s.phase
	if changed {
		s.phase = phase
		s.bucket = -1
	}
	if percent < 0 {
		return changed
	}
	bucket := int(min(percent, 100) / s.width)
	if bucket <= s.bucket {
		return changed
	}
	s.bucket = bucket
	return true
}

// Reset forgets the last phase and bucket.
func (s *ProgressSampler) Reset() {
	if s != nil {
		*s = ProgressSampler{width: s.width, bucket: -1}
	}
}
