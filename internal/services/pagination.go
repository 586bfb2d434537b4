package services

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

// ClampLimit applies the default to a non-positive limit and caps the rest.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
