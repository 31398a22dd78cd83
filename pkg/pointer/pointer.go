package pointer

import "time"

func Uint8(value uint8) *uint8 {
	return &value
}

func Uint64(value uint64) *uint64 {
	return &value
}

// TimeIfNotZero returns a pointer to value, or nil for the zero time
func TimeIfNotZero(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}
