package core

import (
	"time"
)

// LoadZone resolves an IANA zone name.
func LoadZone(zoneID string) (*time.Location, error) {
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, BadRequestf("invalid timezone provided: %s", zoneID)
	}
	return loc, nil
}

// ToZone converts an instant into the named zone.
func ToZone(t time.Time, zoneID string) (time.Time, error) {
	loc, err := LoadZone(zoneID)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// minOffset returns the smaller of two optional offsets, nil when both are
// unset.
func minOffset(a, b *int64) *int64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}

// maxOffset returns the larger of two optional offsets, nil when both are
// unset.
func maxOffset(a, b *int64) *int64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a > *b:
		return a
	default:
		return b
	}
}
