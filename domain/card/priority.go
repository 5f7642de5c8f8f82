package card

import pkgerrors "priomatrix-backend/pkg/errors"

// Priority is an informational tag carried through commits. It never affects
// positioning math.
type Priority string

const (
	PriorityLow        Priority = "low"
	PriorityModerate   Priority = "moderate"
	PriorityHigh       Priority = "high"
	PriorityStrategic  Priority = "strategic"
	PriorityInnovation Priority = "innovation"
)

// ParsePriority validates and converts a raw priority string. An empty
// string resolves to PriorityModerate.
func ParsePriority(raw string) (Priority, error) {
	if raw == "" {
		return PriorityModerate, nil
	}
	p := Priority(raw)
	if !p.Valid() {
		return "", pkgerrors.NewValidationError("unknown priority: " + raw)
	}
	return p, nil
}

// Valid reports whether the priority is one of the known tags
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityModerate, PriorityHigh, PriorityStrategic, PriorityInnovation:
		return true
	}
	return false
}

// String returns the priority tag
func (p Priority) String() string {
	return string(p)
}
