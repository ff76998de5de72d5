package enums

import (
	"fmt"
	"strings"
)

// SpinPath is the consumption path a spin is charged against.
type SpinPath string

const (
	SpinPathFree   SpinPath = "free"
	SpinPathCredit SpinPath = "credit"
)

// SpinPreference is the caller's requested consumption path.
type SpinPreference string

const (
	SpinPreferenceAuto   SpinPreference = "auto"
	SpinPreferenceCredit SpinPreference = "credit"
)

// String implements fmt.Stringer.
func (p SpinPath) String() string {
	return string(p)
}

// IsValid reports whether the value is a known SpinPath.
func (p SpinPath) IsValid() bool {
	return p == SpinPathFree || p == SpinPathCredit
}

// ParseSpinPreference normalizes an optional preference; empty and "free" mean auto.
func ParseSpinPreference(value string) (SpinPreference, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(SpinPreferenceAuto), string(SpinPathFree):
		return SpinPreferenceAuto, nil
	case string(SpinPreferenceCredit):
		return SpinPreferenceCredit, nil
	default:
		return "", fmt.Errorf("invalid spin path %q", value)
	}
}
