package attendance

import (
	"fmt"
	"math"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const (
	// MinIdentityIDLen is the minimum length of an external identity ID.
	MinIdentityIDLen = 3
	// MinDisplayNameLen is the minimum length of a display name.
	MinDisplayNameLen = 2
)

// ValidateEnrollment checks an identity record before it is persisted.
// Stores call this so that an enrollment either stores the full record or
// nothing at all.
func ValidateEnrollment(identity database.Identity) error {
	if len(identity.IdentityID) < MinIdentityIDLen {
		return fmt.Errorf("%w: identity ID must be at least %d characters", ErrInvalidInput, MinIdentityIDLen)
	}
	if len(identity.DisplayName) < MinDisplayNameLen {
		return fmt.Errorf("%w: display name must be at least %d characters", ErrInvalidInput, MinDisplayNameLen)
	}
	return ValidateFeature(identity.Feature)
}

// ValidateFeature rejects empty or malformed feature vectors.
func ValidateFeature(feature []float32) error {
	if len(feature) == 0 {
		return fmt.Errorf("%w: feature vector is empty", ErrInvalidInput)
	}
	for _, v := range feature {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: feature vector contains non-finite values", ErrInvalidInput)
		}
	}
	return nil
}
