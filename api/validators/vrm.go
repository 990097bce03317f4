package validators

import (
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/vrm"
)

// MaxVRMLength caps a registration after normalization.
const MaxVRMLength = 16

// ValidateVRMLength rejects registrations whose canonical form is longer than
// MaxVRMLength. Blank input passes; the lookup reports it as missing.
func ValidateVRMLength(raw string) error {
	if utf8.RuneCountInString(vrm.Normalize(raw)) > MaxVRMLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "VRM too long").
			WithDetails(map[string]any{"field": "vrm", "max": MaxVRMLength})
	}
	return nil
}

func validVRM(raw string) bool {
	n := utf8.RuneCountInString(vrm.Normalize(raw))
	return n > 0 && n <= MaxVRMLength
}
