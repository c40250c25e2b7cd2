package processor

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/phambaophuc/watermark-tool/internal/models"
)

// ErrInvalidParameters is wrapped by parameter and sizing failures.
var ErrInvalidParameters = errors.New("invalid parameters")

// ValidateParameters checks required fields and that an opacity override,
// when present, is a finite number. Out-of-range opacities are accepted; the
// alpha scaling saturates them.
func ValidateParameters(params models.WatermarkParameters) error {
	var missing []string
	if strings.TrimSpace(params.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if strings.TrimSpace(params.ProjectID) == "" {
		missing = append(missing, "project_id")
	}
	if strings.TrimSpace(params.InputImageURI) == "" {
		missing = append(missing, "inputImageURI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required field(s): %s", ErrInvalidParameters, strings.Join(missing, ", "))
	}

	if params.ConfigValue != nil {
		if v := params.ConfigValue.Float64(); math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: configValue must be a finite number, got %v", ErrInvalidParameters, v)
		}
	}

	return nil
}
