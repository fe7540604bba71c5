package validate

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/firewatch/internal/logging"
	"github.com/ppiankov/firewatch/internal/model"
)

// Rejection records why a detection was dropped
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Validator screens fire detections before they reach scoring and clustering.
// Malformed records are dropped rather than coerced.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a new validator
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logging.OrNop(logger)}
}

// Validate splits fires into usable detections and rejections.
// The relative order of accepted detections is preserved.
func (v *Validator) Validate(fires []model.FireDetection) ([]model.FireDetection, []Rejection) {
	valid := make([]model.FireDetection, 0, len(fires))
	var rejected []Rejection

	for i, f := range fires {
		if err := CheckDetection(f); err != nil {
			rejected = append(rejected, Rejection{Index: i, ID: f.ID, Reason: err.Error()})
			continue
		}
		valid = append(valid, f)
	}

	if len(rejected) > 0 {
		v.logger.Warn("dropped malformed detections",
			zap.Int("rejected", len(rejected)),
			zap.Int("accepted", len(valid)),
			zap.String("first_reason", rejected[0].Reason),
		)
	}

	return valid, rejected
}

// CheckDetection returns an error describing the first problem with f, or nil
func CheckDetection(f model.FireDetection) error {
	if err := model.ValidatePosition(f.Position); err != nil {
		return err
	}

	if f.FRP != nil {
		frp := *f.FRP
		if math.IsNaN(frp) || math.IsInf(frp, 0) {
			return fmt.Errorf("frp is not finite")
		}
		if frp < 0 {
			return fmt.Errorf("negative frp %g", frp)
		}
	}

	if f.Confidence.Numeric {
		c := f.Confidence.Value
		if math.IsNaN(c) || c < 0 || c > 100 {
			return fmt.Errorf("confidence %g outside 0-100", c)
		}
	} else if strings.TrimSpace(f.Confidence.Label) != f.Confidence.Label {
		return fmt.Errorf("confidence label %q has surrounding whitespace", f.Confidence.Label)
	}

	if math.IsNaN(f.Intensity) || math.IsInf(f.Intensity, 0) {
		return fmt.Errorf("intensity is not finite")
	}

	return nil
}
