package lib

import (
	"math"
	"strconv"
	"strings"
)

/*
	ParseOffset parses a user offset override field of the form "dx,dy".
	The numbers are expressed in the final, post-mirror coordinate frame.
*/
func ParseOffset(reference, field string) (float64, float64, error) {
	parts := strings.Split(field, ",")
	if len(parts) != 2 {
		return 0, 0, &OffsetParseError{
			Reference: reference,
			Field:     field,
			Reason:    "expected two comma-separated numbers",
		}
	}

	dx, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, &OffsetParseError{
			Reference: reference,
			Field:     field,
			Reason:    "dx is not a number",
		}
	}

	dy, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, &OffsetParseError{
			Reference: reference,
			Field:     field,
			Reason:    "dy is not a number",
		}
	}

	return dx, dy, nil
}

func NormalizeRotation(rotation float64) float64 {
	rotation = math.Mod(rotation, 360)
	if rotation < 0 {
		rotation += 360
	}

	return rotation
}

/*
	roundCoordinate rounds half-to-even to the given number of decimal
	places. The rounding residue must stay within epsilon; anything
	larger means the value cannot be represented in the output format.
*/
func roundCoordinate(v float64, decimals int, epsilon float64) (float64, bool) {
	scale := math.Pow10(decimals)
	rounded := math.RoundToEven(v*scale) / scale

	if math.Abs(rounded-v) > epsilon {
		return 0, false
	}

	return rounded, true
}

/*
	TransformPlacements computes the final assembly coordinate of every
	position-included component:

	1. shift into the aux-origin frame and flip the Y axis, so that
	   Y grows upward as assembly tooling expects
	2. mirror X about the origin axis for bottom-side parts, with
	   rotation' = (180 - rotation) mod 360
	3. add the user offset override, in the post-mirror frame; when the
	   component declares none, a library offset correction for its
	   footprint applies instead
	4. round to the configured precision

	Any error here aborts the export before a single file is written.
*/
func TransformPlacements(board *Board, corrections map[string]Position, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	for _, component := range board.Components {
		if !component.Inclusion.Position {
			continue
		}

		x := component.Position.X - board.Origin.X
		y := -(component.Position.Y - board.Origin.Y)
		rotation := NormalizeRotation(component.Rotation)

		if component.Side == SideBottom {
			x = -x
			rotation = NormalizeRotation(180 - rotation)
		}

		if component.OffsetField != "" {
			dx, dy, err := ParseOffset(component.Reference, component.OffsetField)
			if err != nil {
				return err
			}

			x += dx
			y += dy
		} else if correction, ok := corrections[component.Footprint]; ok {
			x += correction.X
			y += correction.Y
		}

		rx, ok := roundCoordinate(x, cfg.Precision, cfg.Epsilon)
		if !ok {
			return &PrecisionError{
				Reference: component.Reference,
				Value:     x,
				Decimals:  cfg.Precision,
			}
		}

		ry, ok := roundCoordinate(y, cfg.Precision, cfg.Epsilon)
		if !ok {
			return &PrecisionError{
				Reference: component.Reference,
				Value:     y,
				Decimals:  cfg.Precision,
			}
		}

		component.Placement = &Placement{
			X:        rx,
			Y:        ry,
			Rotation: rotation,
			Side:     component.Side,
		}
	}

	return nil
}
