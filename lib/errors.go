package lib

import "fmt"

/*
	The export error taxonomy. Adapter and transformer errors abort the
	run before anything is written; renderer errors abort only the file
	they occurred in.
*/

type AdapterError struct {
	Reason string
}

func (e *AdapterError) Error() string {
	return "adapter: " + e.Reason
}

type OffsetParseError struct {
	Reference string
	Field     string
	Reason    string
}

func (e *OffsetParseError) Error() string {
	return fmt.Sprintf(
		"offset override on %s: cannot parse %q: %s",
		e.Reference, e.Field, e.Reason,
	)
}

type PrecisionError struct {
	Reference string
	Value     float64
	Decimals  int
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf(
		"coordinate %v on %s is not representable with %d decimal places",
		e.Value, e.Reference, e.Decimals,
	)
}

type UnsupportedPrimitiveError struct {
	Layer string
	Kind  PrimitiveKind
	Shape string
}

func (e *UnsupportedPrimitiveError) Error() string {
	if e.Shape != "" {
		return fmt.Sprintf(
			"layer %s contains a %q %s, which the output format cannot express",
			e.Layer, e.Shape, e.Kind,
		)
	}

	return fmt.Sprintf(
		"layer %s contains a %s primitive, which the output format cannot express",
		e.Layer, e.Kind,
	)
}
