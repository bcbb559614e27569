package lib

import (
	"fmt"
	"strings"
)

/*
	The internal board model. Everything here is an immutable snapshot
	built once per export run; only the derived annotations (Inclusion,
	Placement) are filled in afterwards.
*/

type Side int

const (
	SideTop Side = iota
	SideBottom
)

func (s Side) String() string {
	if s == SideBottom {
		return "bottom"
	}

	return "top"
}

type Position struct {
	X float64
	Y float64
}

type Size struct {
	Width  float64
	Height float64
}

/*
	A pad belongs to exactly one component. Offset is the pad position in
	the footprint frame; Position is the resolved board coordinate.
*/
type Pad struct {
	Number   string
	Offset   Position
	Position Position
	Shape    string
	Size     Size
	Drill    float64
	Net      string
	Layers   []string
}

type Component struct {
	Reference string
	Footprint string
	Value     string
	Position  Position
	Rotation  float64
	Side      Side

	/*
		Board-level exclusion flags.
	*/
	ExcludeFromBoard    bool
	ExcludeFromBOM      bool
	ExcludeFromPosition bool

	/*
		Footprint-attribute exclusion flags.
	*/
	FPExcludeFromBOM      bool
	FPExcludeFromPosition bool

	/*
		Raw user offset override field, "dx,dy" in the final coordinate
		frame. Empty when the component declares none.
	*/
	OffsetField string

	Pads []*Pad

	/*
		Derived annotations, computed by ApplyInclusion and
		TransformPlacements.
	*/
	Inclusion Inclusion
	Placement *Placement
}

type Inclusion struct {
	Fab      bool
	BOM      bool
	Position bool
}

type Placement struct {
	X        float64
	Y        float64
	Rotation float64
	Side     Side
}

type PrimitiveKind int

const (
	PrimitiveTrack PrimitiveKind = iota
	PrimitiveFlash
	PrimitiveRegion
	PrimitiveArc
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveTrack:
		return "track"
	case PrimitiveFlash:
		return "flash"
	case PrimitiveRegion:
		return "region"
	case PrimitiveArc:
		return "arc"
	}

	return "unknown"
}

/*
	One geometric primitive on a layer. The fields used depend on Kind:
	tracks use Start/End/Width, arcs add Mid (a point on the arc between
	the endpoints), flashes use Position/Shape/Size, regions use Points.
	Owner is the reference of the component a pad flash came from, empty
	for everything else.
*/
type Primitive struct {
	Kind     PrimitiveKind
	Start    Position
	Mid      Position
	End      Position
	Width    float64
	Position Position
	Shape    string
	Size     Size
	Points   []Position
	Owner    string
}

type Layer struct {
	Name       string
	Primitives []*Primitive
}

type NetPad struct {
	Ref string
	Pad string
}

type Net struct {
	Code int
	Name string
	Pads []NetPad
}

type Via struct {
	Position Position
	Size     float64
	Drill    float64
	Layers   []string
}

type Board struct {
	Name       string
	Origin     Position
	Components []*Component
	Layers     []*Layer
	Nets       []*Net
	Vias       []*Via
}

/*
	The contract required of the host board model. Everything the export
	needs is pulled through these methods exactly once, into the snapshot.
*/
type BoardSource interface {
	BoardName() string
	AuxOrigin() Position
	EnumerateComponents() []*Component
	EnumerateLayers() []*Layer
	EnumerateNets() []*Net
	EnumerateVias() []*Via
}

func (b *Board) FindComponent(ref string) *Component {
	for _, component := range b.Components {
		if component.Reference == ref {
			return component
		}
	}

	return nil
}

func (b *Board) FindLayer(name string) *Layer {
	for _, layer := range b.Layers {
		if layer.Name == name {
			return layer
		}
	}

	return nil
}

/*
	Snapshot reads the source once and builds the immutable board model.
	Components and layers are copied, never aliased, so the source stays
	untouched and repeated snapshots of one source agree. Component pads
	and via barrels are turned into flash primitives on the layers they
	touch, tagged with the owning reference, so the fabrication
	renderers never have to reach back into the components.
*/
func Snapshot(src BoardSource, cfg *Config) (*Board, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	enumerated := src.EnumerateComponents()
	if len(enumerated) == 0 {
		return nil, &AdapterError{Reason: "board has no components"}
	}

	if cfg.MaxComponents > 0 && len(enumerated) > cfg.MaxComponents {
		return nil, &AdapterError{Reason: fmt.Sprintf(
			"board has %d components, more than the configured ceiling of %d",
			len(enumerated), cfg.MaxComponents,
		)}
	}

	seen := map[string]string{}
	components := make([]*Component, 0, len(enumerated))
	for _, component := range enumerated {
		folded := strings.ToLower(component.Reference)
		if prev, ok := seen[folded]; ok {
			return nil, &AdapterError{Reason: fmt.Sprintf(
				"reference designators %s and %s collide after case folding",
				prev, component.Reference,
			)}
		}

		seen[folded] = component.Reference

		clone := *component
		clone.Pads = append([]*Pad(nil), component.Pads...)
		clone.Inclusion = Inclusion{}
		clone.Placement = nil
		components = append(components, &clone)
	}

	layers := make([]*Layer, 0, len(src.EnumerateLayers()))
	for _, layer := range src.EnumerateLayers() {
		layers = append(layers, &Layer{
			Name:       layer.Name,
			Primitives: append([]*Primitive(nil), layer.Primitives...),
		})
	}

	board := &Board{
		Name:       src.BoardName(),
		Origin:     src.AuxOrigin(),
		Components: components,
		Layers:     layers,
		Nets:       append([]*Net(nil), src.EnumerateNets()...),
		Vias:       append([]*Via(nil), src.EnumerateVias()...),
	}

	for _, net := range board.Nets {
		for _, pad := range net.Pads {
			if board.FindComponent(pad.Ref) == nil {
				return nil, &AdapterError{Reason: fmt.Sprintf(
					"net %s references pad %s on unknown component %s",
					net.Name, pad.Pad, pad.Ref,
				)}
			}
		}
	}

	for _, component := range board.Components {
		for _, pad := range component.Pads {
			for _, layer := range board.Layers {
				if !padOnLayer(pad, layer.Name) {
					continue
				}

				layer.Primitives = append(layer.Primitives, &Primitive{
					Kind:     PrimitiveFlash,
					Position: pad.Position,
					Shape:    pad.Shape,
					Size:     pad.Size,
					Owner:    component.Reference,
				})
			}
		}
	}

	for _, via := range board.Vias {
		for _, layer := range board.Layers {
			if !viaOnLayer(via, layer.Name) {
				continue
			}

			layer.Primitives = append(layer.Primitives, &Primitive{
				Kind:     PrimitiveFlash,
				Position: via.Position,
				Shape:    "circle",
				Size:     Size{Width: via.Size, Height: via.Size},
			})
		}
	}

	return board, nil
}

/*
	Pad layer lists use KiCad wildcards such as "*.Cu" and "*.Mask".
*/
func padOnLayer(pad *Pad, name string) bool {
	for _, entry := range pad.Layers {
		if entry == name {
			return true
		}

		if strings.HasPrefix(entry, "*.") &&
			strings.HasSuffix(name, strings.TrimPrefix(entry, "*")) {
			return true
		}
	}

	return false
}

func viaOnLayer(via *Via, name string) bool {
	for _, entry := range via.Layers {
		if entry == name {
			return true
		}
	}

	return false
}
