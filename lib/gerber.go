package lib

import (
	"fmt"
	"io"
	"math"
	"strings"
)

/*
	RS-274X output. Coordinates are 4.6 millimeters, absolute, with
	leading zero suppression; every distinct (shape, size) pair becomes
	one aperture, numbered from D10 in first-seen order so identical
	input always produces identical files.
*/

const gerberScale = 1e6

type Aperture struct {
	Code  int
	Shape string
	Size  Size
}

type ApertureTable struct {
	apertures []*Aperture
	index     map[string]*Aperture
}

func NewApertureTable() *ApertureTable {
	return &ApertureTable{
		index: map[string]*Aperture{},
	}
}

func apertureKey(shape string, size Size) string {
	return fmt.Sprintf("%s,%.6f,%.6f", shape, size.Width, size.Height)
}

func (t *ApertureTable) Ensure(shape string, size Size) *Aperture {
	key := apertureKey(shape, size)
	if aperture, ok := t.index[key]; ok {
		return aperture
	}

	aperture := &Aperture{
		Code:  10 + len(t.apertures),
		Shape: shape,
		Size:  size,
	}

	t.apertures = append(t.apertures, aperture)
	t.index[key] = aperture

	return aperture
}

func (t *ApertureTable) Apertures() []*Aperture {
	return t.apertures
}

/*
	The closed flash vocabulary. KiCad round rectangles are flashed as
	plain rectangles, the usual assembly-house shortcut.
*/
func apertureShape(shape string) (string, bool) {
	switch shape {
	case "circle":
		return "C", true
	case "rect", "roundrect":
		return "R", true
	case "oval":
		return "O", true
	}

	return "", false
}

func gerberCoord(v float64) (int64, bool) {
	scaled := int64(math.RoundToEven(v * gerberScale))

	/*
		Four integer digits in the FSLA declaration.
	*/
	if scaled >= 1e10 || scaled <= -1e10 {
		return 0, false
	}

	return scaled, true
}

func gerberFileFunction(layer string) string {
	switch layer {
	case "F.Cu":
		return "Copper,L1,Top"
	case "B.Cu":
		return "Copper,L2,Bot"
	case "F.SilkS":
		return "Legend,Top"
	case "B.SilkS":
		return "Legend,Bot"
	case "F.Mask":
		return "Soldermask,Top"
	case "B.Mask":
		return "Soldermask,Bot"
	case "F.Paste":
		return "Paste,Top"
	case "B.Paste":
		return "Paste,Bot"
	case "Edge.Cuts":
		return "Profile,NP"
	}

	return ""
}

func GerberFileName(board, layer string) string {
	return board + "-" + strings.ReplaceAll(layer, ".", "_") + ".gbr"
}

/*
	RenderGerber writes one photoplotter file for a single layer. Pad
	flashes owned by components excluded from fabrication are skipped;
	geometry keeps its direct board coordinates. Emission order is the
	layer's stored primitive order.
*/
func RenderGerber(w io.Writer, board *Board, layer *Layer, included map[string]bool) error {
	table := NewApertureTable()

	visible := make([]*Primitive, 0, len(layer.Primitives))
	for _, primitive := range layer.Primitives {
		if primitive.Owner != "" && !included[primitive.Owner] {
			continue
		}

		switch primitive.Kind {
		case PrimitiveTrack, PrimitiveArc:
			table.Ensure("C", Size{Width: primitive.Width, Height: primitive.Width})
		case PrimitiveFlash:
			shape, ok := apertureShape(primitive.Shape)
			if !ok {
				return &UnsupportedPrimitiveError{
					Layer: layer.Name,
					Kind:  primitive.Kind,
					Shape: primitive.Shape,
				}
			}

			table.Ensure(shape, primitive.Size)
		case PrimitiveRegion:
			/*
				Regions are contour fills; no aperture needed.
			*/
		default:
			return &UnsupportedPrimitiveError{
				Layer: layer.Name,
				Kind:  primitive.Kind,
			}
		}

		visible = append(visible, primitive)
	}

	fmt.Fprintf(w, "G04 %s layer %s*\n", board.Name, layer.Name)
	fmt.Fprintf(w, "%%TF.GenerationSoftware,jfab*%%\n")
	if function := gerberFileFunction(layer.Name); function != "" {
		fmt.Fprintf(w, "%%TF.FileFunction,%s*%%\n", function)
	}
	fmt.Fprintf(w, "%%FSLAX46Y46*%%\n")
	fmt.Fprintf(w, "%%MOMM*%%\n")
	fmt.Fprintf(w, "G01*\n")

	for _, aperture := range table.Apertures() {
		switch aperture.Shape {
		case "C":
			fmt.Fprintf(w, "%%ADD%d%s,%.6f*%%\n", aperture.Code, aperture.Shape, aperture.Size.Width)
		default:
			fmt.Fprintf(w, "%%ADD%d%s,%.6fX%.6f*%%\n",
				aperture.Code, aperture.Shape, aperture.Size.Width, aperture.Size.Height)
		}
	}

	current := 0
	selectAperture := func(aperture *Aperture) {
		if current != aperture.Code {
			fmt.Fprintf(w, "D%d*\n", aperture.Code)
			current = aperture.Code
		}
	}

	coord := func(p Position) (int64, int64, error) {
		x, err := coordOffset(p.X, layer.Name)
		if err != nil {
			return 0, 0, err
		}

		y, err := coordOffset(p.Y, layer.Name)
		if err != nil {
			return 0, 0, err
		}

		return x, y, nil
	}

	for _, primitive := range visible {
		switch primitive.Kind {
		case PrimitiveTrack:
			selectAperture(table.Ensure("C", Size{Width: primitive.Width, Height: primitive.Width}))

			sx, sy, err := coord(primitive.Start)
			if err != nil {
				return err
			}
			ex, ey, err := coord(primitive.End)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "X%dY%dD02*\n", sx, sy)
			fmt.Fprintf(w, "X%dY%dD01*\n", ex, ey)

		case PrimitiveArc:
			selectAperture(table.Ensure("C", Size{Width: primitive.Width, Height: primitive.Width}))

			sx, sy, err := coord(primitive.Start)
			if err != nil {
				return err
			}
			ex, ey, err := coord(primitive.End)
			if err != nil {
				return err
			}

			cx, cy, ccw, ok := arcCenter(primitive.Start, primitive.Mid, primitive.End)
			if !ok {
				/*
					Collinear points degenerate to a straight draw.
				*/
				fmt.Fprintf(w, "X%dY%dD02*\n", sx, sy)
				fmt.Fprintf(w, "X%dY%dD01*\n", ex, ey)
				break
			}

			i, err := coordOffset(cx-primitive.Start.X, layer.Name)
			if err != nil {
				return err
			}
			j, err := coordOffset(cy-primitive.Start.Y, layer.Name)
			if err != nil {
				return err
			}

			interpolation := "G02"
			if ccw {
				interpolation = "G03"
			}

			fmt.Fprintf(w, "X%dY%dD02*\n", sx, sy)
			fmt.Fprintf(w, "G75*\n")
			fmt.Fprintf(w, "%sX%dY%dI%dJ%dD01*\n", interpolation, ex, ey, i, j)
			fmt.Fprintf(w, "G01*\n")

		case PrimitiveFlash:
			shape, _ := apertureShape(primitive.Shape)
			selectAperture(table.Ensure(shape, primitive.Size))

			x, y, err := coord(primitive.Position)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "X%dY%dD03*\n", x, y)

		case PrimitiveRegion:
			if len(primitive.Points) < 3 {
				continue
			}

			fmt.Fprintf(w, "G36*\n")
			for i, point := range primitive.Points {
				x, y, err := coord(point)
				if err != nil {
					return err
				}

				if i == 0 {
					fmt.Fprintf(w, "X%dY%dD02*\n", x, y)
				} else {
					fmt.Fprintf(w, "X%dY%dD01*\n", x, y)
				}
			}

			/*
				Close the contour back to the first point.
			*/
			x, y, err := coord(primitive.Points[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "X%dY%dD01*\n", x, y)
			fmt.Fprintf(w, "G37*\n")
		}
	}

	fmt.Fprintf(w, "M02*\n")

	return nil
}

func coordOffset(v float64, layer string) (int64, error) {
	offset, ok := gerberCoord(v)
	if !ok {
		return 0, &PrecisionError{Reference: layer, Value: v, Decimals: 6}
	}

	return offset, nil
}

/*
	Circumcenter of the three arc points, plus whether the sweep runs
	counterclockwise in the emitted coordinate frame. ok is false when
	the points are collinear.
*/
func arcCenter(start, mid, end Position) (cx, cy float64, ccw, ok bool) {
	d := 2 * (start.X*(mid.Y-end.Y) + mid.X*(end.Y-start.Y) + end.X*(start.Y-mid.Y))
	if math.Abs(d) < 1e-9 {
		return 0, 0, false, false
	}

	sa := start.X*start.X + start.Y*start.Y
	sb := mid.X*mid.X + mid.Y*mid.Y
	sc := end.X*end.X + end.Y*end.Y

	cx = (sa*(mid.Y-end.Y) + sb*(end.Y-start.Y) + sc*(start.Y-mid.Y)) / d
	cy = (sa*(end.X-mid.X) + sb*(start.X-end.X) + sc*(mid.X-start.X)) / d

	ccw = (mid.X-start.X)*(end.Y-start.Y)-(mid.Y-start.Y)*(end.X-start.X) > 0

	return cx, cy, ccw, true
}
