package lib

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
)

/*
	One row of the pick-and-place file: the final transformed placement
	of a single component.
*/
type BoardComponent struct {
	Designator string
	Footprint  string
	X          string
	Y          string
	Rotation   string
	Layer      string
}

func CPLFileName(board string) string {
	return board + "-cpl.csv"
}

/*
	BuildCPL collects the placement rows for every position-included
	component, in ascending natural designator order. Placements must
	already be computed.
*/
func BuildCPL(board *Board, precision int) []*BoardComponent {
	components := []*BoardComponent{}
	for _, component := range board.Components {
		if !component.Inclusion.Position || component.Placement == nil {
			continue
		}

		placement := component.Placement
		components = append(components, &BoardComponent{
			Designator: component.Reference,
			Footprint:  NormalizeFootprintName(component.Footprint),
			X:          strconv.FormatFloat(placement.X, 'f', precision, 64),
			Y:          strconv.FormatFloat(placement.Y, 'f', precision, 64),
			Rotation:   strconv.FormatFloat(placement.Rotation, 'f', 1, 64),
			Layer:      placement.Side.String(),
		})
	}

	sort.SliceStable(components, func(i, j int) bool {
		return NaturalLess(components[i].Designator, components[j].Designator)
	})

	return components
}

func WriteCPL(dst string, components []*BoardComponent) error {
	fp, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer fp.Close()

	writer := csv.NewWriter(fp)
	writer.Write([]string{"Designator", "Footprint", "Mid X", "Mid Y", "Rotation", "Layer"})
	for _, component := range components {
		writer.Write([]string{
			component.Designator,
			component.Footprint,
			component.X,
			component.Y,
			component.Rotation,
			component.Layer,
		})
	}

	writer.Flush()

	return writer.Error()
}

func ReadCPL(src string) []*BoardComponent {
	fp, err := os.Open(src)
	if err != nil {
		return []*BoardComponent{}
	}
	defer fp.Close()

	components := []*BoardComponent{}
	reader := csv.NewReader(fp)
	records, err := reader.ReadAll()
	if err != nil {
		return components
	}

	for i, record := range records {
		if i == 0 || len(record) < 6 {
			continue
		}

		components = append(components, &BoardComponent{
			Designator: record[0],
			Footprint:  record[1],
			X:          record[2],
			Y:          record[3],
			Rotation:   record[4],
			Layer:      record[5],
		})
	}

	return components
}
