package lib

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

/*
	One grouped bill-of-materials line: all included components that
	share a (footprint, value) pair.
*/
type BOMEntry struct {
	Part        string
	Footprint   string
	Value       string
	Quantity    int
	Designators []string
}

const UnspecifiedKey = "unspecified"

/*
	Passive footprint names like "Resistor_SMD:R_0402_1005Metric" carry
	the imperial size as the second underscore field; reduce them to it
	so 0402 resistors from different libraries merge.
*/
var reFootprint = regexp.MustCompile(`^(\w*_SMD:)?\w{1,4}_(\d+)_\d+Metric.*$`)

func NormalizeFootprintName(footprint string) string {
	return reFootprint.ReplaceAllString(footprint, "$2")
}

/*
	BuildBOM groups the BOM-included components by (footprint, value).
	Components missing either attribute group under the explicit
	"unspecified" key instead of failing. When a library is available,
	each group is matched against the part associations to fill the Part
	column. Rows come out ordered by descending quantity, ties broken by
	part then footprint then value.
*/
func BuildBOM(board *Board, library *Library) []*BOMEntry {
	groups := map[string]*BOMEntry{}
	order := []string{}

	for _, component := range board.Components {
		if !component.Inclusion.BOM {
			continue
		}

		footprint := NormalizeFootprintName(component.Footprint)
		if footprint == "" {
			footprint = UnspecifiedKey
		}

		value := component.Value
		if value == "" {
			value = UnspecifiedKey
		}

		key := footprint + "\x00" + value
		entry, ok := groups[key]
		if !ok {
			entry = &BOMEntry{
				Footprint: footprint,
				Value:     value,
			}
			groups[key] = entry
			order = append(order, key)
		}

		entry.Quantity++
		entry.Designators = append(entry.Designators, component.Reference)
	}

	entries := make([]*BOMEntry, 0, len(order))
	for _, key := range order {
		entry := groups[key]
		SortDesignators(entry.Designators)

		if library != nil && len(entry.Designators) > 0 {
			prefix := DesignatorPrefix(entry.Designators[0])
			if component := library.FindMatching(prefix, entry.Value, entry.Footprint); component != nil {
				entry.Part = component.ID
			}
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Quantity != entries[j].Quantity {
			return entries[i].Quantity > entries[j].Quantity
		}
		if entries[i].Part != entries[j].Part {
			return entries[i].Part < entries[j].Part
		}
		if entries[i].Footprint != entries[j].Footprint {
			return entries[i].Footprint < entries[j].Footprint
		}

		return entries[i].Value < entries[j].Value
	})

	return entries
}

var bomHeader = []string{"Part", "Footprint", "Value", "Quantity", "Designators"}

func WriteBOM(dst string, entries []*BOMEntry) error {
	fp, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer fp.Close()

	writer := csv.NewWriter(fp)
	writer.Write(bomHeader)
	for _, entry := range entries {
		writer.Write([]string{
			entry.Part,
			entry.Footprint,
			entry.Value,
			strconv.Itoa(entry.Quantity),
			strings.Join(entry.Designators, ", "),
		})
	}

	writer.Flush()

	return writer.Error()
}

func WriteBOMXLSX(dst string, entries []*BOMEntry) error {
	f := excelize.NewFile()
	f.NewSheet("BOM")
	f.DeleteSheet("Sheet1")

	row := make([]interface{}, len(bomHeader))
	for i, name := range bomHeader {
		row[i] = name
	}
	f.SetSheetRow("BOM", "A1", &row)

	for i, entry := range entries {
		f.SetSheetRow("BOM", "A"+strconv.Itoa(i+2), &[]interface{}{
			entry.Part,
			entry.Footprint,
			entry.Value,
			entry.Quantity,
			strings.Join(entry.Designators, ", "),
		})
	}

	return f.SaveAs(dst)
}

/*
	ReadBOM reads back a BOM csv, header included. Used to verify and to
	diff exports.
*/
func ReadBOM(src string) ([]*BOMEntry, error) {
	fp, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	reader := csv.NewReader(fp)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	entries := []*BOMEntry{}
	for i, record := range records {
		if i == 0 || len(record) < 5 {
			continue
		}

		quantity, err := strconv.Atoi(record[3])
		if err != nil {
			return nil, fmt.Errorf("bad quantity on row %d: %w", i, err)
		}

		entries = append(entries, &BOMEntry{
			Part:        record[0],
			Footprint:   record[1],
			Value:       record[2],
			Quantity:    quantity,
			Designators: strings.Split(record[4], ", "),
		})
	}

	return entries, nil
}
