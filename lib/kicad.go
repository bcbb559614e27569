package lib

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chewxy/sexp"
	vlib "github.com/mcuadros/go-version"
)

/*
	Reader for .kicad_pcb board files. The file is one large
	s-expression; we navigate it with find/get helpers and build a
	BoardSource the adapter can snapshot.
*/

/*
	KiCad 6.0 was the first release with the stable s-expression format
	this reader understands.
*/
const MinFormatVersion = 20211014

const minGeneratorVersion = "6.0"

type KicadPCB struct {
	name       string
	origin     Position
	components []*Component
	layers     []*Layer
	nets       []*Net
	vias       []*Via
}

func (k *KicadPCB) BoardName() string {
	return k.name
}

func (k *KicadPCB) AuxOrigin() Position {
	return k.origin
}

func (k *KicadPCB) EnumerateComponents() []*Component {
	return k.components
}

func (k *KicadPCB) EnumerateLayers() []*Layer {
	return k.layers
}

func (k *KicadPCB) EnumerateNets() []*Net {
	return k.nets
}

func (k *KicadPCB) EnumerateVias() []*Via {
	return k.vias
}

func ReadKicadPCB(src string) (*KicadPCB, error) {
	fp, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	return ParseKicadPCB(fp, name)
}

func ParseKicadPCB(r io.Reader, name string) (*KicadPCB, error) {
	sexps, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root := sexps[0]
	if nodeName(root) != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb', got %q", nodeName(root))
	}

	if err := checkVersion(root); err != nil {
		return nil, err
	}

	pcb := &KicadPCB{name: name}

	if setupNode, ok := findNode(root, "setup"); ok {
		if originNode, ok := findNode(setupNode, "aux_axis_origin"); ok {
			x, _ := getFloat(originNode, 1)
			y, _ := getFloat(originNode, 2)
			pcb.origin = Position{X: x, Y: y}
		}
	}

	layerIndex := map[string]*Layer{}
	if layersNode, ok := findNode(root, "layers"); ok {
		for _, layerNode := range listItems(layersNode) {
			if layerNode.IsLeaf() {
				continue
			}

			layerName, err := getQuotedString(layerNode, 1)
			if err != nil {
				continue
			}

			layer := &Layer{Name: layerName}
			pcb.layers = append(pcb.layers, layer)
			layerIndex[layerName] = layer
		}
	}

	netNames := map[int]string{}
	netOrder := []int{}
	for _, netNode := range findAllNodes(root, "net") {
		code, err := getInt(netNode, 1)
		if err != nil {
			continue
		}

		name, _ := getQuotedString(netNode, 2)
		netNames[code] = name
		netOrder = append(netOrder, code)
	}

	netPads := map[int][]NetPad{}

	footprints := findAllNodes(root, "footprint")
	footprints = append(footprints, findAllNodes(root, "module")...)
	for _, fpNode := range footprints {
		component, bindings, err := parseFootprint(fpNode)
		if err != nil {
			return nil, err
		}

		pcb.components = append(pcb.components, component)
		for code, pads := range bindings {
			netPads[code] = append(netPads[code], pads...)
		}
	}

	for _, segmentNode := range findAllNodes(root, "segment") {
		track, layerName, err := parseSegment(segmentNode)
		if err != nil {
			return nil, err
		}

		if layer, ok := layerIndex[layerName]; ok {
			layer.Primitives = append(layer.Primitives, track)
		}
	}

	lines := findAllNodes(root, "gr_line")
	for _, lineNode := range lines {
		track, layerName, err := parseSegment(lineNode)
		if err != nil {
			return nil, err
		}

		if layer, ok := layerIndex[layerName]; ok {
			layer.Primitives = append(layer.Primitives, track)
		}
	}

	arcs := findAllNodes(root, "arc")
	arcs = append(arcs, findAllNodes(root, "gr_arc")...)
	for _, arcNode := range arcs {
		arc, layerName, err := parseArc(arcNode)
		if err != nil {
			return nil, err
		}

		if layer, ok := layerIndex[layerName]; ok {
			layer.Primitives = append(layer.Primitives, arc)
		}
	}

	for _, viaNode := range findAllNodes(root, "via") {
		via, err := parseVia(viaNode)
		if err != nil {
			return nil, err
		}

		pcb.vias = append(pcb.vias, via)
	}

	for _, zoneNode := range findAllNodes(root, "zone") {
		zoneLayer := ""
		if layerNode, ok := findNode(zoneNode, "layer"); ok {
			zoneLayer, _ = getQuotedString(layerNode, 1)
		}

		for _, polyNode := range findAllNodes(zoneNode, "filled_polygon") {
			layerName := zoneLayer
			if layerNode, ok := findNode(polyNode, "layer"); ok {
				layerName, _ = getQuotedString(layerNode, 1)
			}

			points := parsePoints(polyNode)
			if len(points) == 0 {
				continue
			}

			if layer, ok := layerIndex[layerName]; ok {
				layer.Primitives = append(layer.Primitives, &Primitive{
					Kind:   PrimitiveRegion,
					Points: points,
				})
			}
		}
	}

	for _, code := range netOrder {
		if code == 0 {
			/*
				Net 0 is the unconnected net.
			*/
			continue
		}

		pcb.nets = append(pcb.nets, &Net{
			Code: code,
			Name: netNames[code],
			Pads: netPads[code],
		})
	}

	return pcb, nil
}

func checkVersion(root sexp.Sexp) error {
	versionNode, ok := findNode(root, "version")
	if !ok {
		return fmt.Errorf("missing required 'version' field")
	}

	version, err := getInt(versionNode, 1)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}

	if version < MinFormatVersion {
		return fmt.Errorf(
			"unsupported board format version: %d (minimum: %d / KiCad 6.0)",
			version, MinFormatVersion,
		)
	}

	if generatorNode, ok := findNode(root, "generator_version"); ok {
		generator, err := getQuotedString(generatorNode, 1)
		if err == nil && vlib.CompareSimple(generator, minGeneratorVersion) == -1 {
			return fmt.Errorf(
				"unsupported generator version: %s (minimum: %s)",
				generator, minGeneratorVersion,
			)
		}
	}

	return nil
}

func parseFootprint(node sexp.Sexp) (*Component, map[int][]NetPad, error) {
	component := &Component{}

	component.Footprint, _ = getQuotedString(node, 1)

	if layerNode, ok := findNode(node, "layer"); ok {
		layerName, _ := getQuotedString(layerNode, 1)
		if strings.HasPrefix(layerName, "B.") {
			component.Side = SideBottom
		}
	}

	if atNode, ok := findNode(node, "at"); ok {
		x, err := getFloat(atNode, 1)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse footprint position: %w", err)
		}
		y, err := getFloat(atNode, 2)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse footprint position: %w", err)
		}

		component.Position = Position{X: x, Y: y}
		if rotation, err := getFloat(atNode, 3); err == nil {
			component.Rotation = rotation
		}
	}

	for _, propertyNode := range findAllNodes(node, "property") {
		name, err := getQuotedString(propertyNode, 1)
		if err != nil {
			continue
		}

		value, _ := getQuotedString(propertyNode, 2)
		switch name {
		case "Reference":
			component.Reference = value
		case "Value":
			component.Value = value
		case "JFAB_OFFSET":
			component.OffsetField = value
		case "JFAB_EXCLUDE":
			applyExcludeField(component, value)
		}
	}

	/*
		KiCad 6 keeps reference and value in fp_text nodes.
	*/
	for _, textNode := range findAllNodes(node, "fp_text") {
		kind, err := getString(textNode, 1)
		if err != nil {
			continue
		}

		value, _ := getQuotedString(textNode, 2)
		switch kind {
		case "reference":
			if component.Reference == "" {
				component.Reference = value
			}
		case "value":
			if component.Value == "" {
				component.Value = value
			}
		}
	}

	if attrNode, ok := findNode(node, "attr"); ok {
		if hasSymbol(attrNode, "exclude_from_pos_files") {
			component.FPExcludeFromPosition = true
		}
		if hasSymbol(attrNode, "exclude_from_bom") {
			component.FPExcludeFromBOM = true
		}
		if hasSymbol(attrNode, "dnp") {
			component.ExcludeFromBOM = true
			component.ExcludeFromPosition = true
		}
	}

	if dnpNode, ok := findNode(node, "dnp"); ok {
		value, err := getString(dnpNode, 1)
		if err != nil || value == "yes" {
			component.ExcludeFromBOM = true
			component.ExcludeFromPosition = true
		}
	}

	if component.Reference == "" {
		return nil, nil, fmt.Errorf("footprint %q has no reference designator", component.Footprint)
	}

	bindings := map[int][]NetPad{}
	for _, padNode := range findAllNodes(node, "pad") {
		pad, netCode, err := parsePad(padNode, component)
		if err != nil {
			return nil, nil, fmt.Errorf("pad on %s: %w", component.Reference, err)
		}

		component.Pads = append(component.Pads, pad)
		if netCode > 0 {
			bindings[netCode] = append(bindings[netCode], NetPad{
				Ref: component.Reference,
				Pad: pad.Number,
			})
		}
	}

	return component, bindings, nil
}

func parsePad(node sexp.Sexp, component *Component) (*Pad, int, error) {
	pad := &Pad{}

	number, err := getQuotedString(node, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse pad number: %w", err)
	}
	pad.Number = number

	shape, err := getString(node, 3)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse pad shape: %w", err)
	}
	pad.Shape = shape

	atNode, ok := findNode(node, "at")
	if !ok {
		return nil, 0, fmt.Errorf("missing required 'at' position")
	}

	dx, err := getFloat(atNode, 1)
	if err != nil {
		return nil, 0, err
	}
	dy, err := getFloat(atNode, 2)
	if err != nil {
		return nil, 0, err
	}
	pad.Offset = Position{X: dx, Y: dy}

	/*
		Resolve the board coordinate: rotate the local offset by the
		footprint orientation. KiCad rotation is counterclockwise in a
		Y-down coordinate system.
	*/
	rad := component.Rotation * math.Pi / 180
	pad.Position = Position{
		X: component.Position.X + dx*math.Cos(rad) + dy*math.Sin(rad),
		Y: component.Position.Y - dx*math.Sin(rad) + dy*math.Cos(rad),
	}

	sizeNode, ok := findNode(node, "size")
	if !ok {
		return nil, 0, fmt.Errorf("missing required 'size' field")
	}

	width, err := getFloat(sizeNode, 1)
	if err != nil {
		return nil, 0, err
	}
	height, err := getFloat(sizeNode, 2)
	if err != nil {
		return nil, 0, err
	}
	pad.Size = Size{Width: width, Height: height}

	if drillNode, ok := findNode(node, "drill"); ok {
		if drill, err := getFloat(drillNode, 1); err == nil {
			pad.Drill = drill
		}
	}

	layersNode, ok := findNode(node, "layers")
	if !ok {
		return nil, 0, fmt.Errorf("missing required 'layers' field")
	}
	for _, item := range listItems(layersNode) {
		if item.IsLeaf() {
			pad.Layers = append(pad.Layers, stripQuotes(atomText(item)))
		}
	}

	netCode := 0
	if netNode, ok := findNode(node, "net"); ok {
		if code, err := getInt(netNode, 1); err == nil {
			netCode = code
			pad.Net, _ = getQuotedString(netNode, 2)
		}
	}

	return pad, netCode, nil
}

func parseSegment(node sexp.Sexp) (*Primitive, string, error) {
	track := &Primitive{Kind: PrimitiveTrack}

	startNode, ok := findNode(node, "start")
	if !ok {
		return nil, "", fmt.Errorf("segment missing 'start'")
	}
	endNode, ok := findNode(node, "end")
	if !ok {
		return nil, "", fmt.Errorf("segment missing 'end'")
	}

	var err error
	if track.Start, err = getXY(startNode); err != nil {
		return nil, "", err
	}
	if track.End, err = getXY(endNode); err != nil {
		return nil, "", err
	}

	track.Width = getStrokeWidth(node)

	layerName := ""
	if layerNode, ok := findNode(node, "layer"); ok {
		layerName, _ = getQuotedString(layerNode, 1)
	}

	return track, layerName, nil
}

func parseArc(node sexp.Sexp) (*Primitive, string, error) {
	arc := &Primitive{Kind: PrimitiveArc}

	if startNode, ok := findNode(node, "start"); ok {
		arc.Start, _ = getXY(startNode)
	}
	if endNode, ok := findNode(node, "end"); ok {
		arc.End, _ = getXY(endNode)
	}

	if midNode, ok := findNode(node, "mid"); ok {
		arc.Mid, _ = getXY(midNode)
	} else {
		/*
			Without the midpoint the curve is unrecoverable; keep the
			chord as a straight draw.
		*/
		arc.Kind = PrimitiveTrack
	}

	arc.Width = getStrokeWidth(node)

	layerName := ""
	if layerNode, ok := findNode(node, "layer"); ok {
		layerName, _ = getQuotedString(layerNode, 1)
	}

	return arc, layerName, nil
}

func parseVia(node sexp.Sexp) (*Via, error) {
	via := &Via{}

	atNode, ok := findNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("via missing 'at'")
	}

	var err error
	if via.Position, err = getXY(atNode); err != nil {
		return nil, err
	}

	if sizeNode, ok := findNode(node, "size"); ok {
		via.Size, _ = getFloat(sizeNode, 1)
	}
	if drillNode, ok := findNode(node, "drill"); ok {
		via.Drill, _ = getFloat(drillNode, 1)
	}
	if layersNode, ok := findNode(node, "layers"); ok {
		for _, item := range listItems(layersNode) {
			if item.IsLeaf() {
				via.Layers = append(via.Layers, stripQuotes(atomText(item)))
			}
		}
	}

	return via, nil
}

func parsePoints(node sexp.Sexp) []Position {
	points := []Position{}

	if ptsNode, ok := findNode(node, "pts"); ok {
		for _, xyNode := range findAllNodes(ptsNode, "xy") {
			if point, err := getXY(xyNode); err == nil {
				points = append(points, point)
			}
		}
	}

	return points
}

/*
	Old files keep (width w) on the element; newer ones nest it as
	(stroke (width w)).
*/
func getStrokeWidth(node sexp.Sexp) float64 {
	if widthNode, ok := findNode(node, "width"); ok {
		if width, err := getFloat(widthNode, 1); err == nil {
			return width
		}
	}

	if strokeNode, ok := findNode(node, "stroke"); ok {
		if widthNode, ok := findNode(strokeNode, "width"); ok {
			if width, err := getFloat(widthNode, 1); err == nil {
				return width
			}
		}
	}

	return 0
}

func applyExcludeField(component *Component, field string) {
	for _, category := range strings.Split(field, ",") {
		switch strings.TrimSpace(strings.ToLower(category)) {
		case "board":
			component.ExcludeFromBoard = true
		case "bom":
			component.ExcludeFromBOM = true
		case "position":
			component.ExcludeFromPosition = true
		}
	}
}

/*
	S-expression navigation, in the style of the usual find/get helper
	set for KiCad files.
*/

/*
	sexp values render through fmt.Formatter; they carry no String
	method of their own.
*/
func atomText(s sexp.Sexp) string {
	return fmt.Sprintf("%s", s)
}

func sexpSlice(s sexp.Sexp) []sexp.Sexp {
	items := []sexp.Sexp{}

	if s == nil || s.IsLeaf() {
		return items
	}

	for i := 0; i < 1000000; i++ {
		if s == nil || s.LeafCount() == 0 {
			break
		}

		if head := s.Head(); head != nil {
			items = append(items, head)
		}

		if s.LeafCount() <= 1 {
			break
		}

		s = s.Tail()
		if s == nil || s.IsLeaf() {
			break
		}
	}

	return items
}

func nodeName(s sexp.Sexp) string {
	if s == nil {
		return ""
	}

	if s.IsLeaf() {
		return stripQuotes(atomText(s))
	}

	if head := s.Head(); head != nil && head.IsLeaf() {
		return stripQuotes(atomText(head))
	}

	return ""
}

func findNode(s sexp.Sexp, key string) (sexp.Sexp, bool) {
	if s == nil || s.IsLeaf() {
		return nil, false
	}

	for _, item := range sexpSlice(s) {
		if item == nil || item.IsLeaf() {
			continue
		}

		if nodeName(item) == key {
			return item, true
		}
	}

	return nil, false
}

func findAllNodes(s sexp.Sexp, key string) []sexp.Sexp {
	results := []sexp.Sexp{}

	if s == nil || s.IsLeaf() {
		return results
	}

	for _, item := range sexpSlice(s) {
		if item == nil || item.IsLeaf() {
			continue
		}

		if nodeName(item) == key {
			results = append(results, item)
		}
	}

	return results
}

func listItems(s sexp.Sexp) []sexp.Sexp {
	items := sexpSlice(s)
	if len(items) <= 1 {
		return []sexp.Sexp{}
	}

	return items[1:]
}

func getString(s sexp.Sexp, index int) (string, error) {
	items := sexpSlice(s)
	if index < 0 || index >= len(items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(items))
	}

	if !items[index].IsLeaf() {
		return "", fmt.Errorf("expected atom at index %d", index)
	}

	return atomText(items[index]), nil
}

/*
	Quoted strings containing spaces come back from the tokenizer split
	into several atoms; join them back together.
*/
func getQuotedString(s sexp.Sexp, index int) (string, error) {
	items := sexpSlice(s)
	if index < 0 || index >= len(items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(items))
	}

	if !items[index].IsLeaf() {
		return "", fmt.Errorf("expected atom at index %d", index)
	}

	first := atomText(items[index])
	if !strings.HasPrefix(first, `"`) {
		return first, nil
	}

	if strings.HasSuffix(first, `"`) && len(first) > 1 {
		return stripQuotes(first), nil
	}

	parts := []string{strings.TrimPrefix(first, `"`)}
	for i := index + 1; i < len(items); i++ {
		if !items[i].IsLeaf() {
			break
		}

		part := atomText(items[i])
		if strings.HasSuffix(part, `"`) {
			parts = append(parts, strings.TrimSuffix(part, `"`))
			return strings.Join(parts, " "), nil
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, " "), nil
}

func getFloat(s sexp.Sexp, index int) (float64, error) {
	str, err := getString(s, index)
	if err != nil {
		return 0, err
	}

	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}

	return value, nil
}

func getInt(s sexp.Sexp, index int) (int, error) {
	str, err := getString(s, index)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}

	return value, nil
}

func getXY(s sexp.Sexp) (Position, error) {
	x, err := getFloat(s, 1)
	if err != nil {
		return Position{}, err
	}

	y, err := getFloat(s, 2)
	if err != nil {
		return Position{}, err
	}

	return Position{X: x, Y: y}, nil
}

func hasSymbol(s sexp.Sexp, symbol string) bool {
	for _, item := range sexpSlice(s) {
		if item.IsLeaf() && stripQuotes(atomText(item)) == symbol {
			return true
		}
	}

	return false
}

func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)

	return s
}
