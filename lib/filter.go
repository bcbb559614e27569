package lib

/*
	ApplyInclusion computes the effective inclusion of every component in
	each output category. A component is excluded from a category when
	either the board-level or the footprint-level flag for that category
	is set; there is no way to force a component back in. Components
	excluded everywhere stay in the model and are simply skipped by the
	renderers.
*/
func ApplyInclusion(board *Board) {
	for _, component := range board.Components {
		component.Inclusion = Inclusion{
			Fab:      !component.ExcludeFromBoard,
			BOM:      !(component.ExcludeFromBOM || component.FPExcludeFromBOM),
			Position: !(component.ExcludeFromPosition || component.FPExcludeFromPosition),
		}
	}
}

/*
	fabIncluded maps reference designators to fabrication inclusion, for
	the renderers that filter pad geometry by owner.
*/
func fabIncluded(board *Board) map[string]bool {
	included := make(map[string]bool, len(board.Components))
	for _, component := range board.Components {
		included[component.Reference] = component.Inclusion.Fab
	}

	return included
}
