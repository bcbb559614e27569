package lib

import "sort"

/*
	Natural, alphanumeric-aware ordering for reference designators:
	R2 sorts before R10. Digit runs are compared by length then by
	value, everything else byte-wise.
*/
func NaturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			da, a2 := digitRun(a)
			db, b2 := digitRun(b)

			if da != db {
				if len(da) != len(db) {
					return len(da) < len(db)
				}

				return da < db
			}

			a, b = a2, b2
			continue
		}

		if a[0] != b[0] {
			return a[0] < b[0]
		}

		a, b = a[1:], b[1:]
	}

	return len(a) < len(b)
}

func SortDesignators(designators []string) {
	sort.SliceStable(designators, func(i, j int) bool {
		return NaturalLess(designators[i], designators[j])
	})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

/*
	Return the leading digit run with zeros stripped, and the rest.
*/
func digitRun(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}

	run := s[:i]
	for len(run) > 1 && run[0] == '0' {
		run = run[1:]
	}

	return run, s[i:]
}
