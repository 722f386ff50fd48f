package dedup

// findPeriod searches the window for the longest period p <= maxPeriod such
// that the newest p entries are textually identical, pairwise, to the p
// entries immediately before them. Returns 0 when no period confirms.
//
// Scanning from maxPeriod down to 1 makes the longest candidate win, which
// avoids locking onto a short sub-cycle nested inside a longer repeating
// pattern. Candidates without enough history for one full repeat are skipped.
func findPeriod(w *window, maxPeriod int) int {
	for p := maxPeriod; p > 0; p-- {
		if 2*p > w.len() {
			continue
		}
		matched := true
		for i := 0; i < p; i++ {
			if w.textAt(i) != w.textAt(i+p) {
				matched = false
				break
			}
		}
		if matched {
			return p
		}
	}
	return 0
}
