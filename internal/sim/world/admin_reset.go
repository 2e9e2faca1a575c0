package world

// resetAll destroys every organism and clears the faction roster.
func (w *World) resetAll() int {
	n := 0
	for _, id := range w.OrganismIDs() {
		if w.DestroyOrganism(id) {
			n++
		}
	}
	w.faction.reset()
	w.resets++
	return n
}
