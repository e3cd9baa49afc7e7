package statute

// Inventory reports which indent kinds occur in the normalized lines, in the
// order they are first seen.
func (p *Patterns) Inventory(lines []string) []string {
	seen := make(map[Kind]bool, len(p.indents))
	var found []string
	for _, line := range lines {
		for _, kind := range p.indents {
			if seen[kind] || !p.division[kind].MatchString(line) {
				continue
			}
			seen[kind] = true
			found = append(found, kind.String())
			break
		}
		if len(found) == len(p.indents) {
			break
		}
	}
	return found
}
