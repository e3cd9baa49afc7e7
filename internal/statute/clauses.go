package statute

import "strings"

// ExtractClauses pulls the dated enactment, promulgation and effective
// clauses out of a description blob, left to right. A clause that opens with a
// bare date gets one space after the date, and a trailing "takes effect from"
// phrase is shortened to the plain effective verb.
func (p *Patterns) ExtractClauses(description string) []string {
	if p.clause == nil || description == "" {
		return []string{}
	}

	matches := p.clause.FindAllString(description, -1)
	clauses := make([]string, 0, len(matches))
	for _, clause := range matches {
		if loc := p.clauseLead.FindStringIndex(clause); loc != nil {
			date, rest := clause[:loc[1]], clause[loc[1]:]
			if rest != "" && !strings.HasPrefix(rest, " ") {
				clause = date + " " + rest
			}
		}
		if p.effectiveFrom != "" && strings.HasSuffix(clause, p.effectiveFrom) {
			clause = strings.TrimSuffix(clause, p.effectiveFrom) + p.effective
		}
		clauses = append(clauses, clause)
	}
	return clauses
}
