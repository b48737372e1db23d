package condition

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Assignment pairs a 1-based task position with a parsed condition.
type Assignment struct {
	Position  int
	Condition Condition
}

// ParseError is returned when neither recognition pass finds a usable
// condition. Allowed carries the canonical names so the caller can re-prompt.
type ParseError struct {
	Input   string
	Allowed []Condition
}

func (e *ParseError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, c := range e.Allowed {
		names[i] = string(c)
	}
	return fmt.Sprintf("condition: no conditions recognized in %q; allowed values: %s",
		e.Input, strings.Join(names, ", "))
}

// synonyms maps normalized tokens to canonical conditions. Tokens are
// lower-cased with punctuation, hyphens and slashes stripped before lookup.
var synonyms = map[string]Condition{
	"good":           Good,
	"ok":             Good,
	"okay":           Good,
	"fine":           Good,
	"fair":           Fair,
	"average":        Fair,
	"unsatisfactory": Unsatisfactory,
	"unsat":          Unsatisfactory,
	"poor":           Unsatisfactory,
	"bad":            Unsatisfactory,
	"failed":         Unsatisfactory,
	"unobservable":   UnObservable,
	"blocked":        UnObservable,
	"notapplicable":  NotApplicable,
	"na":             NotApplicable,
	"1":              Good,
	"2":              Fair,
	"3":              Unsatisfactory,
	"4":              UnObservable,
	"5":              NotApplicable,
}

// multiWord maps phrases to a single-token synonym so the token scanner does
// not split them apart. Applied to the normalized message before both passes.
var multiWord = [][2]string{
	{"not applicable", "na"},
	{"cannot observe", "blocked"},
	{"can not observe", "blocked"},
	{"cant observe", "blocked"},
	{"not observable", "blocked"},
	{"un observable", "unobservable"},
}

// pairRe matches "<number><separator><word-or-digit>" tuples such as
// "1 Good", "2: Fair", "3-na" or "4=blocked".
var pairRe = regexp.MustCompile(`(\d{1,2})\s*[:.\-=)]?\s*([A-Za-z][A-Za-z/\-]*|[1-5])\b`)

// tokenRe extracts candidate tokens for the bare-sequence pass.
var tokenRe = regexp.MustCompile(`[A-Za-z/\-]+|\d{1,2}`)

// Parse turns one free-text message into ordered (position, condition)
// assignments for a run of taskCount tasks. Two passes are attempted in
// order: an enumerated-pair scan, then a bare-sequence token walk. Duplicate
// positions resolve last-occurrence-wins. The function is pure.
func Parse(text string, taskCount int) ([]Assignment, error) {
	if taskCount < 1 {
		return nil, fmt.Errorf("condition: task count must be positive, got %d", taskCount)
	}

	prepared := prepare(text)

	if got := parsePairs(prepared, taskCount); len(got) > 0 {
		return got, nil
	}
	if got := parseSequence(prepared, taskCount); len(got) > 0 {
		return got, nil
	}
	return nil, &ParseError{Input: strings.TrimSpace(text), Allowed: All()}
}

// FromWord resolves a single condition word, phrase or digit ("fair",
// "not applicable", "4") to a canonical condition.
func FromWord(text string) (Condition, bool) {
	return lookup(prepare(text))
}

// prepare lower-cases the message and collapses known multi-word phrases.
func prepare(text string) string {
	s := strings.ToLower(text)
	for _, mw := range multiWord {
		s = strings.ReplaceAll(s, mw[0], mw[1])
	}
	return s
}

// normalizeToken strips punctuation, hyphens and slashes from a token.
func normalizeToken(tok string) string {
	var b strings.Builder
	for _, r := range tok {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// lookup resolves a raw token to a condition via the synonym table.
func lookup(tok string) (Condition, bool) {
	c, ok := synonyms[normalizeToken(tok)]
	return c, ok
}

// parsePairs runs the enumerated-pair pass. Matched positions outside
// [1, taskCount] and unrecognized condition words are skipped.
func parsePairs(text string, taskCount int) []Assignment {
	byPos := make(map[int]Condition)
	var order []int

	for _, m := range pairRe.FindAllStringSubmatch(text, -1) {
		pos, err := strconv.Atoi(m[1])
		if err != nil || pos < 1 || pos > taskCount {
			continue
		}
		cond, ok := lookup(m[2])
		if !ok {
			continue
		}
		if _, seen := byPos[pos]; !seen {
			order = append(order, pos)
		}
		byPos[pos] = cond // last occurrence wins
	}

	if len(byPos) == 0 {
		return nil
	}
	sort.Ints(order)
	out := make([]Assignment, 0, len(order))
	for _, pos := range order {
		out = append(out, Assignment{Position: pos, Condition: byPos[pos]})
	}
	return out
}

// parseSequence runs the bare-sequence pass: every recognizable condition
// word or digit is assigned to positions 1..N in the order found, stopping
// once taskCount assignments exist.
func parseSequence(text string, taskCount int) []Assignment {
	var out []Assignment
	pos := 1
	for _, tok := range tokenRe.FindAllString(text, -1) {
		cond, ok := lookup(tok)
		if !ok {
			continue
		}
		out = append(out, Assignment{Position: pos, Condition: cond})
		pos++
		if pos > taskCount {
			break
		}
	}
	return out
}
