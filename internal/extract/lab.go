package extract

import (
	"regexp"
	"strings"
)

// LabAction is one extracted lab order: a set of test names under a single
// action. Order is currently the only lab action.
type LabAction struct {
	Action string   `json:"action"`
	Tests  []string `json:"tests"`
}

// Labs scans note text for lab-order phrasing and known test mentions and
// returns merged actions: at most one entry per action value, tests unioned
// with case-insensitive dedup. It never fails.
func Labs(text string) []LabAction {
	var actions []LabAction

	// Phrase templates: capture everything after an order verb up to the
	// sentence boundary, then pick out the tests named in the phrase.
	for _, p := range labOrderPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			tests := scanPhraseForTests(m[1])
			if len(tests) > 0 {
				actions = append(actions, LabAction{Action: ActionOrder, Tests: tests})
			}
		}
	}

	// Single-mention sweep for verb + known test pairs the phrase templates
	// missed. Skips tests already collected above.
	for _, m := range labMentionPattern.FindAllStringSubmatch(text, -1) {
		name := canonicalTestName(m[1])
		if testCollected(actions, name) {
			continue
		}
		actions = append(actions, LabAction{Action: ActionOrder, Tests: []string{name}})
	}

	return mergeLabActions(actions)
}

var labTokenPattern = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9-]*`)

// scanPhraseForTests returns every known test named in the phrase, in
// vocabulary order, plus unrecognized tokens that look like lab tests per
// the acronym heuristic. No case-insensitive duplicates.
func scanPhraseForTests(phrase string) []string {
	var tests []string
	for _, entry := range knownLabTestPatterns {
		if entry.re.MatchString(phrase) && !containsFold(tests, entry.name) && !partOfKnownTest(tests, entry.name) {
			tests = append(tests, entry.name)
		}
	}
	for _, tok := range labTokenPattern.FindAllString(phrase, -1) {
		if isLikelyLabTest(tok) && !containsFold(tests, tok) && !partOfKnownTest(tests, tok) {
			tests = append(tests, tok)
		}
	}
	return tests
}

var (
	acronymPattern     = regexp.MustCompile(`^[A-Z]{2,4}$`)
	letterDigitPattern = regexp.MustCompile(`^[A-Z]\d{1,3}$`)
	digitLetterPattern = regexp.MustCompile(`^\d+-[A-Za-z]+$`)
)

// isLikelyLabTest accepts 2-4 letter all-caps acronyms, letter+digit tokens
// (B12, T3) and digits-letters tokens (25-OH) as candidate test names even
// when they are not in the vocabulary. Deliberately permissive; false
// positives are preferred over dropping a dictated test.
func isLikelyLabTest(token string) bool {
	return acronymPattern.MatchString(token) ||
		letterDigitPattern.MatchString(token) ||
		digitLetterPattern.MatchString(token)
}

// partOfKnownTest reports whether a heuristic token is already covered by a
// collected multi-word vocabulary entry ("T4" inside "Free T4").
func partOfKnownTest(tests []string, token string) bool {
	for _, t := range tests {
		for _, w := range strings.Fields(t) {
			if strings.EqualFold(w, token) {
				return true
			}
		}
	}
	return false
}

// canonicalTestName maps a matched mention back to the vocabulary entry's
// canonical casing.
func canonicalTestName(match string) string {
	for _, entry := range labTestVocab {
		if strings.EqualFold(entry, match) {
			return entry
		}
	}
	return match
}

func testCollected(actions []LabAction, name string) bool {
	for _, a := range actions {
		if containsFold(a.Tests, name) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// mergeLabActions unions all entries sharing an action value into one,
// preserving first-seen order of both actions and tests.
func mergeLabActions(actions []LabAction) []LabAction {
	var merged []LabAction
	index := make(map[string]int)
	for _, a := range actions {
		i, ok := index[a.Action]
		if !ok {
			index[a.Action] = len(merged)
			merged = append(merged, LabAction{Action: a.Action, Tests: append([]string(nil), a.Tests...)})
			continue
		}
		for _, t := range a.Tests {
			if !containsFold(merged[i].Tests, t) {
				merged[i].Tests = append(merged[i].Tests, t)
			}
		}
	}
	return merged
}
