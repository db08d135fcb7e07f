package extract

import (
	"regexp"
	"strings"
)

// MedicationAction is one extracted medication order.
type MedicationAction struct {
	Action    string `json:"action"`
	Drug      string `json:"drug"`
	Dose      string `json:"dose,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

var (
	nonDrugChars = regexp.MustCompile(`[^\w\- ]`)
	whitespace   = regexp.MustCompile(`\s+`)
	wordPattern  = regexp.MustCompile(`[A-Za-z][A-Za-z-]*`)
)

// Medications scans note text against the pattern catalog and the common
// medication vocabulary and returns a deduplicated list of actions. It never
// fails: text with no signal yields an empty result.
func Medications(text string) []MedicationAction {
	var results []MedicationAction

	for _, class := range actionClassOrder {
		for _, p := range medPatternCatalog[class] {
			for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
				drug := cleanDrugName(text[m[2]:m[3]])
				if drug == "" || isGenericTerm(drug) {
					continue
				}
				action := MedicationAction{Action: class, Drug: drug}
				if p.hasDose {
					amount := text[m[4]:m[5]]
					unit := strings.ToLower(text[m[6]:m[7]])
					action.Dose = amount + " " + unit
				}
				action.Frequency = findFrequency(text, m[0])
				results = append(results, action)
			}
		}
	}

	// Vocabulary fallback: known drugs mentioned near an action verb but not
	// matched by any dose/unit template. Pattern matches win since they may
	// carry dose and frequency.
	for _, med := range knownMedicationPatterns {
		if medicationExists(results, med.name) {
			continue
		}
		for _, loc := range med.re.FindAllStringIndex(text, -1) {
			verb := nearbyActionVerb(text, loc[0], loc[1])
			if verb == "" {
				continue
			}
			results = append(results, MedicationAction{Action: verb, Drug: med.name})
			break
		}
	}

	return dedupMedications(results)
}

// cleanDrugName lowercases a captured drug candidate, strips everything but
// word characters, hyphens and spaces, collapses whitespace, and trims
// filler words from both edges.
func cleanDrugName(raw string) string {
	s := strings.ToLower(raw)
	s = nonDrugChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))

	words := strings.Fields(s)
	for len(words) > 0 && fillerWords[words[0]] {
		words = words[1:]
	}
	for len(words) > 0 && fillerWords[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// isGenericTerm reports whether every word of a cleaned candidate is a
// generic non-drug term ("all meds", "medications").
func isGenericTerm(name string) bool {
	words := strings.Fields(name)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !genericTerms[w] {
			return false
		}
	}
	return true
}

const (
	frequencyWindowBefore = 50
	frequencyWindowAfter  = 100
)

// findFrequency searches a fixed character window around matchStart for the
// first frequency vocabulary token and returns it, or "" if none is present.
func findFrequency(text string, matchStart int) string {
	lo := matchStart - frequencyWindowBefore
	if lo < 0 {
		lo = 0
	}
	hi := matchStart + frequencyWindowAfter
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:hi])
	for _, tok := range frequencyVocab {
		if strings.Contains(window, strings.ToLower(tok)) {
			return tok
		}
	}
	return ""
}

const verbProximityWords = 3

// nearbyActionVerb looks up to three words before and after a drug mention
// for a recognized action verb, nearest first, and returns the resolved
// action class or "".
func nearbyActionVerb(text string, start, end int) string {
	before := wordPattern.FindAllString(text[:start], -1)
	if n := len(before); n > verbProximityWords {
		before = before[n-verbProximityWords:]
	}
	for i := len(before) - 1; i >= 0; i-- {
		if action, ok := actionVerbs[strings.ToLower(before[i])]; ok {
			return action
		}
	}
	after := wordPattern.FindAllString(text[end:], -1)
	if len(after) > verbProximityWords {
		after = after[:verbProximityWords]
	}
	for _, w := range after {
		if action, ok := actionVerbs[strings.ToLower(w)]; ok {
			return action
		}
	}
	return ""
}

// medicationExists reports whether a drug is already represented in the
// result list. A multi-word match like "insulin glargine" also covers its
// shorter vocabulary form "insulin".
func medicationExists(list []MedicationAction, drug string) bool {
	for _, m := range list {
		if m.Drug == drug || strings.Contains(m.Drug, drug) {
			return true
		}
	}
	return false
}

// dedupMedications removes entries sharing an (action, drug, dose) triple,
// keeping the first occurrence.
func dedupMedications(list []MedicationAction) []MedicationAction {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, m := range list {
		key := m.Action + "|" + m.Drug + "|" + m.Dose
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}
