package extract

import (
	"regexp"
	"strings"
)

// Medication action classes. The class determines which downstream workflow
// an action item is routed to.
const (
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionRefill   = "refill"
	ActionIncrease = "increase"
	ActionDecrease = "decrease"

	// ActionOrder is the single supported lab action.
	ActionOrder = "order"
)

// medPattern is one regex template within an action class. Templates with
// hasDose capture (drug, amount, unit); the rest capture (drug) only.
type medPattern struct {
	re      *regexp.Regexp
	hasDose bool
}

const (
	drugToken     = `([a-zA-Z][a-zA-Z-]*(?:\s+[a-zA-Z-]+)?)`
	drugDoseToken = `([a-zA-Z][a-zA-Z-]*(?:\s+[a-zA-Z-]+)*?)`
	doseToken     = `(\d+(?:\.\d+)?)\s*(mg|mcg|units?|ml|g)\b`
)

// medPatternCatalog maps each action class to its ordered template list.
// start/increase/decrease templates require a dose and unit; stop/refill
// match on the drug name alone since those orders rarely restate the dose.
var medPatternCatalog = map[string][]medPattern{
	ActionStart: {
		{re: regexp.MustCompile(`(?i)\b(?:start(?:ed|ing)?|begin|began|initiate[d]?)\s+(?:patient\s+on\s+|on\s+)?` + drugDoseToken + `\s+` + doseToken), hasDose: true},
		{re: regexp.MustCompile(`(?i)\b(?:place[d]?|put)\s+(?:patient\s+|pt\s+)?on\s+` + drugDoseToken + `\s+` + doseToken), hasDose: true},
		{re: regexp.MustCompile(`(?i)\b(?:add(?:ed|ing)?|prescribe[d]?)\s+` + drugDoseToken + `\s+` + doseToken), hasDose: true},
	},
	ActionStop: {
		{re: regexp.MustCompile(`(?i)\b(?:stop(?:ped|ping)?|discontinue[d]?|d/c|hold(?:ing)?)\s+(?:the\s+|taking\s+)?` + drugToken)},
		{re: regexp.MustCompile(`(?i)\btake\s+(?:him|her|them|patient)\s+off\s+(?:of\s+|the\s+)?` + drugToken)},
	},
	ActionRefill: {
		{re: regexp.MustCompile(`(?i)\b(?:refill(?:ed)?|renew(?:ed)?)\s+(?:the\s+)?` + drugToken)},
		{re: regexp.MustCompile(`(?i)\bcontinu(?:e|ed|ing)\s+(?:the\s+|all\s+|on\s+)?` + drugToken)},
		{re: regexp.MustCompile(`(?i)\bresume[d]?\s+(?:the\s+)?` + drugToken)},
	},
	ActionIncrease: {
		{re: regexp.MustCompile(`(?i)\bincreas(?:e|ed|ing)\s+(?:the\s+)?` + drugDoseToken + `\s+(?:up\s+)?(?:to\s+)?` + doseToken), hasDose: true},
		{re: regexp.MustCompile(`(?i)\b(?:up|bump)\s+(?:the\s+)?` + drugDoseToken + `\s+to\s+` + doseToken), hasDose: true},
	},
	ActionDecrease: {
		{re: regexp.MustCompile(`(?i)\b(?:decreas(?:e|ed|ing)|reduce[d]?|lower(?:ed)?)\s+(?:the\s+)?` + drugDoseToken + `\s+(?:down\s+)?(?:to\s+)?` + doseToken), hasDose: true},
		{re: regexp.MustCompile(`(?i)\btaper(?:ed|ing)?\s+(?:the\s+)?` + drugDoseToken + `\s+(?:down\s+)?to\s+` + doseToken), hasDose: true},
	},
}

// actionClassOrder fixes the scan order so results are deterministic.
var actionClassOrder = []string{ActionStart, ActionStop, ActionRefill, ActionIncrease, ActionDecrease}

// genericTerms are capture results too unspecific to be a real drug name
// ("continue all meds"). A candidate whose words are all generic is dropped.
var genericTerms = map[string]bool{
	"medication":  true,
	"medications": true,
	"med":         true,
	"meds":        true,
	"drug":        true,
	"drugs":       true,
	"medicine":    true,
	"medicines":   true,
	"all":         true,
}

// fillerWords are trimmed from the edges of a cleaned drug candidate before
// the generic-term check ("all meds and" -> "all meds").
var fillerWords = map[string]bool{
	"and": true, "the": true, "a": true, "an": true, "of": true,
	"to": true, "for": true, "with": true, "on": true, "in": true,
	"at": true, "as": true, "is": true, "was": true, "per": true,
	"now": true, "again": true, "before": true, "after": true, "today": true,
	"due": true, "because": true, "since": true, "given": true, "if": true,
	"this": true, "that": true, "then": true, "when": true, "while": true,
	"until": true, "also": true, "will": true, "well": true, "please": true,
	"daily": true, "once": true, "twice": true, "nightly": true,
	"him": true, "his": true, "her": true, "them": true, "their": true,
}

// frequencyVocab is searched in order against a lowered text window, so
// longer prose forms come before the bare words and codes they contain.
var frequencyVocab = []string{
	"twice daily", "twice a day",
	"three times daily", "three times a day",
	"four times daily", "four times a day",
	"once daily", "once a day",
	"every morning", "every evening", "every night", "every other day",
	"at bedtime", "as needed",
	"every week", "weekly", "every month", "monthly",
	"nightly", "daily",
	"QHS", "QAM", "QPM", "QID", "TID", "BID", "QOD", "QD", "PRN",
}

// commonMedications is the curated fallback vocabulary: frequently dictated
// diabetes, thyroid, and cardiac drugs that the dose/unit templates miss when
// no dose is spoken. Multi-word names are fine; matching is word-bounded.
var commonMedications = []string{
	// diabetes
	"metformin", "glipizide", "glimepiride", "glyburide",
	"januvia", "sitagliptin", "jardiance", "empagliflozin",
	"farxiga", "dapagliflozin", "ozempic", "semaglutide",
	"trulicity", "dulaglutide", "victoza", "liraglutide",
	"mounjaro", "tirzepatide", "pioglitazone", "actos",
	"insulin glargine", "lantus", "levemir", "tresiba",
	"humalog", "novolog", "insulin",
	// thyroid
	"levothyroxine", "synthroid", "armour thyroid",
	"liothyronine", "cytomel", "methimazole", "propylthiouracil",
	// cardiac
	"lisinopril", "losartan", "valsartan", "amlodipine",
	"metoprolol", "carvedilol", "atenolol", "diltiazem",
	"atorvastatin", "rosuvastatin", "simvastatin", "pravastatin",
	"aspirin", "clopidogrel", "plavix", "warfarin",
	"eliquis", "apixaban", "xarelto", "rivaroxaban",
	"furosemide", "lasix", "spironolactone", "hydrochlorothiazide",
	"digoxin",
}

type knownMedication struct {
	name string
	re   *regexp.Regexp
}

var knownMedicationPatterns = compileMedicationVocab()

func compileMedicationVocab() []knownMedication {
	out := make([]knownMedication, 0, len(commonMedications))
	for _, name := range commonMedications {
		out = append(out, knownMedication{
			name: name,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return out
}

// actionVerbs resolves a nearby verb to an action class for the vocabulary
// fallback path. "continue" counts as a refill request.
var actionVerbs = map[string]string{
	"start": ActionStart, "started": ActionStart, "starting": ActionStart,
	"begin": ActionStart, "initiate": ActionStart, "initiated": ActionStart,
	"add": ActionStart, "added": ActionStart,
	"prescribe": ActionStart, "prescribed": ActionStart,

	"stop": ActionStop, "stopped": ActionStop, "stopping": ActionStop,
	"discontinue": ActionStop, "discontinued": ActionStop,
	"hold": ActionStop, "held": ActionStop,

	"continue": ActionRefill, "continued": ActionRefill, "continuing": ActionRefill,
	"refill": ActionRefill, "refilled": ActionRefill,
	"renew": ActionRefill, "renewed": ActionRefill,
	"resume": ActionRefill, "resumed": ActionRefill,

	"increase": ActionIncrease, "increased": ActionIncrease, "increasing": ActionIncrease,

	"decrease": ActionDecrease, "decreased": ActionDecrease, "decreasing": ActionDecrease,
	"reduce": ActionDecrease, "reduced": ActionDecrease,
	"lower": ActionDecrease, "lowered": ActionDecrease,
}

// labTestVocab lists known test names and abbreviations, canonical case
// preserved in output. Longer entries precede the shorter entries they
// contain ("Free T4" before "T4") so the first hit is the specific one.
var labTestVocab = []string{
	"HbA1c", "A1C",
	"CBC", "CMP", "BMP",
	"TSH", "Free T4", "Free T3", "T4", "T3",
	"lipid panel", "cholesterol", "LDL", "HDL", "triglycerides",
	"25-OH vitamin D", "vitamin D",
	"vitamin B12", "B12", "folate",
	"PSA", "EKG", "ECG",
	"urinalysis", "urine microalbumin", "microalbumin",
	"creatinine", "BUN", "GFR",
	"hepatic panel", "liver panel", "ALT", "AST",
	"ferritin", "iron panel",
	"CRP", "ESR",
	"INR", "PTT", "PT",
	"fasting glucose", "glucose",
	"cortisol", "testosterone", "estradiol",
	"magnesium", "phosphorus", "uric acid",
	"hemoglobin", "hematocrit",
	"celiac panel",
}

type knownLabTest struct {
	name string
	re   *regexp.Regexp
}

var knownLabTestPatterns = compileLabVocab()

func compileLabVocab() []knownLabTest {
	out := make([]knownLabTest, 0, len(labTestVocab))
	for _, name := range labTestVocab {
		out = append(out, knownLabTest{
			name: name,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return out
}

const labOrderVerbs = `order|ordering|check|checking|recheck|get|draw|redraw|obtain|repeat`

// labOrderPatterns capture the phrase following an order verb up to the next
// sentence boundary; the phrase is then scanned for known test names.
var labOrderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:` + labOrderVerbs + `)\s+(?:a\s+|an\s+|the\s+)?([^.;!?\n]+)`),
	regexp.MustCompile(`(?i)\blabs?\s+(?:today\s+)?(?:including|include|for)\s+([^.;!?\n]+)`),
	regexp.MustCompile(`(?i)\bwill\s+(?:order|check|send)\s+(?:for\s+)?([^.;!?\n]+)`),
}

// labMentionPattern catches a lone verb + known-test mention that the phrase
// templates above did not wrap, e.g. "please check TSH".
var labMentionPattern = regexp.MustCompile(
	`(?i)\b(?:order|check|repeat|draw|get|recheck)\b[^.;!?\n]{0,120}?\b(` + joinQuoted(labTestVocab) + `)\b`)

func joinQuoted(entries []string) string {
	quoted := make([]string, len(entries))
	for i, e := range entries {
		quoted[i] = regexp.QuoteMeta(e)
	}
	return strings.Join(quoted, "|")
}
