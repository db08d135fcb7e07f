// Package extract implements the rule-based action extraction pipeline for
// clinical notes: a lexical pattern matcher that pulls structured medication
// and lab orders out of free-text dictation.
//
// Extraction is best-effort. Malformed or empty input produces empty results,
// never an error; a regex that fails to compile is a defect in the pattern
// catalog and panics at init. All catalogs are immutable package-level data,
// so every function here is pure and safe for concurrent use.
package extract

// ActionItems is the combined result of one extraction pass. Both slices are
// always non-nil; either may be empty.
type ActionItems struct {
	Meds []MedicationAction `json:"meds"`
	Labs []LabAction        `json:"labs"`
}

// Actions runs the medication and lab extractors over a note body and
// returns the combined result. This is the sole entry point the rest of the
// application calls; the two extractors are independent and order-insensitive.
func Actions(noteBody string) ActionItems {
	meds := Medications(noteBody)
	if meds == nil {
		meds = []MedicationAction{}
	}
	labs := Labs(noteBody)
	if labs == nil {
		labs = []LabAction{}
	}
	return ActionItems{Meds: meds, Labs: labs}
}
