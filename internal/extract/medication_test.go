package extract

import (
	"testing"
)

func findMed(t *testing.T, meds []MedicationAction, drug string) MedicationAction {
	t.Helper()
	for _, m := range meds {
		if m.Drug == drug {
			return m
		}
	}
	t.Fatalf("expected medication %q in %+v", drug, meds)
	return MedicationAction{}
}

func TestMedications_StartWithDoseAndFrequency(t *testing.T) {
	meds := Medications("Start metformin 500mg twice daily")
	if len(meds) != 1 {
		t.Fatalf("expected 1 medication, got %d: %+v", len(meds), meds)
	}
	m := meds[0]
	if m.Action != ActionStart {
		t.Errorf("expected action start, got %q", m.Action)
	}
	if m.Drug != "metformin" {
		t.Errorf("expected drug metformin, got %q", m.Drug)
	}
	if m.Dose != "500 mg" {
		t.Errorf("expected dose %q, got %q", "500 mg", m.Dose)
	}
	if m.Frequency != "twice daily" {
		t.Errorf("expected frequency %q, got %q", "twice daily", m.Frequency)
	}
}

func TestMedications_StopWithoutDose(t *testing.T) {
	meds := Medications("Stop lisinopril")
	if len(meds) != 1 {
		t.Fatalf("expected 1 medication, got %d: %+v", len(meds), meds)
	}
	m := meds[0]
	if m.Action != ActionStop || m.Drug != "lisinopril" {
		t.Errorf("expected stop lisinopril, got %+v", m)
	}
	if m.Dose != "" {
		t.Errorf("expected no dose, got %q", m.Dose)
	}
}

func TestMedications_GenericTermsExcluded(t *testing.T) {
	meds := Medications("continue all meds and refill medications")
	for _, m := range meds {
		switch m.Drug {
		case "all", "meds", "medications", "all meds":
			t.Errorf("generic term leaked into results: %+v", m)
		}
	}
	if len(meds) != 0 {
		t.Errorf("expected no medications, got %+v", meds)
	}
}

func TestMedications_VocabularyFallback(t *testing.T) {
	meds := Medications("Continue metformin, patient tolerating well")
	m := findMed(t, meds, "metformin")
	if m.Action != ActionRefill && m.Action != ActionStart {
		t.Errorf("expected refill or start, got %q", m.Action)
	}
	if m.Dose != "" {
		t.Errorf("expected no dose on fallback match, got %q", m.Dose)
	}
}

func TestMedications_FallbackVerbAfterMention(t *testing.T) {
	meds := Medications("Jardiance was started at today's visit")
	m := findMed(t, meds, "jardiance")
	if m.Action != ActionStart {
		t.Errorf("expected start, got %q", m.Action)
	}
}

func TestMedications_FallbackDoesNotOverwritePatternMatch(t *testing.T) {
	meds := Medications("Start metformin 1000mg BID, continue metformin as before")
	var withDose int
	for _, m := range meds {
		if m.Drug != "metformin" {
			t.Errorf("unexpected drug %q", m.Drug)
		}
		if m.Dose != "" {
			withDose++
		}
	}
	if withDose == 0 {
		t.Errorf("pattern match with dose was lost: %+v", meds)
	}
	// The no-dose fallback entry must not replace the dosed pattern entry.
	m := findMed(t, meds, "metformin")
	if m.Dose != "1000 mg" {
		t.Errorf("expected first entry to keep dose 1000 mg, got %+v", m)
	}
}

func TestMedications_IncreaseWithTargetDose(t *testing.T) {
	meds := Medications("Increase levothyroxine to 125 mcg daily")
	m := findMed(t, meds, "levothyroxine")
	if m.Action != ActionIncrease {
		t.Errorf("expected increase, got %q", m.Action)
	}
	if m.Dose != "125 mcg" {
		t.Errorf("expected dose %q, got %q", "125 mcg", m.Dose)
	}
	if m.Frequency != "daily" {
		t.Errorf("expected frequency daily, got %q", m.Frequency)
	}
}

func TestMedications_DecreaseWithUnits(t *testing.T) {
	meds := Medications("Decrease lantus to 18 units at bedtime")
	m := findMed(t, meds, "lantus")
	if m.Action != ActionDecrease {
		t.Errorf("expected decrease, got %q", m.Action)
	}
	if m.Dose != "18 units" {
		t.Errorf("expected dose %q, got %q", "18 units", m.Dose)
	}
	if m.Frequency != "at bedtime" {
		t.Errorf("expected frequency %q, got %q", "at bedtime", m.Frequency)
	}
}

func TestMedications_MultiWordDrug(t *testing.T) {
	meds := Medications("Start insulin glargine 10 units at bedtime")
	m := findMed(t, meds, "insulin glargine")
	if m.Dose != "10 units" {
		t.Errorf("expected dose %q, got %q", "10 units", m.Dose)
	}
}

func TestMedications_Dedup(t *testing.T) {
	text := "Start metformin 500mg twice daily. Start metformin 500mg twice daily."
	meds := Medications(text)
	if len(meds) != 1 {
		t.Fatalf("expected duplicates collapsed to 1 entry, got %d: %+v", len(meds), meds)
	}
}

func TestMedications_DedupInvariantHolds(t *testing.T) {
	text := "Start metformin 500mg BID. Stop lisinopril. Refill metformin. " +
		"Continue losartan, increase atorvastatin to 40mg, stop lisinopril again."
	meds := Medications(text)
	seen := map[string]bool{}
	for _, m := range meds {
		key := m.Action + "|" + m.Drug + "|" + m.Dose
		if seen[key] {
			t.Errorf("duplicate (action, drug, dose) triple: %+v", m)
		}
		seen[key] = true
	}
}

func TestMedications_EmptyAndNoise(t *testing.T) {
	for _, text := range []string{"", "   ", "patient doing well, follow up in 3 months", "!!!###"} {
		if meds := Medications(text); len(meds) != 0 {
			t.Errorf("expected no medications for %q, got %+v", text, meds)
		}
	}
}

func TestCleanDrugName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Metformin  ", "metformin"},
		{"Armour Thyroid", "armour thyroid"},
		{"lisinopril,", "lisinopril"},
		{"the metformin and", "metformin"},
		{"co-trimoxazole", "co-trimoxazole"},
		{"???", ""},
	}
	for _, c := range cases {
		if got := cleanDrugName(c.in); got != c.want {
			t.Errorf("cleanDrugName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsGenericTerm(t *testing.T) {
	for _, s := range []string{"meds", "all", "all meds", "medications", ""} {
		if !isGenericTerm(s) {
			t.Errorf("expected %q to be generic", s)
		}
	}
	for _, s := range []string{"metformin", "armour thyroid"} {
		if isGenericTerm(s) {
			t.Errorf("did not expect %q to be generic", s)
		}
	}
}

func TestFindFrequency_WindowBounds(t *testing.T) {
	// Frequency token beyond 100 chars after the match start is not picked up.
	pad := make([]byte, 120)
	for i := range pad {
		pad[i] = 'x'
	}
	text := "start " + string(pad) + " twice daily"
	if got := findFrequency(text, 0); got != "" {
		t.Errorf("expected no frequency outside window, got %q", got)
	}
	if got := findFrequency("take at bedtime", 0); got != "at bedtime" {
		t.Errorf("expected at bedtime, got %q", got)
	}
}
