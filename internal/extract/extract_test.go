package extract

import (
	"reflect"
	"testing"
)

func TestActions_EmptyInput(t *testing.T) {
	result := Actions("")
	if result.Meds == nil || len(result.Meds) != 0 {
		t.Errorf("expected empty non-nil meds, got %#v", result.Meds)
	}
	if result.Labs == nil || len(result.Labs) != 0 {
		t.Errorf("expected empty non-nil labs, got %#v", result.Labs)
	}
}

func TestActions_Deterministic(t *testing.T) {
	text := "Start metformin 500mg twice daily. Stop lisinopril. " +
		"Order A1C and CBC, check TSH. Continue losartan."
	first := Actions(text)
	second := Actions(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestActions_CombinedNote(t *testing.T) {
	text := `Patient seen for diabetes follow-up. A1C elevated at 8.2.
Start metformin 500mg twice daily with meals.
Stop lisinopril due to cough, will switch to losartan.
Refill levothyroxine.
Order A1C and CMP, check TSH in 6 weeks.`

	result := Actions(text)

	if len(result.Meds) < 3 {
		t.Fatalf("expected at least 3 medication actions, got %+v", result.Meds)
	}
	byDrug := map[string]MedicationAction{}
	for _, m := range result.Meds {
		if _, ok := byDrug[m.Drug]; !ok {
			byDrug[m.Drug] = m
		}
	}
	if m := byDrug["metformin"]; m.Action != ActionStart || m.Dose != "500 mg" {
		t.Errorf("metformin: expected start 500 mg, got %+v", m)
	}
	if m := byDrug["lisinopril"]; m.Action != ActionStop {
		t.Errorf("lisinopril: expected stop, got %+v", m)
	}
	if m := byDrug["levothyroxine"]; m.Action != ActionRefill {
		t.Errorf("levothyroxine: expected refill, got %+v", m)
	}

	if len(result.Labs) != 1 {
		t.Fatalf("expected 1 merged lab action, got %+v", result.Labs)
	}
	for _, name := range []string{"A1C", "CMP", "TSH"} {
		if !hasTest(result.Labs[0].Tests, name) {
			t.Errorf("expected lab test %q in %+v", name, result.Labs[0].Tests)
		}
	}
}

func TestActions_ExtractorsIndependent(t *testing.T) {
	// Medication-only text produces no labs and vice versa.
	medsOnly := Actions("Start metformin 500mg twice daily")
	if len(medsOnly.Labs) != 0 {
		t.Errorf("expected no labs, got %+v", medsOnly.Labs)
	}
	labsOnly := Actions("Order CBC and CMP")
	if len(labsOnly.Meds) != 0 {
		t.Errorf("expected no meds, got %+v", labsOnly.Meds)
	}
	if len(labsOnly.Labs) != 1 {
		t.Errorf("expected 1 lab action, got %+v", labsOnly.Labs)
	}
}
