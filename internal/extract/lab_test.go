package extract

import (
	"strings"
	"testing"
)

func hasTest(tests []string, name string) bool {
	for _, t := range tests {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

func TestLabs_MergedOrder(t *testing.T) {
	labs := Labs("Order A1C and CBC, check TSH")
	if len(labs) != 1 {
		t.Fatalf("expected 1 merged lab action, got %d: %+v", len(labs), labs)
	}
	a := labs[0]
	if a.Action != ActionOrder {
		t.Errorf("expected action order, got %q", a.Action)
	}
	for _, name := range []string{"A1C", "CBC", "TSH"} {
		if !hasTest(a.Tests, name) {
			t.Errorf("expected test %q in %+v", name, a.Tests)
		}
	}
	if len(a.Tests) != 3 {
		t.Errorf("expected exactly 3 tests, got %+v", a.Tests)
	}
}

func TestLabs_MultipleSentencesMerge(t *testing.T) {
	labs := Labs("Order CBC and CMP today. Will check lipid panel at next visit. Repeat A1C in 3 months.")
	if len(labs) != 1 {
		t.Fatalf("expected 1 merged lab action, got %d: %+v", len(labs), labs)
	}
	for _, name := range []string{"CBC", "CMP", "lipid panel", "A1C"} {
		if !hasTest(labs[0].Tests, name) {
			t.Errorf("expected test %q in %+v", name, labs[0].Tests)
		}
	}
}

func TestLabs_NoCaseInsensitiveDuplicates(t *testing.T) {
	labs := Labs("Order a1c, check A1C, repeat A1c")
	if len(labs) != 1 {
		t.Fatalf("expected 1 lab action, got %+v", labs)
	}
	seen := map[string]bool{}
	for _, name := range labs[0].Tests {
		k := strings.ToLower(name)
		if seen[k] {
			t.Errorf("case-insensitive duplicate test %q in %+v", name, labs[0].Tests)
		}
		seen[k] = true
	}
}

func TestLabs_CanonicalCasePreserved(t *testing.T) {
	labs := Labs("check tsh and cbc")
	if len(labs) != 1 {
		t.Fatalf("expected 1 lab action, got %+v", labs)
	}
	if !hasTest(labs[0].Tests, "TSH") || !hasTest(labs[0].Tests, "CBC") {
		t.Fatalf("expected TSH and CBC, got %+v", labs[0].Tests)
	}
	for _, name := range labs[0].Tests {
		if name != strings.ToUpper(name) {
			t.Errorf("expected canonical vocabulary casing, got %q", name)
		}
	}
}

func TestLabs_HeuristicAcceptsAcronyms(t *testing.T) {
	labs := Labs("Check B12 and 25-OH level")
	if len(labs) != 1 {
		t.Fatalf("expected 1 lab action, got %+v", labs)
	}
	if !hasTest(labs[0].Tests, "B12") {
		t.Errorf("expected B12, got %+v", labs[0].Tests)
	}
	if !hasTest(labs[0].Tests, "25-OH") {
		t.Errorf("expected heuristic token 25-OH, got %+v", labs[0].Tests)
	}
}

func TestLabs_LongerVocabularyEntryWins(t *testing.T) {
	labs := Labs("Order Free T4 and TSH")
	if len(labs) != 1 {
		t.Fatalf("expected 1 lab action, got %+v", labs)
	}
	if !hasTest(labs[0].Tests, "Free T4") {
		t.Errorf("expected Free T4, got %+v", labs[0].Tests)
	}
	// The bare T4 entry must not also appear for the same mention.
	for _, name := range labs[0].Tests {
		if name == "T4" {
			t.Errorf("bare T4 duplicated alongside Free T4: %+v", labs[0].Tests)
		}
	}
}

func TestLabs_NoSignal(t *testing.T) {
	for _, text := range []string{"", "patient feels fine", "continue all meds"} {
		if labs := Labs(text); len(labs) != 0 {
			t.Errorf("expected no labs for %q, got %+v", text, labs)
		}
	}
}

func TestLabs_OrderVerbWithoutKnownTest(t *testing.T) {
	// An order verb followed by prose with no recognizable test yields nothing.
	if labs := Labs("check back with us next week"); len(labs) != 0 {
		t.Errorf("expected no labs, got %+v", labs)
	}
}

func TestIsLikelyLabTest(t *testing.T) {
	for _, tok := range []string{"CBC", "TSH", "BMP", "EGFR", "B12", "T3", "25-OH"} {
		if !isLikelyLabTest(tok) {
			t.Errorf("expected %q to look like a lab test", tok)
		}
	}
	for _, tok := range []string{"cbc", "a", "Hello", "X", "ABCDE", "12345"} {
		if isLikelyLabTest(tok) {
			t.Errorf("did not expect %q to look like a lab test", tok)
		}
	}
}

func TestCanonicalTestName(t *testing.T) {
	if got := canonicalTestName("tsh"); got != "TSH" {
		t.Errorf("expected TSH, got %q", got)
	}
	if got := canonicalTestName("lipid panel"); got != "lipid panel" {
		t.Errorf("expected lipid panel, got %q", got)
	}
}
