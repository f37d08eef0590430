package phone

import "testing"

func TestCanonical(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"3125550100", "+13125550100"},
		{"13125550100", "+13125550100"},
		{"+1 312-555-0100", "+13125550100"},
		{"(312) 555-0100", "+13125550100"},
		{"+447911123456", "+447911123456"},
		{"", ""},
		{"n/a", ""},
	}
	for _, tt := range cases {
		if got := Canonical(tt.raw); got != tt.want {
			t.Fatalf("Canonical(%q)=%q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestVariantsOverlapAcrossFormats(t *testing.T) {
	// Every way a US number shows up must share enough variants for an
	// exact-match lookup against any of the others.
	forms := []string{"13125550100", "+1 312-555-0100", "(312) 555-0100", "3125550100"}
	for _, stored := range forms {
		for _, inbound := range forms {
			if !overlap(Variants(stored), Variants(inbound)) {
				t.Fatalf("no overlap between variants of %q and %q", stored, inbound)
			}
		}
	}
}

func TestVariantsContents(t *testing.T) {
	variants := Variants("+1 (312) 555-0100")
	for _, want := range []string{
		"+1 (312) 555-0100",
		"+13125550100",
		"13125550100",
		"3125550100",
		"(312) 555-0100",
		"312-555-0100",
	} {
		if !contains(variants, want) {
			t.Fatalf("variants %v missing %q", variants, want)
		}
	}
}

func TestVariantsNoCrossCustomerCollision(t *testing.T) {
	if overlap(Variants("3125550100"), Variants("3125550101")) {
		t.Fatalf("distinct numbers must not share variants")
	}
}

func TestVariantsDegenerateInput(t *testing.T) {
	if got := Variants(""); got != nil {
		t.Fatalf("empty input: %v", got)
	}
	got := Variants("unknown")
	if len(got) != 1 || got[0] != "unknown" {
		t.Fatalf("digit-free input keeps only the raw form: %v", got)
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func overlap(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}
