package agent

import (
	"testing"
)

func TestSplitSections(t *testing.T) {
	headings := []string{"estimated cost", "risk assessment", "schedule impact"}

	t.Run("numbered headings", func(t *testing.T) {
		text := `Here is my analysis.

1. Estimated cost
Approximately 25.000 EUR total.

2. Risk assessment: medium
Structural changes always carry uncertainty.

3. Schedule impact
Two weeks of delay.`

		sections := SplitSections(text, headings)
		if len(sections) != 3 {
			t.Fatalf("got %d sections: %v", len(sections), sections)
		}
		if got := sections["estimated cost"]; got != "Approximately 25.000 EUR total." {
			t.Errorf("estimated cost = %q", got)
		}
		// Text trailing the heading on the same line stays in the body.
		if got := sections["risk assessment"]; got == "" || got[:6] != "medium" {
			t.Errorf("risk assessment = %q", got)
		}
	})

	t.Run("markdown decorated headings", func(t *testing.T) {
		text := "## **Estimated Cost**\n1500 EUR\n\n### Risk Assessment\nlow"
		sections := SplitSections(text, headings)
		if sections["estimated cost"] != "1500 EUR" {
			t.Errorf("estimated cost = %q", sections["estimated cost"])
		}
		if sections["risk assessment"] != "low" {
			t.Errorf("risk assessment = %q", sections["risk assessment"])
		}
	})

	t.Run("preamble discarded and missing sections absent", func(t *testing.T) {
		sections := SplitSections("chatter before any heading\nEstimated cost\n100", headings)
		if _, ok := sections["schedule impact"]; ok {
			t.Error("absent heading produced a section")
		}
		if sections["estimated cost"] != "100" {
			t.Errorf("estimated cost = %q", sections["estimated cost"])
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if got := SplitSections("", headings); len(got) != 0 {
			t.Errorf("sections from empty text: %v", got)
		}
	})
}

func TestFirstNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"approximately 25000 EUR", 25000},
		{"1,500.50 EUR", 1500.50},
		{"1.500,50 EUR", 1500.50},
		{"about 1.500 EUR", 1500},
		{"2.5 weeks equivalent", 2.5},
		{"no figure given", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := firstNumber(tc.in); got != tc.want {
			t.Errorf("firstNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRiskLevel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Risk is HIGH due to structural work", "high"},
		{"low risk overall", "low"},
		{"medium", "medium"},
		{"Risiko: hoch", "high"},
		{"unclear", "medium"},
	}
	for _, tc := range cases {
		if got := riskLevel(tc.in); got != tc.want {
			t.Errorf("riskLevel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBulletLines(t *testing.T) {
	in := "- first point\n* second point\n\n3. third point\n   - indented"
	got := bulletLines(in)
	want := []string{"first point", "second point", "third point", "indented"}
	if len(got) != len(want) {
		t.Fatalf("bulletLines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
