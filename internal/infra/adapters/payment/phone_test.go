package payment

import "testing"

func TestNumberingPlanMatch(t *testing.T) {
	t.Run("should accept a national MTN number and format it to E.164", func(t *testing.T) {
		formatted, ok := mtnCIPlan.Match("07 00 00 00")
		if !ok {
			t.Fatal("expected the number to match the MTN plan")
		}
		if formatted != "+22507000000" {
			t.Errorf("expected +22507000000, got %s", formatted)
		}
	})

	t.Run("should accept an E.164 MTN number", func(t *testing.T) {
		formatted, ok := mtnCIPlan.Match("+22547123456")
		if !ok {
			t.Fatal("expected the number to match the MTN plan")
		}
		if formatted != "+22547123456" {
			t.Errorf("expected +22547123456, got %s", formatted)
		}
	})

	t.Run("should accept the international 00 prefix", func(t *testing.T) {
		formatted, ok := mtnCIPlan.Match("0022505123456")
		if !ok {
			t.Fatal("expected the number to match the MTN plan")
		}
		if formatted != "+22505123456" {
			t.Errorf("expected +22505123456, got %s", formatted)
		}
	})

	t.Run("formatting should be idempotent", func(t *testing.T) {
		first, ok := mtnCIPlan.Match("0748123456")
		if !ok {
			t.Fatal("expected the number to match")
		}
		second, ok := mtnCIPlan.Match(first)
		if !ok {
			t.Fatal("expected the formatted number to match again")
		}
		if first != second {
			t.Errorf("formatting changed the number: %s != %s", first, second)
		}
	})

	t.Run("should reject a prefix outside the plan", func(t *testing.T) {
		if _, ok := mtnCIPlan.Match("0812345678"); ok {
			t.Error("08 is not an MTN prefix and must not match")
		}
	})

	t.Run("should reject wrong lengths", func(t *testing.T) {
		for _, msisdn := range []string{"07123", "071234567890", ""} {
			if _, ok := mtnCIPlan.Match(msisdn); ok {
				t.Errorf("expected %q to be rejected", msisdn)
			}
		}
	})

	t.Run("should match Senegalese Wave numbers with the 221 code", func(t *testing.T) {
		formatted, ok := waveSNPlan.Match("+221771234567")
		if !ok {
			t.Fatal("expected the number to match the Wave SN plan")
		}
		if formatted != "+221771234567" {
			t.Errorf("expected +221771234567, got %s", formatted)
		}
	})
}

func TestNormalizeMsisdn(t *testing.T) {
	cases := map[string]string{
		"+225 07 48 12 34 56":  "2250748123456",
		"07-48-12-34-56":       "0748123456",
		"(225) 07.48.12.34.56": "2250748123456",
		"0022547123456":        "22547123456",
		"no digits here":       "",
	}
	for raw, want := range cases {
		if got := normalizeMsisdn(raw); got != want {
			t.Errorf("normalizeMsisdn(%q) = %q, want %q", raw, got, want)
		}
	}
}
