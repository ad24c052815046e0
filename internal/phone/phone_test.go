package phone_test

import (
	"testing"

	"github.com/ralborta/nutryhome-backend/internal/phone"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"national with trunk zero", "01137710010", "+5491137710010"},
		{"national without trunk zero", "1137710010", "+5491137710010"},
		{"already canonical", "+5491137710010", "+5491137710010"},
		{"canonical without plus", "5491137710010", "+5491137710010"},
		{"international 00 prefix", "005491137710010", "+5491137710010"},
		{"spaces and dashes", "011 3771-0010", "+5491137710010"},
		{"parentheses", "(011) 3771 0010", "+5491137710010"},
		{"country code without indicator", "541137710010", "+5491137710010"},
		{"empty input", "", ""},
		{"only formatting chars", "() - ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := phone.Normalize(tc.in)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// The local "15" infix must be replaced by the mobile indicator, not kept
// alongside it, for every area-code length in use.
func TestNormalizeMobileInfix(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"2-digit area code", "011 15-3771-0010", "+5491137710010"},
		{"3-digit area code", "0341 15 555-6677", "+5493415556677"},
		{"4-digit area code", "02966 15 44-5566", "+5492966445566"},
		{"2-digit area no trunk zero", "11 15 3771 0010", "+5491137710010"},
		{"infix already absent 3-digit", "0341 555-6677", "+5493415556677"},
		{"indicator present keeps digits", "+54 9 341 555-6677", "+5493415556677"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := phone.Normalize(tc.in)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// Leading-zero equivalence: a national number with and without the trunk
// "0" must normalize identically.
func TestNormalizeTrunkZeroEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"01137710010", "1137710010"},
		{"03415556677", "3415556677"},
		{"029664455667", "29664455667"},
	}
	for _, p := range pairs {
		withZero := phone.Normalize(p[0])
		withoutZero := phone.Normalize(p[1])
		if withZero != withoutZero {
			t.Errorf("Normalize(%q) = %q but Normalize(%q) = %q", p[0], withZero, p[1], withoutZero)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"01137710010", "011 15-3771-0010", "+5493415556677"}
	for _, in := range inputs {
		once := phone.Normalize(in)
		twice := phone.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
