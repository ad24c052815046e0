// internal/phone/phone.go
package phone

import "strings"

// Normalizer rewrites raw phone input into the canonical mobile form
// "+<country><indicator><area><subscriber>" for one country's numbering
// rules.
type Normalizer struct {
    CountryCode      string
    MobileIndicator  string
    LocalMobileInfix string
}

// Argentina: country code 54, mobile indicator 9, local "15" infix.
var Argentina = &Normalizer{
    CountryCode:      "54",
    MobileIndicator:  "9",
    LocalMobileInfix: "15",
}

// Normalize is Argentina.Normalize.
func Normalize(raw string) string {
    return Argentina.Normalize(raw)
}

// Normalize strips formatting, drops international ("00") and national
// trunk ("0") prefixes, prepends the country code when absent, ensures the
// mobile indicator follows it (replacing a local "15" infix when present)
// and prefixes "+". Empty input returns "" and the caller must treat that
// as invalid. No length validation is performed here.
func (n *Normalizer) Normalize(raw string) string {
    digits := stripNonDigits(raw)
    if digits == "" {
        return ""
    }

    if strings.HasPrefix(digits, "00") {
        digits = digits[2:]
    } else if strings.HasPrefix(digits, "0") {
        digits = digits[1:]
    }

    if !strings.HasPrefix(digits, n.CountryCode) {
        digits = n.CountryCode + digits
    }

    national := digits[len(n.CountryCode):]
    if !strings.HasPrefix(national, n.MobileIndicator) {
        national = n.stripMobileInfix(national)
        national = n.MobileIndicator + national
    }

    return "+" + n.CountryCode + national
}

// stripMobileInfix removes the local mobile infix that follows the area
// code in nationally dialled numbers ("11 15 3771-0010"). Area codes are 2
// to 4 digits; the infix is only looked for when the length says it must be
// there (10-digit national number plus the 2-digit infix).
func (n *Normalizer) stripMobileInfix(national string) string {
    if len(national) != 12 {
        return national
    }
    for _, area := range []int{2, 3, 4} {
        if national[area:area+2] == n.LocalMobileInfix {
            return national[:area] + national[area+2:]
        }
    }
    return national
}

func stripNonDigits(s string) string {
    var b strings.Builder
    for _, r := range s {
        if r >= '0' && r <= '9' {
            b.WriteRune(r)
        }
    }
    return b.String()
}
