// internal/variables/sanitize.go
package variables

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ralborta/nutryhome-backend/internal/model"
)

// MaxValueLength caps every variable before it reaches the voice agent.
const MaxValueLength = 500

var (
	whitespaceRun = regexp.MustCompile(`[\s\t\r\n]+`)
	quantityKey   = regexp.MustCompile(`(?i)^(cantidad|quantity)`)
)

// Sanitize cleans a raw field map into the set of variables safe to inject
// into the agent prompt. Fields whose cleaned value is empty or the "NA"
// placeholder are dropped, as are quantity fields holding exactly zero;
// blanks spoken aloud degrade the call. Sanitizing an already sanitized map
// changes nothing.
func Sanitize(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		cleaned := Clean(value)
		if cleaned == "" || strings.EqualFold(cleaned, "NA") {
			continue
		}
		if quantityKey.MatchString(key) && isZero(cleaned) {
			continue
		}
		out[key] = cleaned
	}
	return out
}

// Clean trims, collapses internal whitespace runs to single spaces and
// truncates to MaxValueLength runes. The cut can land right after a word
// boundary, so the result is trimmed again; otherwise cleaning an already
// clean value would shrink it a second time.
func Clean(value string) string {
	cleaned := whitespaceRun.ReplaceAllString(value, " ")
	cleaned = strings.TrimSpace(cleaned)
	if runes := []rune(cleaned); len(runes) > MaxValueLength {
		cleaned = strings.TrimRight(string(runes[:MaxValueLength]), " ")
	}
	return cleaned
}

// BuildContactVariables assembles the prompt-variable map for one contact
// and sanitizes it. Keys match what the voice agent's prompt expects.
func BuildContactVariables(c *model.Contact) map[string]string {
	raw := map[string]string{
		"nombre_contacto": c.ContactName,
		"paciente":        c.PatientName,
		"direccion":       c.Address,
		"localidad":       c.Locality,
		"provincia":       c.Province,
		"fecha_envio":     c.DeliveryDate,
		"observaciones":   c.Notes,
		"producto1":       c.Product1,
		"cantidad1":       c.Quantity1,
		"producto2":       c.Product2,
		"cantidad2":       c.Quantity2,
		"producto3":       c.Product3,
		"cantidad3":       c.Quantity3,
		"producto4":       c.Product4,
		"cantidad4":       c.Quantity4,
		"producto5":       c.Product5,
		"cantidad5":       c.Quantity5,
	}
	return Sanitize(raw)
}

func isZero(value string) bool {
	n, err := strconv.ParseFloat(value, 64)
	return err == nil && n == 0
}
