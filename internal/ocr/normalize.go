package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

// noiseKeywords mark whole lines of receipt boilerplate: payment-terminal
// chatter, tax labels, loyalty/barcode jargon and totals phrasing. A line
// containing any of them (case-insensitive) carries no purchase content.
var noiseKeywords = []string{
	"swish", "kort", "orgnr", "vat", "moms", "kopiakvitto",
	"terminal", "powered", "verifikat", "service", "id",
	"barcode", "total att betala", "vxl", "tack för besöket",
	"betalning", "summa att betala",
}

var (
	reBarcodeLine  = regexp.MustCompile(`^[0-9]{8,}$`)
	reDecimalComma = regexp.MustCompile(`(\d+),(\d{2})`)
	reLineBreak    = regexp.MustCompile(`\r\n?`)
)

// Normalize cleans raw OCR text into a compact form for extraction.
// Deterministic and pure: blank lines, noise-keyword lines and barcode-only
// lines are dropped, locale decimal commas become dots, and a line without
// any digit is folded into the previous kept line (OCR tends to break an
// item name away from its price line). May return the empty string.
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	lines := strings.Split(reLineBreak.ReplaceAllString(raw, "\n"), "\n")

	var kept []string
	lastKept := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if containsNoiseKeyword(lower) {
			continue
		}

		if reBarcodeLine.MatchString(line) {
			continue
		}

		line = reDecimalComma.ReplaceAllString(line, "$1.$2")

		if lastKept != "" && !containsDigit(line) {
			kept[len(kept)-1] = kept[len(kept)-1] + " " + line
			continue
		}
		kept = append(kept, line)
		lastKept = line
	}

	return strings.Join(kept, "\n")
}

func containsNoiseKeyword(lower string) bool {
	for _, kw := range noiseKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}
