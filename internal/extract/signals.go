package extract

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b(\d{2}[/.-]\d{2}[/.-]\d{2,4}|\d{4}-\d{2}-\d{2})\b`)
	reCurr   = regexp.MustCompile(`\b(brl|usd|eur|gbp)\b|r\$|[$£€]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}([.,]\d{3})*[.,]\d{2}\b`)
	reTaxID  = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`) // CNPJ
)

// invoiceSignal scores how invoice-like the text is. Logged only; never gates a request.
func invoiceSignal(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.15
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if reTaxID.MatchString(txtL) {
		score += 0.2
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
