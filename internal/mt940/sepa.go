package mt940

import (
	"regexp"
	"strings"
)

// SEPA holds the /TAG/value sub-fields found in a :86: narrative.
type SEPA struct {
	Name       string // /NAME/
	Remittance string // /REMI/
	IBAN       string // /IBAN/
}

var (
	nameRe = regexp.MustCompile(`/NAME/([^/]*)`)
	remiRe = regexp.MustCompile(`/REMI/([^/]*)`)
	ibanRe = regexp.MustCompile(`/IBAN/([^/]*)`)
)

// ExtractSEPA pulls each sub-field independently. A value runs up to the next
// slash or the end of the text; missing or empty tags stay "".
func ExtractSEPA(text string) SEPA {
	return SEPA{
		Name:       subField(nameRe, text),
		Remittance: subField(remiRe, text),
		IBAN:       subField(ibanRe, text),
	}
}

func subField(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
