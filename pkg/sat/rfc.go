package sat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// PatronRFC forma del RFC: 3 (moral) o 4 (física) letras, fecha AAMMDD y homoclave.
const PatronRFC = `^[A-ZÑ&]{3,4}[0-9]{6}[A-Z0-9]{3}$`

// RFC genéricos del Anexo 20.
const (
	RFCPublicoGeneral = "XAXX010101000" // operaciones con el público en general
	RFCExtranjero     = "XEXX010101000" // residentes en el extranjero
)

var rfcRe = regexp.MustCompile(PatronRFC)

// ValidateRFC valida la forma del RFC. No consulta la lista de contribuyentes del SAT.
func ValidateRFC(rfc string) error {
	if !rfcRe.MatchString(rfc) {
		return fmt.Errorf("sat: RFC %q no cumple el patrón %s", rfc, PatronRFC)
	}
	return nil
}

// EsPersonaMoral indica si el RFC corresponde a una persona moral (12 posiciones).
func EsPersonaMoral(rfc string) bool {
	return utf8.RuneCountInString(rfc) == 12 && rfcRe.MatchString(rfc)
}

// EsRFCGenerico indica si el RFC es uno de los genéricos (público en general o extranjero).
func EsRFCGenerico(rfc string) bool {
	rfc = strings.ToUpper(strings.TrimSpace(rfc))
	return rfc == RFCPublicoGeneral || rfc == RFCExtranjero
}
