package visitor

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayName returns the visitor's name for greetings, e.g. "jane  DOE" -> "Jane Doe".
func DisplayName(r *Record) string {
	if r == nil {
		return ""
	}
	name := strings.Join(strings.Fields(r.FullName), " ")
	if name == "" {
		return "Visitor"
	}
	return cases.Title(language.Und).String(name)
}
