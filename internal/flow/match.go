package flow

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lower-cases s, strips accents and collapses anything that is not
// a letter or digit into single spaces, so "¡Sí!" and "si" compare equal and
// "VER_VEHICULOS" matches "Ver vehículos".
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	fields := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(fields, " ")
}

// matchOption finds the option the reply refers to: its id (taps), its title
// or an alias (typed, case and accent insensitive), or its 1-based position.
func matchOption(reply string, opts []Option) (Option, bool) {
	in := foldText(reply)
	if in == "" {
		return Option{}, false
	}
	for _, o := range opts {
		if in == foldText(o.ID) || in == foldText(o.Title) {
			return o, true
		}
		for _, a := range o.Aliases {
			if in == foldText(a) {
				return o, true
			}
		}
	}
	if n, err := strconv.Atoi(in); err == nil && n >= 1 && n <= len(opts) {
		return opts[n-1], true
	}
	return Option{}, false
}

var escapeWords = map[string]bool{
	"cancelar": true,
	"menu":     true,
	"salir":    true,
}

func isEscapeWord(reply string) bool {
	return escapeWords[foldText(reply)]
}
