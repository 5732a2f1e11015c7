package flow

import (
	"net/mail"
	"regexp"
	"strings"
)

var (
	nameRe  = regexp.MustCompile(`^\p{L}[\p{L} '.\-]{1,49}$`)
	brandRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} .\-]{0,29}$`)
	modelRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} .\-/]{0,39}$`)
	colorRe = regexp.MustCompile(`^\p{L}[\p{L} ]{2,19}$`)
)

// collapseSpaces trims s and reduces inner whitespace runs to one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseName(s string) (string, bool) {
	s = collapseSpaces(s)
	return s, nameRe.MatchString(s)
}

func parseBrand(s string) (string, bool) {
	s = collapseSpaces(s)
	return s, brandRe.MatchString(s)
}

func parseModel(s string) (string, bool) {
	s = collapseSpaces(s)
	return s, modelRe.MatchString(s)
}

func parseColor(s string) (string, bool) {
	s = collapseSpaces(s)
	return s, colorRe.MatchString(s)
}

// parseEmail accepts a bare address with a dotted domain.
func parseEmail(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > 100 || strings.ContainsAny(s, " <>") {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", false
	}
	_, domain, _ := strings.Cut(s, "@")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return s, true
}
