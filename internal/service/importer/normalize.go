package importer

import (
	"regexp"
	"strings"
)

var (
	reSpaces        = regexp.MustCompile(`\s+`)
	reCityPrefix    = regexp.MustCompile(`^(?:г\.\s*|город\s+)`)
	reUnitSuffix    = regexp.MustCompile(`\s*(?:муниципальный\s+)?(?:район|округ)$`)
	reItemNumbering = regexp.MustCompile(`^\d+(?:\.\d+)*\.?\s+`)
)

func fold(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ё", "е")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// NormalizeMunicipality приводит название к ключу сопоставления:
// «г. Елец» → «елец», «Елецкий муниципальный район» → «елецкий».
func NormalizeMunicipality(name string) string {
	s := fold(name)
	s = reCityPrefix.ReplaceAllString(s, "")
	s = reUnitSuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NormalizeItem: ключ для названий показателей и услуг, без ведущей нумерации «1.2.».
func NormalizeItem(name string) string {
	s := fold(name)
	s = reItemNumbering.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Summary распознаёт итоговые строки по вхождению шаблона.
type Summary []string

func NewSummary(patterns []string) Summary {
	s := make(Summary, 0, len(patterns))
	for _, p := range patterns {
		if p = fold(p); p != "" {
			s = append(s, p)
		}
	}
	return s
}

func (s Summary) Match(label string) bool {
	l := fold(label)
	for _, p := range s {
		if strings.Contains(l, p) {
			return true
		}
	}
	return false
}
