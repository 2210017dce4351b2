// Package normalize turns raw spreadsheet strings into typed project values.
// Every function is pure and never fails; unusable input yields an absent value.
package normalize

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"imperium_gate/internal/domain"
)

// AggregatorDomain hosts 3D tours; only its sub-domains point at real tours.
const AggregatorDomain = "sobha.cloud"

var (
	nonNumeric   = regexp.MustCompile(`[^\d.]`)
	listSep      = regexp.MustCompile(`[|,/;]+`)
	linkSep      = regexp.MustCompile(`[|,;\s]+`)
	digits       = regexp.MustCompile(`\d+`)
	studio       = regexp.MustCompile(`(?i)studio`)
	httpScheme   = regexp.MustCompile(`(?i)^https?://`)
	pdfSuffix    = regexp.MustCompile(`(?i)\.pdf(\?|$)`)
	fileExt      = regexp.MustCompile(`\.[a-z0-9]+$`)
	slugDisallow = regexp.MustCompile(`[^a-z0-9\s\-_/]`)
	slugSep      = regexp.MustCompile(`[\s/_]+`)
	hyphens      = regexp.MustCompile(`-+`)
)

// Number keeps digits and dots only; "AED 1,250,000" → 1250000.
func Number(s string) *float64 {
	n := nonNumeric.ReplaceAllString(s, "")
	if n == "" {
		return nil
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// SplitList splits on | , / ; and drops empty tokens.
func SplitList(s string) []string {
	var out []string
	for _, tok := range listSep.Split(s, -1) {
		if t := strings.TrimSpace(tok); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Bedrooms maps "Studio, 1BR, 2BR" to [Studio 1 2]. Tokens with neither a
// studio marker nor a number are dropped.
func Bedrooms(s string) []domain.Bedroom {
	out := []domain.Bedroom{}
	for _, tok := range SplitList(s) {
		if studio.MatchString(tok) {
			out = append(out, domain.Studio())
			continue
		}
		if m := digits.FindString(tok); m != "" {
			n, err := strconv.Atoi(m)
			if err != nil {
				continue
			}
			out = append(out, domain.Rooms(n))
		}
	}
	return out
}

var propertyTypeSynonyms = map[string]string{
	"apartment": "Apartment", "apts": "Apartment", "flat": "Apartment",
	"villa":     "Villa",
	"townhouse": "Townhouse", "th": "Townhouse",
	"penthouse": "Penthouse", "ph": "Penthouse",
	"plot":      "Plot",
	"duplex":    "Duplex",
	"loft":      "Loft",
}

// PropertyTypes canonicalizes known synonyms and upper-cases the first letter
// of anything else. Duplicates collapse; first occurrence wins the position.
func PropertyTypes(s string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, tok := range SplitList(s) {
		label, ok := propertyTypeSynonyms[strings.ToLower(tok)]
		if !ok {
			label = upperFirst(tok)
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Slug builds a URL-safe identifier. Diacritics are folded away, separator
// runs become one hyphen and other punctuation is dropped. Slug(Slug(x)) == Slug(x).
func Slug(s, fallback string) string {
	if out := slugify(s); out != "" {
		return out
	}
	if out := slugify(fallback); out != "" {
		return out
	}
	return "project"
}

func slugify(s string) string {
	src := strings.ToLower(strings.TrimSpace(s))
	src = fileExt.ReplaceAllString(src, "")
	src = foldDiacritics(src)
	src = slugDisallow.ReplaceAllString(src, "")
	src = slugSep.ReplaceAllString(src, "-")
	src = hyphens.ReplaceAllString(src, "-")
	return strings.Trim(src, "-")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Valid3DLink accepts http(s) URLs unless the host is the bare aggregator domain.
func Valid3DLink(raw string) bool {
	if !httpScheme.MatchString(raw) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return false
	}
	return !strings.EqualFold(u.Hostname(), AggregatorDomain)
}

// Tour3DLinks splits a cell of tour URLs and keeps the valid ones.
func Tour3DLinks(s string) []string {
	out := []string{}
	for _, l := range splitLinks(s) {
		if Valid3DLink(l) {
			out = append(out, l)
		}
	}
	return out
}

// HTTPLinks splits a cell of URLs and keeps the http(s) ones.
func HTTPLinks(s string) []string {
	out := []string{}
	for _, l := range splitLinks(s) {
		if httpScheme.MatchString(l) {
			out = append(out, l)
		}
	}
	return out
}

// URLs contain "/", so link cells split on the remaining separators only.
func splitLinks(s string) []string {
	var out []string
	for _, tok := range linkSep.Split(s, -1) {
		if t := strings.TrimSpace(tok); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// PDFLink returns s when it points at a .pdf, else "".
func PDFLink(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && pdfSuffix.MatchString(s) {
		return s
	}
	return ""
}

// Developer maps a brand string onto the fixed developer set.
func Developer(brand string) domain.Developer {
	s := strings.ToLower(strings.TrimSpace(brand))
	if s == "" {
		return domain.DeveloperUnknown
	}
	for _, d := range domain.Developers {
		if strings.Contains(s, string(d)) {
			return d
		}
	}
	return domain.DeveloperUnknown
}

// TitleCase turns a directory name like "dubai_hills-estate" into "Dubai Hills Estate".
func TitleCase(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.TrimSpace(cases.Title(language.English).String(s))
}
