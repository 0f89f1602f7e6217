package extract

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	spaceRunRe   = regexp.MustCompile(`[^\S\n]+`)
	lineBreakRe  = regexp.MustCompile(` *\n+ *`)
)

// CleanText strips HTML tags and collapses whitespace.
func CleanText(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanBody strips HTML from a posting body but keeps line breaks, so
// labeled lines like "Department: ..." stay individually matchable.
func CleanBody(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineBreakRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// titleAbbreviations expands the shorthand portals use in post names.
var titleAbbreviations = map[string]string{
	"asst":  "Assistant",
	"sr":    "Senior",
	"jr":    "Junior",
	"mgr":   "Manager",
	"exec":  "Executive",
	"tech":  "Technical",
	"admin": "Administrative",
}

var redundantTitleRe = regexp.MustCompile(`(?i)\b(post of|position of|job of|recruitment|hiring|vacancy|advertisement|circular)\b`)

// NormalizeTitle cleans a post title: expands abbreviations, drops filler
// words like "post of" and "circular", and applies title casing.
func NormalizeTitle(title string) string {
	title = CleanText(title)
	if title == "" {
		return ""
	}

	words := strings.Fields(title)
	for i, w := range words {
		key := strings.ToLower(strings.Trim(w, "."))
		if full, ok := titleAbbreviations[key]; ok {
			words[i] = full
		}
	}
	title = strings.Join(words, " ")
	title = redundantTitleRe.ReplaceAllString(title, "")
	title = whitespaceRe.ReplaceAllString(title, " ")

	return titleCase(strings.TrimSpace(title))
}

// departmentExpansions maps well-known agency abbreviations to full names.
var departmentExpansions = map[string]string{
	"ict division": "Information and Communication Technology Division",
	"rhd":          "Roads and Highways Department",
	"lged":         "Local Government Engineering Department",
	"bsti":         "Bangladesh Standards and Testing Institution",
	"btrc":         "Bangladesh Telecommunication Regulatory Commission",
	"doe":          "Department of Environment",
	"dae":          "Department of Agricultural Extension",
	"dghs":         "Directorate General of Health Services",
	"bcs":          "Bangladesh Civil Service",
}

// NormalizeDepartment expands known abbreviations and title-cases the rest.
func NormalizeDepartment(department string) string {
	department = CleanText(department)
	if department == "" {
		return ""
	}

	lower := strings.ToLower(department)
	for abbrev, full := range departmentExpansions {
		if wordMatch(lower, abbrev) {
			return full
		}
	}

	return titleCase(department)
}

// canonicalLocations maps spelling variants to canonical district names.
var canonicalLocations = map[string]string{
	"dhaka":       "Dhaka",
	"chittagong":  "Chittagong",
	"chattogram":  "Chittagong",
	"sylhet":      "Sylhet",
	"rajshahi":    "Rajshahi",
	"khulna":      "Khulna",
	"barisal":     "Barisal",
	"barishal":    "Barisal",
	"rangpur":     "Rangpur",
	"mymensingh":  "Mymensingh",
	"comilla":     "Comilla",
	"cox's bazar": "Cox's Bazar",
	"jessore":     "Jessore",
	"bogra":       "Bogra",
	"faridpur":    "Faridpur",
	"pabna":       "Pabna",
}

// NormalizeLocation maps spelling variants to the canonical district name and
// title-cases anything unknown.
func NormalizeLocation(location string) string {
	location = CleanText(location)
	if location == "" {
		return ""
	}

	lower := strings.ToLower(location)
	for variant, canonical := range canonicalLocations {
		if strings.Contains(lower, variant) {
			return canonical
		}
	}

	return titleCase(location)
}

// KnownLocation reports whether text mentions a known district.
func KnownLocation(text string) (string, bool) {
	lower := strings.ToLower(text)
	for variant, canonical := range canonicalLocations {
		if strings.Contains(lower, variant) {
			return canonical, true
		}
	}
	return "", false
}

var smallWords = map[string]bool{
	"of": true, "and": true, "the": true, "in": true, "for": true, "at": true,
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && smallWords[lower] {
			words[i] = lower
			continue
		}
		words[i] = capitalize(lower)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func wordMatch(haystack, needle string) bool {
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return false
	}
	before := idx == 0 || !isWordChar(haystack[idx-1])
	end := idx + len(needle)
	after := end == len(haystack) || !isWordChar(haystack[end])
	return before && after
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
