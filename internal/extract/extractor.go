// Package extract turns a raw posting's free text into a structured candidate
// record with per-field confidence. Extraction layers, in priority order:
// structured metadata from the driver (1.0), labeled lines and title-line
// segments (0.9), vocabulary and pattern matching (0.5-0.8). A field that
// cannot be determined stays empty with confidence 0; extraction never fails.
package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"circular_fetcher/internal/domain"
)

const (
	confMetadata = 1.0
	confLabeled  = 0.9
	confPattern  = 0.7
	confFallback = 0.5
)

var (
	departmentLabelRe = regexp.MustCompile(`(?im)^\s*(?:department|ministry|organization|organisation|directorate|authority)\s*[:\-]\s*(.+)$`)
	locationLabelRe   = regexp.MustCompile(`(?im)^\s*(?:location|workplace|job\s+location|posting\s+place)\s*[:\-]\s*(.+)$`)
	titleLabelRe      = regexp.MustCompile(`(?im)^\s*(?:post|position|post\s+name)\s*[:\-]\s*(.+)$`)
	deadlineLabelRe   = regexp.MustCompile(`(?i)(?:deadline|last\s+date(?:\s+of\s+application)?|apply\s+by)\s*[:\-]?\s*(\S+(?:\s+\S+){0,2})`)

	departmentHintRe = regexp.MustCompile(`(?i)\b(dept|department|ministry|directorate|division|board|authority|commission|bureau)\b`)

	// a numeric range counts as salary only when labeled or carrying a
	// currency token; bare "N to M" spans are age and vacancy ranges
	salaryRe    = regexp.MustCompile(`(?i)\b(?:salary|pay\s+scale)[:\s]*([\d,]+)(?:\s*(?:to|-|–)\s*([\d,]+))?(?:\s*(?:taka|tk|bdt))?|([\d,]+)\s*(?:to|-|–)\s*([\d,]+)\s*(?:taka|tk|bdt)\b|([\d,]+)\s*(?:taka|tk|bdt)\b`)
	gradeRe     = regexp.MustCompile(`(?i)\bgrade[:\s-]*(\d+)\b`)
	vacanciesRe = regexp.MustCompile(`(?i)(?:(\d+)\s*(?:posts?|positions?|vacancies|openings?)|(?:vacanc(?:y|ies)|posts?)[:\s]+(\d+))`)

	experienceRe = regexp.MustCompile(`(?i)(?:minimum\s+|at\s+least\s+)?(\d+)(?:\s*(?:to|-)\s*(\d+))?\s*\+?\s*years?\s+(?:of\s+)?experience`)
	fresherRe    = regexp.MustCompile(`(?i)\b(?:fresh\s+graduates?|freshers?|entry\s+level|no\s+experience)\b`)
	ageRe        = regexp.MustCompile(`(?i)age\s+(?:limit[:\s]+)?(\d+)\s*(?:to|-)\s*(\d+)\s*years?|maximum\s+age[:\s]+(\d+)\s*years?`)
	educationRe  = regexp.MustCompile(`(?i)\b(bachelor(?:'?s)?|masters?|phd|doctorate|diploma|b\.?sc|m\.?sc|bba|mba|llb|mbbs|hsc|ssc)\b(?:[^.;\n]*)`)
)

// skillVocabulary is the known-skill list matched against posting text.
var skillVocabulary = []string{
	"python", "java", "javascript", "php", "sql", "html", "css",
	"microsoft office", "ms office", "excel", "word", "powerpoint",
	"autocad", "matlab", "photoshop", "linux", "networking",
	"typing", "internet", "email", "database", "troubleshooting",
	"documentation", "reporting", "analysis", "research", "planning",
	"coordination", "supervision", "communication", "leadership",
	"teamwork", "problem solving", "analytical", "project management",
	"time management",
}

// Extractor converts raw postings into candidates. Threshold is the
// posting-level acceptance bar over min(title, department) confidence.
type Extractor struct {
	threshold float64
	logger    *slog.Logger
}

func New(threshold float64, logger *slog.Logger) *Extractor {
	return &Extractor{threshold: threshold, logger: logger}
}

// Extract builds a candidate from p. It never returns an error: missing
// fields stay empty at confidence 0 and the candidate is marked not accepted
// when the required fields fall below the threshold.
func (e *Extractor) Extract(p domain.RawPosting) domain.Candidate {
	fields := domain.ExtractedFields{Confidence: map[string]float64{}}
	body := CleanBody(p.RawBody)

	e.extractFromTitleLine(p.RawTitle, &fields)
	e.extractFromMetadata(p.RawMetadata, &fields)
	e.extractFromBody(body, &fields)

	score := min(fields.FieldConfidence(domain.FieldTitle), fields.FieldConfidence(domain.FieldDepartment))

	cand := domain.Candidate{
		Posting:  p,
		Fields:   fields,
		Score:    score,
		Accepted: score >= e.threshold,
	}

	if !cand.Accepted {
		e.logger.Debug("candidate below acceptance threshold",
			"source", p.SourceID,
			"url", p.URL,
			"score", score,
		)
	}

	return cand
}

// extractFromTitleLine handles comma-separated title lines like
// "Assistant Engineer, Roads Dept, Dhaka, Deadline 2024-05-01": the first
// segment is the post name, the rest are classified by shape.
func (e *Extractor) extractFromTitleLine(rawTitle string, fields *domain.ExtractedFields) {
	raw := CleanText(rawTitle)
	if raw == "" {
		return
	}

	segments := strings.Split(raw, ",")
	setField(fields, domain.FieldTitle, NormalizeTitle(segments[0]), confLabeled)

	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if m := deadlineLabelRe.FindStringSubmatch(seg); m != nil {
			if t, ok := FindDate(m[1]); ok && fields.Deadline == nil {
				deadline := t
				fields.Deadline = &deadline
				fields.Confidence[domain.FieldDeadline] = confLabeled
			}
			continue
		}
		if loc, ok := KnownLocation(seg); ok && fields.Location == "" {
			setField(fields, domain.FieldLocation, loc, confLabeled)
			continue
		}
		if departmentHintRe.MatchString(seg) && fields.Department == "" {
			setField(fields, domain.FieldDepartment, NormalizeDepartment(seg), confLabeled)
		}
	}
}

// extractFromMetadata applies driver-provided structured sub-blocks. No
// inference happened, so these land at confidence 1.0 and override anything
// weaker.
func (e *Extractor) extractFromMetadata(meta map[string]string, fields *domain.ExtractedFields) {
	if meta == nil {
		return
	}

	if v := CleanText(meta["title"]); v != "" {
		setField(fields, domain.FieldTitle, NormalizeTitle(v), confMetadata)
	}
	if v := CleanText(meta["department"]); v != "" {
		setField(fields, domain.FieldDepartment, NormalizeDepartment(v), confMetadata)
	}
	if v := CleanText(meta["location"]); v != "" {
		setField(fields, domain.FieldLocation, NormalizeLocation(v), confMetadata)
	}
	if v := CleanText(meta["salary"]); v != "" {
		fields.SalaryRange = v
		fields.Confidence[domain.FieldSalary] = confMetadata
	}
	if v := CleanText(meta["grade"]); v != "" {
		fields.Grade = v
		fields.Confidence[domain.FieldGrade] = confMetadata
	}
	if v, ok := meta["deadline"]; ok {
		if t, parsed := ParseDate(v); parsed {
			deadline := t
			fields.Deadline = &deadline
			fields.Confidence[domain.FieldDeadline] = confMetadata
		}
	}
}

func (e *Extractor) extractFromBody(body string, fields *domain.ExtractedFields) {
	if body == "" {
		return
	}

	if fields.FieldConfidence(domain.FieldTitle) < confLabeled {
		if m := titleLabelRe.FindStringSubmatch(body); m != nil {
			setField(fields, domain.FieldTitle, NormalizeTitle(m[1]), confLabeled)
		}
	}
	if fields.FieldConfidence(domain.FieldDepartment) < confLabeled {
		if m := departmentLabelRe.FindStringSubmatch(body); m != nil {
			setField(fields, domain.FieldDepartment, NormalizeDepartment(m[1]), confLabeled)
		}
	}
	if fields.FieldConfidence(domain.FieldLocation) < confLabeled {
		if m := locationLabelRe.FindStringSubmatch(body); m != nil {
			setField(fields, domain.FieldLocation, NormalizeLocation(m[1]), confLabeled)
		} else if loc, ok := KnownLocation(body); ok && fields.Location == "" {
			setField(fields, domain.FieldLocation, loc, confPattern)
		}
	}

	if fields.Deadline == nil {
		if m := deadlineLabelRe.FindStringSubmatch(body); m != nil {
			if t, ok := FindDate(m[1]); ok {
				deadline := t
				fields.Deadline = &deadline
				fields.Confidence[domain.FieldDeadline] = confPattern
			}
		}
	}

	if fields.SalaryRange == "" {
		if m := salaryRe.FindString(body); m != "" {
			fields.SalaryRange = CleanText(m)
			fields.Confidence[domain.FieldSalary] = confPattern
		}
	}
	if fields.Grade == "" {
		if m := gradeRe.FindString(body); m != "" {
			fields.Grade = titleCase(m)
			fields.Confidence[domain.FieldGrade] = confPattern
		}
	}
	if fields.Vacancies == 0 {
		if m := vacanciesRe.FindStringSubmatch(body); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if n, err := strconv.Atoi(raw); err == nil {
				fields.Vacancies = n
				fields.Confidence[domain.FieldVacancies] = confPattern
			}
		}
	}

	fields.Skills = e.extractSkills(body)
	if len(fields.Skills) > 0 {
		// scaled by match strength, capped below the labeled tier
		fields.Confidence[domain.FieldSkills] = min(0.85, confFallback+0.1*float64(len(fields.Skills)))
	}

	fields.Eligibility = e.extractEligibility(body)
	if len(fields.Eligibility) > 0 {
		fields.Confidence[domain.FieldEligibility] = confFallback
	}
}

// extractSkills matches the known-skill vocabulary, returning a sorted,
// deduplicated set.
func (e *Extractor) extractSkills(body string) []string {
	lower := strings.ToLower(body)
	found := map[string]bool{}
	for _, skill := range skillVocabulary {
		if wordMatch(lower, skill) {
			found[titleCase(skill)] = true
		}
	}
	if len(found) == 0 {
		return nil
	}
	skills := make([]string, 0, len(found))
	for s := range found {
		skills = append(skills, s)
	}
	sort.Strings(skills)
	return skills
}

// extractEligibility collects criterion strings in a stable order:
// education, then experience, then age limits.
func (e *Extractor) extractEligibility(body string) []string {
	var criteria []string

	if m := educationRe.FindString(body); m != "" {
		criteria = append(criteria, CleanText(m))
	}

	if fresherRe.MatchString(body) {
		criteria = append(criteria, "Fresh graduates may apply")
	} else if m := experienceRe.FindStringSubmatch(body); m != nil {
		if m[2] != "" {
			criteria = append(criteria, fmt.Sprintf("%s-%s years experience", m[1], m[2]))
		} else {
			criteria = append(criteria, fmt.Sprintf("%s+ years experience", m[1]))
		}
	}

	if m := ageRe.FindStringSubmatch(body); m != nil {
		switch {
		case m[1] != "" && m[2] != "":
			criteria = append(criteria, fmt.Sprintf("Age %s-%s years", m[1], m[2]))
		case m[3] != "":
			criteria = append(criteria, fmt.Sprintf("Maximum age %s years", m[3]))
		}
	}

	return criteria
}

// setField assigns value at conf only when it beats the current confidence.
func setField(fields *domain.ExtractedFields, name, value string, conf float64) {
	if value == "" || conf <= fields.FieldConfidence(name) {
		return
	}
	switch name {
	case domain.FieldTitle:
		fields.Title = value
	case domain.FieldDepartment:
		fields.Department = value
	case domain.FieldLocation:
		fields.Location = value
	}
	fields.Confidence[name] = conf
}
