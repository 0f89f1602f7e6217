package extract

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circular_fetcher/internal/domain"
)

func testExtractor() *Extractor {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(0.3, logger)
}

func TestExtract_TitleLineSegments(t *testing.T) {
	e := testExtractor()

	cand := e.Extract(domain.RawPosting{
		SourceID: "govbd",
		RawTitle: "Assistant Engineer, Roads Dept, Dhaka, Deadline 2024-05-01",
	})

	assert.Equal(t, "Assistant Engineer", cand.Fields.Title)
	assert.Equal(t, "Roads Dept", cand.Fields.Department)
	assert.Equal(t, "Dhaka", cand.Fields.Location)
	require.NotNil(t, cand.Fields.Deadline)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *cand.Fields.Deadline)

	assert.InDelta(t, 0.9, cand.Fields.FieldConfidence(domain.FieldTitle), 0.001)
	assert.InDelta(t, 0.9, cand.Fields.FieldConfidence(domain.FieldDepartment), 0.001)
	assert.InDelta(t, 0.9, cand.Fields.FieldConfidence(domain.FieldLocation), 0.001)
	assert.InDelta(t, 0.9, cand.Score, 0.001)
	assert.True(t, cand.Accepted)
}

func TestExtract_MetadataOverridesWeakerLayers(t *testing.T) {
	e := testExtractor()

	cand := e.Extract(domain.RawPosting{
		SourceID: "govbd",
		RawTitle: "Sub Assistant Engineer, Power Division",
		RawMetadata: map[string]string{
			"department": "RHD",
			"location":   "Chattogram",
			"deadline":   "2026-03-15",
			"salary":     "22000-53060",
			"grade":      "Grade-9",
		},
	})

	assert.Equal(t, "Roads and Highways Department", cand.Fields.Department)
	assert.Equal(t, "Chittagong", cand.Fields.Location)
	assert.Equal(t, "22000-53060", cand.Fields.SalaryRange)
	assert.Equal(t, "Grade-9", cand.Fields.Grade)
	require.NotNil(t, cand.Fields.Deadline)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *cand.Fields.Deadline)

	assert.InDelta(t, 1.0, cand.Fields.FieldConfidence(domain.FieldDepartment), 0.001)
	assert.InDelta(t, 1.0, cand.Fields.FieldConfidence(domain.FieldLocation), 0.001)
}

func TestExtract_LabeledBodyLines(t *testing.T) {
	e := testExtractor()

	body := `Post: Junior Auditor
Ministry: Ministry of Finance
Location: Rajshahi
Last date of application: 15/03/2026
Pay Scale: 11000 to 26590 Taka
5 posts will be filled.
Bachelor degree in Commerce required. At least 2 years experience.
Age 18-30 years. Proficiency in Excel and typing expected.`

	cand := e.Extract(domain.RawPosting{SourceID: "govbd", RawBody: body})

	assert.Equal(t, "Junior Auditor", cand.Fields.Title)
	assert.Equal(t, "Ministry of Finance", cand.Fields.Department)
	assert.Equal(t, "Rajshahi", cand.Fields.Location)
	require.NotNil(t, cand.Fields.Deadline)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *cand.Fields.Deadline)
	assert.Equal(t, 5, cand.Fields.Vacancies)
	assert.NotEmpty(t, cand.Fields.SalaryRange)

	assert.Equal(t, []string{"Excel", "Typing"}, cand.Fields.Skills)
	require.Len(t, cand.Fields.Eligibility, 3)
	assert.Contains(t, cand.Fields.Eligibility[0], "Bachelor")
	assert.Equal(t, "2+ years experience", cand.Fields.Eligibility[1])
	assert.Equal(t, "Age 18-30 years", cand.Fields.Eligibility[2])

	assert.True(t, cand.Accepted)
}

func TestExtract_HTMLBody(t *testing.T) {
	e := testExtractor()

	body := "<div><p>Post: Data Entry Operator</p><p>Department: ICT Division</p><p>Location: Sylhet</p></div>"

	cand := e.Extract(domain.RawPosting{SourceID: "bdjobs", RawBody: body})

	assert.Equal(t, "Data Entry Operator", cand.Fields.Title)
	assert.Equal(t, "Information and Communication Technology Division", cand.Fields.Department)
	assert.Equal(t, "Sylhet", cand.Fields.Location)
}

func TestExtract_FresherEligibility(t *testing.T) {
	e := testExtractor()

	cand := e.Extract(domain.RawPosting{
		RawTitle: "Office Assistant, Finance Division",
		RawBody:  "HSC pass required. Fresh graduates may apply. Maximum age: 30 years.",
	})

	require.Len(t, cand.Fields.Eligibility, 2)
	assert.Contains(t, cand.Fields.Eligibility[0], "HSC")
	assert.Equal(t, "Fresh graduates may apply", cand.Fields.Eligibility[1])
}

func TestExtract_AgeRangeIsNotSalary(t *testing.T) {
	e := testExtractor()

	body := `Post: Sub Inspector
Department: Bangladesh Police
Age 19 to 27 years. Salary: 16000 to 38640 Taka.`

	cand := e.Extract(domain.RawPosting{SourceID: "govbd", RawBody: body})

	assert.Contains(t, cand.Fields.SalaryRange, "16000")
	assert.NotContains(t, cand.Fields.SalaryRange, "19 to 27")
	assert.Equal(t, []string{"Age 19-27 years"}, cand.Fields.Eligibility)
}

func TestExtract_BareNumericRangeIgnored(t *testing.T) {
	e := testExtractor()

	cand := e.Extract(domain.RawPosting{
		RawTitle: "Store Keeper, Food Directorate",
		RawBody:  "Between 2 to 5 posts will be filled across districts.",
	})

	assert.Empty(t, cand.Fields.SalaryRange)
	assert.Equal(t, 5, cand.Fields.Vacancies)
}

func TestExtract_CurrencyAnchoredSalary(t *testing.T) {
	e := testExtractor()

	cand := e.Extract(domain.RawPosting{
		RawTitle: "Night Guard, Postal Department",
		RawBody:  "Monthly pay 9300 taka plus allowances.",
	})

	assert.Equal(t, "9300 taka", cand.Fields.SalaryRange)
}

func TestExtract_EmptyPostingRejected(t *testing.T) {
	e := testExtractor()

	cand := e.Extract(domain.RawPosting{SourceID: "bdjobs", URL: "https://example.com/x"})

	assert.Equal(t, "", cand.Fields.Title)
	assert.Equal(t, 0.0, cand.Score)
	assert.False(t, cand.Accepted)
	assert.Equal(t, 0.0, cand.Fields.FieldConfidence(domain.FieldTitle))
}

func TestExtract_TitleOnlyBelowThreshold(t *testing.T) {
	e := testExtractor()

	// a bare title gives no department signal, so min(title, department) is 0
	cand := e.Extract(domain.RawPosting{RawTitle: "Security Guard"})

	assert.Equal(t, "Security Guard", cand.Fields.Title)
	assert.Equal(t, 0.0, cand.Score)
	assert.False(t, cand.Accepted)
}

func TestExtract_NeverPanicsOnGarbage(t *testing.T) {
	e := testExtractor()

	inputs := []domain.RawPosting{
		{RawTitle: ",,,,"},
		{RawTitle: "x", RawBody: "<<<>>>"},
		{RawBody: "Deadline: not a date at all"},
		{RawMetadata: map[string]string{"deadline": "garbage"}},
	}
	for _, p := range inputs {
		cand := e.Extract(p)
		assert.NotNil(t, cand.Fields.Confidence)
	}
}

func TestExtract_SkillsSortedAndDeduplicated(t *testing.T) {
	e := testExtractor()

	cand := e.Extract(domain.RawPosting{
		RawTitle: "Programmer, ICT Division",
		RawBody:  "Must know python, SQL and python. Java is a plus. Linux environment.",
	})

	assert.Equal(t, []string{"Java", "Linux", "Python", "Sql"}, cand.Fields.Skills)
	assert.LessOrEqual(t, cand.Fields.FieldConfidence(domain.FieldSkills), 0.85)
}
