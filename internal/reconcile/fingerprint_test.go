package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"circular_fetcher/internal/domain"
)

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("Portal", "Assistant Engineer", "RHD", "2024-05-01")
	b := Fingerprint("portal", "  assistant   ENGINEER ", "rhd", "2024-05-01")
	assert.Equal(t, a, b)
}

func TestFingerprint_DistinguishesComponents(t *testing.T) {
	base := Fingerprint("Portal", "Assistant Engineer", "RHD", "2024-05-01")
	assert.NotEqual(t, base, Fingerprint("Other", "Assistant Engineer", "RHD", "2024-05-01"))
	assert.NotEqual(t, base, Fingerprint("Portal", "Junior Engineer", "RHD", "2024-05-01"))
	assert.NotEqual(t, base, Fingerprint("Portal", "Assistant Engineer", "LGED", "2024-05-01"))
	assert.NotEqual(t, base, Fingerprint("Portal", "Assistant Engineer", "RHD", "2024-06-01"))
}

func TestCandidateFingerprint_PrefersDeadline(t *testing.T) {
	deadline := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	withDeadline := domain.Candidate{
		Posting: domain.RawPosting{SourceName: "Portal", URL: "https://example.com/a"},
		Fields:  domain.ExtractedFields{Title: "Clerk", Department: "DoE", Deadline: &deadline},
	}
	sameJobOtherURL := withDeadline
	sameJobOtherURL.Posting.URL = "https://example.com/b"

	assert.Equal(t, CandidateFingerprint(withDeadline), CandidateFingerprint(sameJobOtherURL))
}

func TestCandidateFingerprint_FallsBackToURL(t *testing.T) {
	a := domain.Candidate{
		Posting: domain.RawPosting{SourceName: "Portal", URL: "https://example.com/a"},
		Fields:  domain.ExtractedFields{Title: "Clerk", Department: "DoE"},
	}
	b := a
	b.Posting.URL = "https://example.com/b"

	assert.NotEqual(t, CandidateFingerprint(a), CandidateFingerprint(b))
}
