package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"circular_fetcher/internal/domain"
)

// Fingerprint derives the stable identity of a job circular from its source
// name, normalized title and department, and the deadline date (or the URL
// when no deadline was extracted). Two postings with the same fingerprint
// refer to the same real-world job across scrape runs.
func Fingerprint(sourceName, title, department, dateOrURL string) string {
	key := strings.Join([]string{
		normalizeKey(sourceName),
		normalizeKey(title),
		normalizeKey(department),
		normalizeKey(dateOrURL),
	}, "|")
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// CandidateFingerprint computes the fingerprint for an extracted candidate.
func CandidateFingerprint(c domain.Candidate) string {
	dateOrURL := c.Posting.URL
	if c.Fields.Deadline != nil {
		dateOrURL = c.Fields.Deadline.Format(time.DateOnly)
	}
	return Fingerprint(c.Posting.SourceName, c.Fields.Title, c.Fields.Department, dateOrURL)
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
