package govbd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circular_fetcher/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFetchPage_TransformsListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))

		fmt.Fprint(w, `{
			"pageInfo": {"page": 1, "numPages": 3, "pageSize": 20},
			"circulars": [{
				"title": "Assistant Engineer",
				"department": "RHD",
				"location": "Dhaka",
				"grade": "Grade-9",
				"salary": "22000-53060",
				"deadline": "2026-04-01",
				"description": "BSc in Civil Engineering required.",
				"detailUrl": "https://example.gov.bd/circular/1"
			}]
		}`)
	}))
	defer server.Close()

	s := New(Config{BaseURL: server.URL, PageSize: 20}, testLogger())

	page, err := s.FetchPage(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "2", page.NextToken)
	require.Len(t, page.Postings, 1)

	p := page.Postings[0]
	assert.Equal(t, SourceID, p.SourceID)
	assert.Equal(t, "Assistant Engineer", p.RawTitle)
	assert.Equal(t, "https://example.gov.bd/circular/1", p.URL)
	assert.Equal(t, "RHD", p.RawMetadata["department"])
	assert.Equal(t, "Dhaka", p.RawMetadata["location"])
	assert.Equal(t, "2026-04-01", p.RawMetadata["deadline"])
	assert.False(t, p.FetchedAt.IsZero())
}

func TestFetchPage_LastPageHasNoNextToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pageInfo": {"page": 3, "numPages": 3, "pageSize": 20}, "circulars": []}`)
	}))
	defer server.Close()

	s := New(Config{BaseURL: server.URL, PageSize: 20}, testLogger())

	page, err := s.FetchPage(context.Background(), "3")
	require.NoError(t, err)
	assert.Empty(t, page.NextToken)
	assert.Empty(t, page.Postings)
}

func TestFetchPage_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := New(Config{BaseURL: server.URL, PageSize: 20}, testLogger())

	_, err := s.FetchPage(context.Background(), "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPermanentFetch))
}

func TestFetchPage_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := New(Config{BaseURL: server.URL, PageSize: 20}, testLogger())

	_, err := s.FetchPage(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrPermanentFetch)
}

func TestFetchPage_MalformedBodyIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer server.Close()

	s := New(Config{BaseURL: server.URL, PageSize: 20}, testLogger())

	_, err := s.FetchPage(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrPermanentFetch)
}

func TestFetchPage_BadTokenIsPermanent(t *testing.T) {
	s := New(Config{BaseURL: "http://localhost:0", PageSize: 20}, testLogger())

	_, err := s.FetchPage(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrPermanentFetch)
}
