// Package govbd fetches job circulars from the central government jobs
// portal. The portal exposes a paginated JSON listing with structured
// sub-blocks (department, location, deadline already separated), so most
// fields reach the extractor through RawMetadata.
package govbd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"circular_fetcher/internal/domain"
	"circular_fetcher/internal/source"
)

const (
	SourceID   = "govbd"
	SourceName = "GovBD Portal"
)

type Config struct {
	BaseURL  string
	PageSize int
}

type Source struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		// no client-level timeout: the scheduler bounds every call with a
		// context deadline
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		pageSize:   cfg.PageSize,
		logger:     logger.With("source", SourceID),
		now:        time.Now,
	}
}

func (s *Source) ID() string { return SourceID }

func (s *Source) Name() string { return SourceName }

// FetchPage fetches one listing page. An empty token means the first page;
// tokens are 1-based page numbers, so a failed page can be skipped by
// advancing the number.
func (s *Source) FetchPage(ctx context.Context, pageToken string) (source.Page, error) {
	page := 1
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return source.Page{}, domain.PermanentFetchError("parse page token", err)
		}
		page = n
	}

	resp, err := s.fetchListing(ctx, page)
	if err != nil {
		return source.Page{}, err
	}

	out := source.Page{Postings: s.transform(resp.Circulars)}
	if resp.PageInfo.Page < resp.PageInfo.NumPages {
		out.NextToken = strconv.Itoa(resp.PageInfo.Page + 1)
	}

	s.logger.Debug("fetched page", "page", page, "postings", len(out.Postings), "next", out.NextToken)
	return out, nil
}

func (s *Source) fetchListing(ctx context.Context, page int) (*apiResponse, error) {
	url := fmt.Sprintf("%s?pageSize=%d&page=%d", s.baseURL, s.pageSize, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.PermanentFetchError("create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CircularFetcher/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// network failures and deadline expiry are retryable
		return nil, domain.TransientFetchError("execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, source.ClassifyStatus("fetch listing", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, domain.PermanentFetchError("decode response", err)
	}

	return &apiResp, nil
}

func (s *Source) transform(circulars []apiCircular) []domain.RawPosting {
	postings := make([]domain.RawPosting, 0, len(circulars))
	fetchedAt := s.now().UTC()

	for _, c := range circulars {
		meta := map[string]string{}
		if c.Department != "" {
			meta["department"] = c.Department
		}
		if c.Location != "" {
			meta["location"] = c.Location
		}
		if c.Deadline != "" {
			meta["deadline"] = c.Deadline
		}
		if c.Salary != "" {
			meta["salary"] = c.Salary
		}
		if c.Grade != "" {
			meta["grade"] = c.Grade
		}

		postings = append(postings, domain.RawPosting{
			SourceID:    SourceID,
			SourceName:  SourceName,
			FetchedAt:   fetchedAt,
			URL:         c.DetailURL,
			RawTitle:    c.Title,
			RawBody:     c.Description,
			RawMetadata: meta,
		})
	}

	return postings
}
