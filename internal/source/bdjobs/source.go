// Package bdjobs fetches the government-jobs section of the bdjobs portal.
// Unlike govbd, listings arrive as free-form text blobs, so everything past
// the title goes through the extractor's heuristic layers. Pagination is an
// opaque cursor: a failed page ends the source run since the next cursor is
// unknowable.
package bdjobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"circular_fetcher/internal/domain"
	"circular_fetcher/internal/source"
)

const (
	SourceID   = "bdjobs"
	SourceName = "BDJobs Government"
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
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		pageSize:   cfg.PageSize,
		logger:     logger.With("source", SourceID),
		now:        time.Now,
	}
}

func (s *Source) ID() string { return SourceID }

func (s *Source) Name() string { return SourceName }

func (s *Source) FetchPage(ctx context.Context, pageToken string) (source.Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(s.pageSize))
	if pageToken != "" {
		params.Set("cursor", pageToken)
	}
	reqURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return source.Page{}, domain.PermanentFetchError("create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CircularFetcher/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return source.Page{}, domain.TransientFetchError("execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return source.Page{}, source.ClassifyStatus("fetch listing", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return source.Page{}, domain.PermanentFetchError("decode response", err)
	}

	fetchedAt := s.now().UTC()
	postings := make([]domain.RawPosting, 0, len(apiResp.Items))
	for _, item := range apiResp.Items {
		postings = append(postings, domain.RawPosting{
			SourceID:   SourceID,
			SourceName: SourceName,
			FetchedAt:  fetchedAt,
			URL:        item.Link,
			RawTitle:   item.Title,
			RawBody:    item.Details,
		})
	}

	s.logger.Debug("fetched page", "postings", len(postings), "cursor", apiResp.NextCursor)
	return source.Page{Postings: postings, NextToken: apiResp.NextCursor}, nil
}
