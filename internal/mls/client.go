package mls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"comphub/server/internal/models"
)

// hardTopLimit is the upstream's maximum page size.
const hardTopLimit = 200

// wideTopLimit is requested when the caller asks for a small top, to leave
// headroom for geo-filtering attrition.
const wideTopLimit = 120

// UpstreamError carries the feed's error payload verbatim for diagnostics.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Client issues authenticated reads against the replication feed.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Query describes one read against the Property resource.
type Query struct {
	Filter  string
	OrderBy string
	Top     int
	Select  []string
}

// ClampTop widens small caller-requested tops to leave room for geo-filter
// attrition; anything larger fetches a full upstream page.
func ClampTop(top int) int {
	if top > 0 && top < 40 {
		return wideTopLimit
	}
	return hardTopLimit
}

type valueEnvelope struct {
	Value json.RawMessage `json:"value"`
}

// FetchListings performs a single GET against {base}/Property. A missing or
// non-array "value" yields an empty slice, not an error.
func (c *Client) FetchListings(ctx context.Context, q Query) ([]models.ListingRecord, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "CloseDate desc"
	}

	params := url.Values{}
	params.Set("$filter", q.Filter)
	params.Set("$orderby", orderBy)
	params.Set("$top", strconv.Itoa(q.Top))
	if len(q.Select) > 0 {
		params.Set("$select", joinSelect(q.Select))
	}

	body, err := c.get(ctx, c.baseURL+"/Property?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var envelope valueEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %v", err)
	}

	var listings []models.ListingRecord
	if err := json.Unmarshal(envelope.Value, &listings); err != nil {
		// Non-array value is treated as an empty result set.
		c.logger.WithField("filter", q.Filter).Warn("Feed returned non-array value, treating as empty")
		return []models.ListingRecord{}, nil
	}
	if listings == nil {
		listings = []models.ListingRecord{}
	}

	c.logger.WithFields(logrus.Fields{
		"filter":  q.Filter,
		"orderby": orderBy,
		"top":     q.Top,
		"count":   len(listings),
	}).Info("Fetched listings from replication feed")

	return listings, nil
}

type mediaItem struct {
	MediaURL string `json:"MediaURL"`
	MediaUrl string `json:"MediaUrl"`
	Uri      string `json:"Uri"`
}

// FetchMedia retrieves image URLs for one listing. Failures degrade to an
// empty list carried in MediaResult.Err; they never fail the request.
func (c *Client) FetchMedia(ctx context.Context, listingKey string) models.MediaResult {
	escaped := url.PathEscape(listingKey)
	mediaURL := fmt.Sprintf("%s/Property('%s')/Media", c.baseURL, escaped)

	body, err := c.get(ctx, mediaURL)
	if err != nil {
		c.logger.WithError(err).WithField("listing_key", listingKey).Warn("Media fetch failed")
		return models.MediaResult{URLs: []string{}, Err: err}
	}

	var envelope struct {
		Value []mediaItem `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.WithError(err).WithField("listing_key", listingKey).Warn("Media response malformed")
		return models.MediaResult{URLs: []string{}, Err: err}
	}

	urls := make([]string, 0, len(envelope.Value))
	for _, m := range envelope.Value {
		switch {
		case m.MediaURL != "":
			urls = append(urls, m.MediaURL)
		case m.MediaUrl != "":
			urls = append(urls, m.MediaUrl)
		case m.Uri != "":
			urls = append(urls, m.Uri)
		}
	}

	return models.MediaResult{URLs: urls}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
