package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hayashida/spotbot/pkg/logging"
)

const (
	defaultPlacesBaseURL = "https://maps.googleapis.com/maps/api/place"
	defaultPhotoMaxWidth = 400
)

// GoogleConfig controls how the Google Places client behaves.
type GoogleConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// GoogleClient wraps the Google Places Nearby Search endpoint.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
}

var _ Fetcher = (*GoogleClient)(nil)

// NewGoogleClient creates a configured client with sane defaults.
func NewGoogleClient(cfg GoogleConfig) (*GoogleClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("places: API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultPlacesBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}, nil
}

type nearbySearchResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID          string  `json:"place_id"`
		Name             string  `json:"name"`
		Vicinity         string  `json:"vicinity"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Photos           []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"results"`
}

// Search performs a nearby search. An empty slice with a nil error means the
// provider found nothing; ErrUnavailable wraps provider and transport faults.
func (c *GoogleClient) Search(ctx context.Context, query SearchQuery) ([]Place, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", query.Latitude, query.Longitude))
	params.Set("radius", strconv.Itoa(query.Radius))
	params.Set("key", c.apiKey)
	if query.Type != "" {
		params.Set("type", query.Type)
	}
	if query.Keyword != "" {
		params.Set("keyword", query.Keyword)
	}
	endpoint := c.baseURL + "/nearbysearch/json?" + params.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed nearbySearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("places: decode nearby search response: %w", err)
	}

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		c.logger.Warn("nearby search rejected", "status", parsed.Status, "message", parsed.ErrorMessage)
		return nil, fmt.Errorf("%w: status %s", ErrUnavailable, parsed.Status)
	}

	results := make([]Place, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		place := Place{
			ID:          r.PlaceID,
			Name:        r.Name,
			Address:     r.Vicinity,
			Rating:      r.Rating,
			RatingCount: r.UserRatingsTotal,
		}
		if len(r.Photos) > 0 && r.Photos[0].PhotoReference != "" {
			place.PhotoURL = c.photoURL(r.Photos[0].PhotoReference)
		}
		results = append(results, place)
	}
	return results, nil
}

func (c *GoogleClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("places: create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return body, nil
	}
	return nil, lastErr
}

func (c *GoogleClient) photoURL(reference string) string {
	params := url.Values{}
	params.Set("maxwidth", strconv.Itoa(defaultPhotoMaxWidth))
	params.Set("photo_reference", reference)
	params.Set("key", c.apiKey)
	return c.baseURL + "/photo?" + params.Encode()
}
