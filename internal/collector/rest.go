package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"BubbleSentinel/internal/model"
)

// RESTFetcher implements Fetcher against a generic daily-bar REST API.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Guard   *Guard
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, guard *Guard) *RESTFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Guard: guard,
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bar API. Close is null on
// sessions without a print.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Close     *float64 `json:"close"`
}

func (f *RESTFetcher) FetchSeries(ctx context.Context, symbol string, period model.Period) (*model.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&range=%s",
		f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(string(period)))

	var points []model.PricePoint
	err := f.Guard.Do(ctx, func() error {
		var err error
		points, err = f.fetchBars(ctx, endpoint)
		return err
	})
	if err != nil {
		return nil, &model.ProviderError{Provider: f.Name(), Symbol: symbol, Err: err}
	}
	return &model.PriceSeries{
		Symbol:    symbol,
		Period:    period,
		Points:    points,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (f *RESTFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.PricePoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}
	var bars []restBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Close == nil {
			continue
		}
		points = append(points, model.PricePoint{Date: model.DateFromUnix(b.Timestamp), Price: *b.Close})
	}
	if len(points) == 0 {
		return nil, errors.New("no valid closes")
	}
	return normalizePoints(points), nil
}
