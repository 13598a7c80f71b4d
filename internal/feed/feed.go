package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"
)

const (
	EarthquakesURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/2.5_month.geojson"
	PlatesURL      = "https://raw.githubusercontent.com/fraxen/tectonicplates/master/GeoJSON/PB2002_boundaries.json"
)

// maxBodyBytes bounds a single feed download; the monthly USGS feed is a few MB.
const maxBodyBytes = 64 << 20

var ErrMalformedFeature = errors.New("malformed feature")

// FetchError is returned for any transport, status or decode failure of a feed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Fetcher interface {
	FetchGeoJSON(ctx context.Context, url string) (*geojson.FeatureCollection, error)
}

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get downloads the raw body at url.
func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("error creating request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("error while doing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("error reading resp.Body: %w", err)}
	}
	return body, nil
}

func (f *HTTPFetcher) FetchGeoJSON(ctx context.Context, url string) (*geojson.FeatureCollection, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return decode(url, body)
}

func decode(url string, body []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("error decoding GeoJSON: %w", err)}
	}
	return fc, nil
}
