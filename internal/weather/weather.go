// Package weather reports current conditions from weatherapi.com and finds
// the caller's city from their public IP.
package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultAPIURL    = "https://api.weatherapi.com/v1"
	DefaultLocateURL = "https://ipinfo.io/json"
	UnknownCity      = "Unknown"

	defaultTimeout       = 6 * time.Second
	defaultLocateTimeout = 5 * time.Second
)

// User-facing failure strings.
const (
	MsgMissingKey = "Weather API key is missing."
	MsgFetchError = "Something went wrong while fetching the weather."
)

type Options struct {
	APIKey    string
	APIURL    string
	LocateURL string
	Timeout   time.Duration
	Client    *http.Client
	Logger    *slog.Logger
}

type Client struct {
	apiKey    string
	apiURL    string
	locateURL string
	timeout   time.Duration
	http      *http.Client
	logger    *slog.Logger
}

func New(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.LocateURL == "" {
		opts.LocateURL = DefaultLocateURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		apiKey:    strings.TrimSpace(opts.APIKey),
		apiURL:    strings.TrimRight(opts.APIURL, "/"),
		locateURL: opts.LocateURL,
		timeout:   opts.Timeout,
		http:      opts.Client,
		logger:    opts.Logger.With("component", "weather"),
	}
}

// Current returns a multi-line report for city, locating the caller when
// city is empty. Failures are reported as text, never as errors.
func (c *Client) Current(ctx context.Context, city string) string {
	if c.apiKey == "" {
		c.logger.Error("weather api key missing")
		return MsgMissingKey
	}
	city = strings.TrimSpace(city)
	if city == "" {
		city = c.City(ctx)
	}

	q := url.Values{"key": {c.apiKey}, "q": {city}, "aqi": {"no"}}
	body, status, err := c.get(ctx, c.apiURL+"/current.json?"+q.Encode(), c.timeout)
	if err != nil {
		c.logger.Error("weather fetch failed", "city", city, "err", err)
		return MsgFetchError
	}
	if status != http.StatusOK {
		c.logger.Error("weather api error", "city", city, "status", status, "body", string(body))
		return fmt.Sprintf("Couldn't fetch the weather for %s.", city)
	}

	cur := gjson.GetBytes(body, "current")
	if !cur.Exists() {
		c.logger.Error("weather response missing current block", "city", city)
		return MsgFetchError
	}
	return fmt.Sprintf("Weather in %s:\n- Condition: %s\n- Temperature: %s°C\n- Humidity: %s%%\n- Wind Speed: %s kph",
		city,
		cur.Get("condition.text").String(),
		cur.Get("temp_c").Raw,
		cur.Get("humidity").Raw,
		cur.Get("wind_kph").Raw,
	)
}

// City returns the caller's city, or UnknownCity on any failure.
func (c *Client) City(ctx context.Context) string {
	body, status, err := c.get(ctx, c.locateURL, defaultLocateTimeout)
	if err != nil || status != http.StatusOK {
		c.logger.Debug("city lookup failed", "status", status, "err", err)
		return UnknownCity
	}
	city := strings.TrimSpace(gjson.GetBytes(body, "city").String())
	if city == "" {
		return UnknownCity
	}
	return city
}

func (c *Client) get(ctx context.Context, u string, timeout time.Duration) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// CityFromUtterance returns the text after the last " in " of a weather
// request, or "" when the utterance names no city.
func CityFromUtterance(text string) string {
	lower := strings.ToLower(text)
	i := strings.LastIndex(lower, " in ")
	if i < 0 {
		return ""
	}
	return strings.Trim(text[i+len(" in "):], " ?.!,")
}
