package source

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

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jonathan/job-alerts/internal/config"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 20 * time.Second

// DefaultUserAgent is the user agent string for API requests.
const DefaultUserAgent = "job-alerts/1.0"

// FranceTravailConfig holds endpoints and credentials of the Offres d'emploi v2 API.
type FranceTravailConfig struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	Scope        string
	SearchURL    string
	// DetailURL contains an {id} placeholder.
	DetailURL string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient is the transport for both token and API calls; nil uses a client with Timeout.
	HTTPClient *http.Client
}

// FranceTravail is the HTTP client of the Offres d'emploi v2 API.
type FranceTravail struct {
	cfg    FranceTravailConfig
	client *http.Client
	log    *zap.SugaredLogger
}

var _ Client = (*FranceTravail)(nil)

// NewFranceTravail validates the configuration and prepares an OAuth2 client
// credentials transport. No network call happens until the first request.
func NewFranceTravail(ctx context.Context, cfg FranceTravailConfig, log *zap.SugaredLogger) (*FranceTravail, error) {
	switch {
	case cfg.ClientID == "":
		return nil, &config.ConfigurationError{Field: "FT_CLIENT_ID", Message: "required when not in simulated mode"}
	case cfg.ClientSecret == "":
		return nil, &config.ConfigurationError{Field: "FT_CLIENT_SECRET", Message: "required when not in simulated mode"}
	case cfg.AuthURL == "":
		return nil, &config.ConfigurationError{Field: "FT_AUTH_URL", Message: "required"}
	case cfg.SearchURL == "":
		return nil, &config.ConfigurationError{Field: "FT_OFFRES_SEARCH_URL", Message: "required"}
	case !strings.Contains(cfg.DetailURL, "{id}"):
		return nil, &config.ConfigurationError{Field: "FT_OFFRES_DETAIL_URL", Message: "must contain an {id} placeholder"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.AuthURL,
		Scopes:       strings.Fields(cfg.Scope),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	client := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	client.Timeout = cfg.Timeout

	return &FranceTravail{cfg: cfg, client: client, log: log.With("component", "francetravail")}, nil
}

type searchResponse struct {
	Resultats []Offer `json:"resultats"`
}

// SearchPage fetches page (0-based) using the range parameter. 200 and 206 carry
// results; 204 is an empty page.
func (f *FranceTravail) SearchPage(ctx context.Context, q Query, page, pageSize int) ([]Offer, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	start := page * pageSize
	end := start + pageSize - 1

	params := url.Values{}
	if len(q.Keywords) > 0 {
		params.Set("motsCles", strings.Join(q.Keywords, ","))
	}
	if q.Department != "" {
		params.Set("departement", q.Department)
	}
	if q.RadiusKm > 0 {
		params.Set("distance", strconv.Itoa(q.RadiusKm))
	}
	if q.PublishedSinceDays > 0 {
		params.Set("publieeDepuis", strconv.Itoa(q.PublishedSinceDays))
	}
	params.Set("range", fmt.Sprintf("%d-%d", start, end))

	reqURL := f.cfg.SearchURL + "?" + params.Encode()
	status, body, err := f.get(ctx, reqURL)
	if err != nil {
		return nil, &UnavailableError{Op: "search", Page: page, Cause: err}
	}

	switch status {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK, http.StatusPartialContent:
	default:
		return nil, &UnavailableError{Op: "search", Page: page, Cause: statusError(status, body)}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &UnavailableError{Op: "search", Page: page, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}

	f.log.Debugw("Search page fetched",
		"query", q.String(),
		"page", page,
		"status", status,
		"count", len(resp.Resultats),
	)
	return resp.Resultats, nil
}

// Detail fetches one offer. 404 maps to ErrNotFound.
func (f *FranceTravail) Detail(ctx context.Context, id string) (Offer, error) {
	reqURL := strings.ReplaceAll(f.cfg.DetailURL, "{id}", url.PathEscape(id))
	status, body, err := f.get(ctx, reqURL)
	if err != nil {
		return Offer{}, &UnavailableError{Op: "detail", Cause: err}
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return Offer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	default:
		return Offer{}, &UnavailableError{Op: "detail", Cause: statusError(status, body)}
	}

	var o Offer
	if err := json.Unmarshal(body, &o); err != nil {
		return Offer{}, &UnavailableError{Op: "detail", Cause: fmt.Errorf("failed to decode offer %s: %w", id, err)}
	}
	return o, nil
}

func (f *FranceTravail) get(ctx context.Context, reqURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// HTTPStatusError is a non-success API response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP status %d: %s", e.StatusCode, e.Body)
}

func statusError(status int, body []byte) error {
	const maxBody = 200
	b := strings.TrimSpace(string(body))
	if len(b) > maxBody {
		b = b[:maxBody] + "..."
	}
	return &HTTPStatusError{StatusCode: status, Body: b}
}

// IsUnavailable reports whether err is a transient source failure.
func IsUnavailable(err error) bool {
	var u *UnavailableError
	return errors.As(err, &u)
}
