package playstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
)

// Client talks to the Play-metadata scraper service over its JSON API.
type Client struct {
	BaseURL string
	Lang    string
	Country string
	Limit   int

	httpClient *http.Client
}

func New(baseURL, lang, country string, limit int) *Client {
	if limit <= 0 {
		limit = 10
	}
	return &Client{
		BaseURL:    baseURL,
		Lang:       lang,
		Country:    country,
		Limit:      limit,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type searchResponse struct {
	Results []candidateJSON `json:"results"`
}

type candidateJSON struct {
	AppID    string  `json:"app_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Installs string  `json:"installs"`
	Size     string  `json:"size"`
	Icon     string  `json:"icon"`
}

type detailsJSON struct {
	candidateJSON

	Developer string `json:"developer"`
	Summary   string `json:"summary"`
	Version   string `json:"version"`
	Genre     string `json:"genre"`
	Updated   string `json:"updated"`
	Free      bool   `json:"free"`
	Price     string `json:"price"`
}

// Search resolves free text to a ranked candidate list.
func (c *Client) Search(ctx context.Context, term string) ([]domain.CatalogCandidate, error) {
	q := url.Values{}
	q.Set("q", term)
	q.Set("n", strconv.Itoa(c.Limit))
	q.Set("lang", c.Lang)
	q.Set("country", c.Country)

	var sr searchResponse
	if err := c.getJSON(ctx, c.BaseURL+"/search?"+q.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	results := make([]domain.CatalogCandidate, 0, len(sr.Results))
	for _, item := range sr.Results {
		results = append(results, item.toCandidate())
	}
	return results, nil
}

// Details fetches the extended metadata shown to the user before download.
func (c *Client) Details(ctx context.Context, identifier string) (*domain.AppDetails, error) {
	q := url.Values{}
	q.Set("lang", c.Lang)
	q.Set("country", c.Country)

	u := fmt.Sprintf("%s/apps/%s?%s", c.BaseURL, url.PathEscape(identifier), q.Encode())

	var dj detailsJSON
	if err := c.getJSON(ctx, u, &dj); err != nil {
		return nil, fmt.Errorf("catalog details failed: %w", err)
	}

	return &domain.AppDetails{
		CatalogCandidate: dj.toCandidate(),
		Developer:        dj.Developer,
		Summary:          dj.Summary,
		Version:          dj.Version,
		Genre:            dj.Genre,
		UpdatedAt:        dj.Updated,
		Free:             dj.Free,
		Price:            dj.Price,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", domain.ErrBadStatus, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (j candidateJSON) toCandidate() domain.CatalogCandidate {
	return domain.CatalogCandidate{
		Identifier:   j.AppID,
		Title:        j.Title,
		RatingScore:  j.Score,
		InstallCount: j.Installs,
		SizeHint:     j.Size,
		IconURL:      j.Icon,
	}
}
