package shutterstock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/metrics"
	"github.com/atharvad999/adcreative/internal/providers/upstream"
)

const (
	upstreamName   = "shutterstock"
	defaultBaseURL = "https://api.shutterstock.com/v2"
	defaultSort    = "relevance"
	maxPerPage     = 100
)

var validSorts = map[string]struct{}{
	"relevance": {}, "popular": {}, "newest": {}, "random": {},
}

// Options configures the Shutterstock client.
type Options struct {
	APIKey     string
	BaseURL    string
	Sort       string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Metrics    *metrics.Collector
	Policy     upstream.Policy
}

// Client queries the Shutterstock v2 image API.
type Client struct {
	apiKey     string
	baseURL    string
	sort       string
	httpClient *http.Client
	caller     *upstream.Caller
	policy     upstream.Policy
}

// SearchRequest describes one page of a stock image search. Language and
// Region are optional hints derived from the caller's locale.
type SearchRequest struct {
	Query    string
	Page     int
	PerPage  int
	Sort     string
	Language string
	Region   string
}

type searchResponse struct {
	Data    *[]imageItem `json:"data"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Total   int          `json:"total_count"`
	Message string       `json:"message"`
}

type imageItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Assets      struct {
		SmallThumb  *assetRef `json:"small_thumb"`
		LargeThumb  *assetRef `json:"large_thumb"`
		Preview     *assetRef `json:"preview"`
		Preview1000 *assetRef `json:"preview_1000"`
	} `json:"assets"`
	Keywords   []string `json:"keywords"`
	Categories []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
}

type assetRef struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type collectionsResponse struct {
	Data *[]struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Description    string `json:"description"`
		TotalItemCount int    `json:"total_item_count"`
	} `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient constructs a client. An empty API key is a configuration error.
func NewClient(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, domain.Configurationf("SHUTTERSTOCK_API_KEY is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	sort := strings.ToLower(strings.TrimSpace(opts.Sort))
	if sort == "" {
		sort = defaultSort
	}
	if _, ok := validSorts[sort]; !ok {
		return nil, domain.Configurationf("SHUTTERSTOCK_SORT %q is not supported", opts.Sort)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	policy := opts.Policy
	if policy.Timeout <= 0 {
		policy = upstream.DefaultPolicy(10 * time.Second)
	}
	return &Client{
		apiKey:     key,
		baseURL:    baseURL,
		sort:       sort,
		httpClient: httpClient,
		caller:     upstream.NewCaller(upstreamName, opts.Logger, opts.Metrics),
		policy:     policy,
	}, nil
}

func (r *SearchRequest) validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return domain.Validationf("query is required")
	}
	if r.Page < 1 {
		return domain.Validationf("page must be at least 1")
	}
	if r.PerPage < 1 || r.PerPage > maxPerPage {
		return domain.Validationf("perPage must be between 1 and %d", maxPerPage)
	}
	r.Sort = strings.ToLower(strings.TrimSpace(r.Sort))
	if r.Sort != "" {
		if _, ok := validSorts[r.Sort]; !ok {
			return domain.Validationf("sort %q is not supported", r.Sort)
		}
	}
	return nil
}

// Search runs one image search and returns at most PerPage descriptors in
// the order Shutterstock ranked them.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]domain.ImageDescriptor, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	sort := req.Sort
	if sort == "" {
		sort = c.sort
	}
	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("page", strconv.Itoa(req.Page))
	params.Set("per_page", strconv.Itoa(req.PerPage))
	params.Set("sort", sort)
	params.Set("view", "full")
	if req.Language != "" {
		params.Set("language", req.Language)
	}
	if req.Region != "" {
		params.Set("region", req.Region)
	}

	items, err := upstream.Call(ctx, c.caller, "search", c.policy, func(ctx context.Context) ([]imageItem, error) {
		return c.fetchImages(ctx, "/images/search", params)
	})
	if err != nil {
		return nil, err
	}
	return c.toDescriptors(items, req.PerPage)
}

// FeaturedCollections lists curated collections. When the featured endpoint
// is not available for the account, the standard listing is used instead.
func (c *Client) FeaturedCollections(ctx context.Context, perPage int) ([]domain.Collection, error) {
	if perPage < 1 || perPage > maxPerPage {
		return nil, domain.Validationf("perPage must be between 1 and %d", maxPerPage)
	}
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))

	out, err := upstream.Call(ctx, c.caller, "collections", c.policy, func(ctx context.Context) ([]domain.Collection, error) {
		return c.fetchCollections(ctx, "/images/collections/featured", params)
	})
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindUpstreamRejected && de.Status == http.StatusNotFound {
		c.caller.Logger().Info().Msg("shutterstock: featured collections not found, using standard listing")
		out, err = upstream.Call(ctx, c.caller, "collections", c.policy, func(ctx context.Context) ([]domain.Collection, error) {
			return c.fetchCollections(ctx, "/images/collections", params)
		})
	}
	if err != nil {
		return nil, err
	}
	if len(out) > perPage {
		out = out[:perPage]
	}
	return out, nil
}

// CollectionImages lists the images of one featured collection.
func (c *Client) CollectionImages(ctx context.Context, id string, page, perPage int) ([]domain.ImageDescriptor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Validationf("collection id is required")
	}
	if page < 1 {
		return nil, domain.Validationf("page must be at least 1")
	}
	if perPage < 1 || perPage > maxPerPage {
		return nil, domain.Validationf("perPage must be between 1 and %d", maxPerPage)
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	path := "/images/collections/featured/" + url.PathEscape(id) + "/items"

	items, err := upstream.Call(ctx, c.caller, "collection_items", c.policy, func(ctx context.Context) ([]imageItem, error) {
		return c.fetchImages(ctx, path, params)
	})
	if err != nil {
		return nil, err
	}
	return c.toDescriptors(items, perPage)
}

func (c *Client) fetchImages(ctx context.Context, path string, params url.Values) ([]imageItem, error) {
	raw, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, c.caller.ContractError("response is not valid JSON", err)
	}
	if out.Data == nil {
		return nil, c.caller.ContractError("response has no data field", nil)
	}
	return *out.Data, nil
}

func (c *Client) fetchCollections(ctx context.Context, path string, params url.Values) ([]domain.Collection, error) {
	raw, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var out collectionsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, c.caller.ContractError("response is not valid JSON", err)
	}
	if out.Data == nil {
		return nil, c.caller.ContractError("response has no data field", nil)
	}
	collections := make([]domain.Collection, 0, len(*out.Data))
	for i, item := range *out.Data {
		if strings.TrimSpace(item.ID) == "" {
			return nil, c.caller.ContractError(fmt.Sprintf("collection %d has no id", i), nil)
		}
		collections = append(collections, domain.Collection{
			ID:             item.ID,
			Name:           item.Name,
			Description:    item.Description,
			TotalItemCount: item.TotalItemCount,
		})
	}
	return collections, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("shutterstock: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.authorization())
	httpReq.Header.Set("Accept", "application/json")

	status, _, raw, err := c.caller.Do(c.httpClient, httpReq)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.caller.StatusError(status, errorMessage(raw))
	}
	return raw, nil
}

// authorization returns the header value. Keys issued in the "v2/..." form
// are already complete tokens and are sent as-is.
func (c *Client) authorization() string {
	if strings.HasPrefix(c.apiKey, "v2/") {
		return c.apiKey
	}
	return "Bearer " + c.apiKey
}

func (c *Client) toDescriptors(items []imageItem, limit int) ([]domain.ImageDescriptor, error) {
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]domain.ImageDescriptor, 0, len(items))
	for i, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, c.caller.ContractError(fmt.Sprintf("item %d has no id", i), nil)
		}
		tags := item.Keywords
		if len(tags) == 0 {
			for _, cat := range item.Categories {
				tags = append(tags, cat.Name)
			}
		}
		out = append(out, domain.ImageDescriptor{
			ID:           id,
			Description:  strings.TrimSpace(item.Description),
			ThumbnailURL: firstURL(item.Assets.LargeThumb, item.Assets.SmallThumb),
			FullURL:      firstURL(item.Assets.Preview1000, item.Assets.Preview),
			Tags:         normalizeTags(tags),
		})
	}
	return out, nil
}

func firstURL(refs ...*assetRef) string {
	for _, ref := range refs {
		if ref != nil && strings.TrimSpace(ref.URL) != "" {
			return strings.TrimSpace(ref.URL)
		}
	}
	return ""
}

// normalizeTags trims tags and drops case-insensitive duplicates, keeping the
// first spelling seen.
func normalizeTags(tags []string) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := fold.String(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func errorMessage(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		if msg := strings.TrimSpace(er.Message); msg != "" {
			return msg
		}
		for _, e := range er.Errors {
			if msg := strings.TrimSpace(e.Message); msg != "" {
				return msg
			}
		}
	}
	return upstream.Snippet(raw)
}
