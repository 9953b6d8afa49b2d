package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nao1215/notecrawl/internal/model"
)

// maxResponseSize bounds how much of a gateway response is read.
const maxResponseSize = 8 * 1024 * 1024

// Gateway endpoints, relative to the base URL.
const (
	searchPath = "/api/search"
	detailPath = "/api/detail"
)

// throttleStatuses are HTTP statuses the gateway uses for throttling.
var throttleStatuses = map[int]bool{
	http.StatusTooManyRequests: true,
	461:                        true,
}

// Client calls the search and detail endpoints.
// It satisfies crawl.Searcher and crawl.DetailFetcher.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Use NewHTTPClient to build one with
// proxy and cookie support.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRateLimit caps outbound requests per second. A non-positive value
// disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client for the gateway at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    http.DefaultClient,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the common response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) status() model.Status {
	if e.Success {
		return model.OK()
	}
	return model.Failed(e.Code, e.Msg)
}

// searchBody is the JSON body of a search call.
type searchBody struct {
	Keyword     string `json:"keyword"`
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
	Sort        int    `json:"sort"`
	NoteType    int    `json:"note_type"`
	NoteTime    int    `json:"note_time"`
	NoteRange   int    `json:"note_range"`
	PosDistance int    `json:"pos_distance"`
	Geo         string `json:"geo,omitempty"`
}

type searchData struct {
	Items   []searchItem `json:"items"`
	HasMore bool         `json:"has_more"`
}

type searchItem struct {
	ID        string `json:"id"`
	ModelType string `json:"model_type"`
	XsecToken string `json:"xsec_token"`
	Title     string `json:"title"`
	Desc      string `json:"desc"`
	URL       string `json:"url"`
}

type detailData struct {
	NoteID   string        `json:"note_id"`
	Title    string        `json:"title"`
	Desc     string        `json:"desc"`
	Type     string        `json:"type"`
	Author   string        `json:"author"`
	Images   []detailImage `json:"images"`
	VideoURL string        `json:"video_url"`
	URL      string        `json:"url"`
}

type detailImage struct {
	URL string `json:"url"`
}

// Search runs a search call for the first result page.
func (c *Client) Search(ctx context.Context, req model.SearchRequest) ([]model.Item, model.Status, error) {
	body, err := json.Marshal(searchBody{
		Keyword:     req.Keyword,
		Page:        1,
		PageSize:    req.PageSize,
		Sort:        int(req.Sort),
		NoteType:    int(req.NoteType),
		NoteTime:    req.NoteTime,
		NoteRange:   req.NoteRange,
		PosDistance: req.PosDistance,
		Geo:         req.Geo,
	})
	if err != nil {
		return nil, model.Status{}, fmt.Errorf("failed to encode search request: %w", err)
	}

	env, status, err := c.do(ctx, http.MethodPost, c.endpoint(searchPath, nil), bytes.NewReader(body))
	if err != nil || !status.Success {
		return nil, status, err
	}

	var data searchData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, model.Status{}, fmt.Errorf("failed to decode search data: %w", err)
		}
	}

	items := make([]model.Item, 0, len(data.Items))
	for _, it := range data.Items {
		items = append(items, model.Item{
			ID:          it.ID,
			Kind:        itemKind(it.ModelType),
			Title:       it.Title,
			Description: it.Desc,
			XsecToken:   it.XsecToken,
			URL:         it.URL,
		})
	}
	c.logger.Debug("search decoded", "keyword", req.Keyword, "sort", req.Sort.String(), "items", len(items), "has_more", data.HasMore)
	return items, status, nil
}

// Detail fetches the detail of a note.
func (c *Client) Detail(ctx context.Context, item model.Item) (*model.Detail, model.Status, error) {
	q := url.Values{}
	q.Set("note_id", item.ID)
	q.Set("xsec_token", item.XsecToken)

	env, status, err := c.do(ctx, http.MethodGet, c.endpoint(detailPath, q), nil)
	if err != nil || !status.Success {
		return nil, status, err
	}

	var data detailData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, model.Status{}, fmt.Errorf("failed to decode detail data: %w", err)
	}

	detail := &model.Detail{
		ID:          data.NoteID,
		Title:       data.Title,
		Description: data.Desc,
		Type:        data.Type,
		Author:      data.Author,
		VideoURL:    data.VideoURL,
		URL:         data.URL,
	}
	if detail.ID == "" {
		detail.ID = item.ID
	}
	if detail.URL == "" {
		detail.URL = item.URL
	}
	for _, img := range data.Images {
		detail.ImageURLs = append(detail.ImageURLs, img.URL)
	}
	return detail, status, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends one request and decodes the envelope.
// Throttling HTTP statuses are returned both as a failed status carrying
// the HTTP code and as an ErrRateLimited error.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (envelope, model.Status, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return envelope{}, model.Status{}, ctxErr
		}
		return envelope{}, model.Status{}, fmt.Errorf("request slot unavailable: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return envelope{}, model.Status{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", "method", method, "url", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, model.Status{}, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return envelope{}, model.Status{}, fmt.Errorf("failed to read response: %w", err)
	}

	if throttleStatuses[resp.StatusCode] {
		status := model.Failed(resp.StatusCode, http.StatusText(resp.StatusCode))
		return envelope{}, status, fmt.Errorf("%w: HTTP %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := model.Failed(resp.StatusCode, http.StatusText(resp.StatusCode))
		return envelope{}, status, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, model.Status{}, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	return env, env.status(), nil
}

func itemKind(modelType string) model.ItemKind {
	switch strings.ToLower(modelType) {
	case "note", "":
		return model.ItemKindNote
	case "user":
		return model.ItemKindUser
	case "rec_query", "hot_query":
		return model.ItemKindQuery
	default:
		return model.ItemKind(modelType)
	}
}
