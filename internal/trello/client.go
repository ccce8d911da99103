package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.trello.com"
	defaultTimeout = 10 * time.Second
	retryBackoff   = 250 * time.Millisecond

	// maxResponseSize caps error bodies and JSON responses read into memory.
	maxResponseSize = 8 * 1024 * 1024
)

type Config struct {
	// BaseURL defaults to https://api.trello.com.
	BaseURL string
	Key     string
	Token   string

	// Timeout bounds every attempt, not the whole call.
	Timeout time.Duration
	// Retries is the number of extra attempts after a connection failure,
	// a 429 or a 5xx response. POSTs are only retried after a 429 or when
	// the connection could not be opened.
	Retries int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the Trello REST API. Every request carries the key and
// token as query parameters.
type Client struct {
	baseURL    string
	key        string
	token      string
	timeout    time.Duration
	retries    int
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Key == "" || cfg.Token == "" {
		return nil, fmt.Errorf("trello: key and token are required")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("trello: retries must not be negative, got %d", cfg.Retries)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        cfg.Key,
		token:      cfg.Token,
		timeout:    timeout,
		retries:    cfg.Retries,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BoardLists returns every list of the board, closed ones included.
func (c *Client) BoardLists(ctx context.Context, boardID string) ([]List, error) {
	var lists []List
	params := url.Values{"filter": {"all"}}
	if err := c.do(ctx, http.MethodGet, "/1/boards/"+boardID+"/lists", params, &lists); err != nil {
		return nil, fmt.Errorf("read lists of board %s: %w", boardID, err)
	}
	return lists, nil
}

func (c *Client) CreateList(ctx context.Context, boardID, name string) (*List, error) {
	var list List
	params := url.Values{
		"name":    {name},
		"idBoard": {boardID},
		"pos":     {"bottom"},
	}
	if err := c.do(ctx, http.MethodPost, "/1/lists", params, &list); err != nil {
		return nil, fmt.Errorf("create list %q: %w", name, err)
	}
	return &list, nil
}

func (c *Client) ReopenList(ctx context.Context, listID string) (*List, error) {
	var list List
	params := url.Values{"value": {"false"}}
	if err := c.do(ctx, http.MethodPut, "/1/lists/"+listID+"/closed", params, &list); err != nil {
		return nil, fmt.Errorf("reopen list %s: %w", listID, err)
	}
	return &list, nil
}

// ListCards returns the open cards of a list.
func (c *Client) ListCards(ctx context.Context, listID string) ([]Card, error) {
	var cards []Card
	if err := c.do(ctx, http.MethodGet, "/1/lists/"+listID+"/cards", nil, &cards); err != nil {
		return nil, fmt.Errorf("read cards of list %s: %w", listID, err)
	}
	return cards, nil
}

func (c *Client) CreateCard(ctx context.Context, listID, name, desc string) (*Card, error) {
	var card Card
	params := url.Values{
		"idList": {listID},
		"name":   {name},
		"desc":   {desc},
	}
	if err := c.do(ctx, http.MethodPost, "/1/cards", params, &card); err != nil {
		return nil, fmt.Errorf("create card %q: %w", name, err)
	}
	return &card, nil
}

func (c *Client) UpdateCard(ctx context.Context, cardID string, update CardUpdate) (*Card, error) {
	params := url.Values{}
	if update.Name != "" {
		params.Set("name", update.Name)
	}
	if update.Desc != "" {
		params.Set("desc", update.Desc)
	}
	if update.Label != "" {
		params.Set("labels", update.Label)
	}
	var card Card
	if err := c.do(ctx, http.MethodPut, "/1/cards/"+cardID, params, &card); err != nil {
		return nil, fmt.Errorf("update card %s: %w", cardID, err)
	}
	return &card, nil
}

func (c *Client) MoveCard(ctx context.Context, cardID, listID string) (*Card, error) {
	var card Card
	params := url.Values{"idList": {listID}}
	if err := c.do(ctx, http.MethodPut, "/1/cards/"+cardID, params, &card); err != nil {
		return nil, fmt.Errorf("move card %s to list %s: %w", cardID, listID, err)
	}
	return &card, nil
}

func (c *Client) AddComment(ctx context.Context, cardID, text string) error {
	params := url.Values{"text": {text}}
	if err := c.do(ctx, http.MethodPost, "/1/cards/"+cardID+"/actions/comments", params, nil); err != nil {
		return fmt.Errorf("comment on card %s: %w", cardID, err)
	}
	return nil
}

// CardComments returns the comment actions of a card, newest first.
func (c *Client) CardComments(ctx context.Context, cardID string) ([]CommentAction, error) {
	var actions []CommentAction
	params := url.Values{"filter": {"commentCard"}}
	if err := c.do(ctx, http.MethodGet, "/1/cards/"+cardID+"/actions", params, &actions); err != nil {
		return nil, fmt.Errorf("read comments of card %s: %w", cardID, err)
	}
	return actions, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying trello request", "method", method, "path", path, "attempt", attempt, "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		var retry bool
		retry, err = c.attempt(ctx, method, path, params, out)
		if err == nil || !retry {
			return err
		}
	}
	return err
}

// attempt performs a single request. The boolean reports whether a failure
// is worth retrying.
func (c *Client) attempt(ctx context.Context, method, path string, params url.Values, out any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", c.key)
	query.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("trello", "method", method, "path", path)
	// A POST may have been applied by Trello even when no answer came back,
	// so it is only resent when it never reached the server.
	replayable := method != http.MethodPost

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return false, err
		}
		return replayable || isDialError(err), fmt.Errorf("connect to %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return replayable, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    strings.TrimSpace(string(body)),
		}
		// 429 is refused before anything is applied.
		retry := resp.StatusCode == http.StatusTooManyRequests || (replayable && resp.StatusCode >= 500)
		return retry, apiErr
	}

	if out == nil {
		return false, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("parse response of %s: %w", path, err)
	}
	return false, nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
