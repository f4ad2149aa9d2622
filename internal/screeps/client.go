package screeps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://screeps.com"

type Config struct {
	BaseURL string
	Token   string
	// HTTPTimeout bounds a single request end to end. Zero leaves it to the caller's context.
	HTTPTimeout time.Duration
}

// Client talks to the Screeps web API (official server or a private server exposing /api).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %s", base)
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

func (c *Client) FindUser(ctx context.Context, username string) (UserResponse, error) {
	var resp UserResponse
	err := c.get(ctx, "/api/user/find", url.Values{"username": {username}}, &resp)
	return resp, err
}

func (c *Client) UserRooms(ctx context.Context, userID string) (RoomsResponse, error) {
	var resp RoomsResponse
	err := c.get(ctx, "/api/user/rooms", url.Values{"id": {userID}}, &resp)
	return resp, err
}

func (c *Client) RoomObjects(ctx context.Context, room, shard string) (RoomObjectsResponse, error) {
	var resp RoomObjectsResponse
	err := c.get(ctx, "/api/game/room-objects", url.Values{"room": {room}, "shard": {shard}}, &resp)
	return resp, err
}

// get decodes a JSON body into out. Anything other than a 2xx JSON body is returned as an error;
// {"ok":0} bodies decode normally and are left for the caller to judge.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("X-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("screeps api %s status=%d body=%s", e.Path, e.StatusCode, e.Body)
}
