package autoplay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// client calls the game API on behalf of one bot.
type client struct {
	http    *http.Client
	baseURL string
	token   string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// do sends body as JSON and decodes the response into out when the status
// is 2xx. Other statuses become errors carrying the response code.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *client) signUp(ctx context.Context, email, username string) (session, error) {
	var s session
	err := c.do(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": botPassword, "username": username,
	}, &s)
	if err == nil {
		c.token = s.AccessToken
	}
	return s, err
}

func (c *client) newGame(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/game/new", nil, nil)
}

func (c *client) guess(ctx context.Context, n int) (guessResult, error) {
	var res guessResult
	err := c.do(ctx, http.MethodPost, "/game/guess", map[string]string{"guess": strconv.Itoa(n)}, &res)
	return res, err
}

func (c *client) profile(ctx context.Context) (profileView, error) {
	var p profileView
	err := c.do(ctx, http.MethodGet, "/profile", nil, &p)
	return p, err
}

func (c *client) leaderboard(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	err := c.do(ctx, http.MethodGet, "/leaderboard?order=desc&limit="+strconv.Itoa(n), nil, &entries)
	return entries, err
}
