package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// newHTTPClient caches GET responses on disk so public catalog reads honor
// the server's Cache-Control. An empty dir keeps the cache in memory.
func newHTTPClient(dir string) *http.Client {
	if dir == "" {
		return &http.Client{Transport: httpcache.NewTransport(httpcache.NewMemoryCache())}
	}
	return &http.Client{Transport: httpcache.NewTransport(diskcache.New(dir))}
}

type apiClient struct {
	base  string
	admin string
	token string
	hc    *http.Client
}

func newAPIClient(g *Globals, hc *http.Client, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(g.Server, "/"),
		admin: "/" + strings.Trim(g.AdminPrefix, "/"),
		token: token,
		hc:    hc,
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out (when non-nil).
func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) adminPath(p string) string { return c.admin + p }
