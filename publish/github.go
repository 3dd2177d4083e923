package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the GitHub REST endpoint.
const DefaultAPIBaseURL = "https://api.github.com"

// GitHubHost publishes releases through the GitHub Releases API. The
// release record is created first; assets are uploaded to the URL the
// creation response hands back, so the host follows redirected upload
// endpoints without configuration.
type GitHubHost struct {
	owner   string
	repo    string
	token   string
	baseURL string
	client  *http.Client
}

// GitHubOption configures a GitHubHost.
type GitHubOption func(*GitHubHost)

// WithHTTPClient injects a custom transport.
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(h *GitHubHost) { h.client = c }
}

// WithBaseURL points the host at a different API endpoint. Tests use this
// with httptest servers; GitHub Enterprise deployments use it in earnest.
func WithBaseURL(u string) GitHubOption {
	return func(h *GitHubHost) { h.baseURL = strings.TrimSuffix(u, "/") }
}

// NewGitHubHost returns a Host for the given repository. The token is
// sent as a bearer credential on every request.
func NewGitHubHost(owner, repo, token string, opts ...GitHubOption) *GitHubHost {
	h := &GitHubHost{
		owner:   owner,
		repo:    repo,
		token:   token,
		baseURL: DefaultAPIBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type createReleaseRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	Prerelease bool   `json:"prerelease"`
}

type createReleaseResponse struct {
	ID        int64  `json:"id"`
	UploadURL string `json:"upload_url"`
}

// Publish creates the release and uploads every asset. An HTTP 422 from
// the creation call means a release for the tag already exists and maps
// to ErrReleaseExists; any other non-2xx outcome or transport error
// becomes a *PublishError. No retries at this layer.
func (h *GitHubHost) Publish(ctx context.Context, rel Release) error {
	created, err := h.createRelease(ctx, rel)
	if err != nil {
		return err
	}

	for _, asset := range rel.Assets {
		if err := h.uploadAsset(ctx, created, asset); err != nil {
			return err
		}
	}
	return nil
}

func (h *GitHubHost) createRelease(ctx context.Context, rel Release) (*createReleaseResponse, error) {
	payload, err := json.Marshal(createReleaseRequest{
		TagName:    rel.Tag.String(),
		Name:       rel.Title,
		Body:       rel.Body,
		Prerelease: rel.Prerelease,
	})
	if err != nil {
		return nil, &PublishError{Reason: fmt.Sprintf("failed to encode release: %v", err), Err: err}
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", h.baseURL, h.owner, h.repo)
	resp, err := h.do(ctx, http.MethodPost, endpoint, "application/json", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		// GitHub answers 422 for any validation failure; only the
		// already_exists error code on tag_name means the release was
		// published before.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isAlreadyExists(body) {
			return nil, fmt.Errorf("%w: tag %s", ErrReleaseExists, rel.Tag)
		}
		return nil, &PublishError{
			Reason: fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, responseError(resp)
	}

	var created createReleaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &PublishError{Reason: fmt.Sprintf("failed to decode release response: %v", err), Err: err}
	}
	return &created, nil
}

func (h *GitHubHost) uploadAsset(ctx context.Context, created *createReleaseResponse, asset Asset) error {
	endpoint, err := assetUploadURL(created, asset.Name)
	if err != nil {
		return &PublishError{Reason: err.Error(), Err: err}
	}

	resp, err := h.do(ctx, http.MethodPost, endpoint, "application/octet-stream", asset.Data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (h *GitHubHost) do(ctx context.Context, method, endpoint, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &PublishError{Reason: fmt.Sprintf("failed to build request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/vnd.github+json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &PublishError{Reason: err.Error(), Err: err}
	}
	return resp, nil
}

// assetUploadURL expands the hypermedia upload_url from the creation
// response ("...{?name,label}") for a concrete asset name.
func assetUploadURL(created *createReleaseResponse, name string) (string, error) {
	raw := created.UploadURL
	if i := strings.Index(raw, "{"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "", fmt.Errorf("release response carries no upload URL")
	}
	return raw + "?name=" + url.QueryEscape(name), nil
}

// isAlreadyExists reports whether a 422 body carries GitHub's
// already_exists validation error.
func isAlreadyExists(body []byte) bool {
	var payload struct {
		Errors []struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	for _, e := range payload.Errors {
		if e.Code == "already_exists" {
			return true
		}
	}
	return false
}

// responseError drains the body into a PublishError so the hosting
// service's message reaches the operator verbatim.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	reason := fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	return &PublishError{Reason: reason}
}
