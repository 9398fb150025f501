package githost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/snapsync/snapsync/internal/logging"
	"github.com/snapsync/snapsync/pkg/retry"
	"go.uber.org/zap"
)

// Client talks to the hosting API with retry and bearer-token auth.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryPolicy retry.Policy
	authToken   string
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryPolicy retry.Policy
	AuthToken   string
}

// New creates a new hosting API client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryPolicy.MaxAttempts == 0 {
		cfg.RetryPolicy = retry.DefaultPolicy()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryPolicy: cfg.RetryPolicy,
		authToken:   cfg.AuthToken,
	}
}

// SetAuthToken sets the bearer token for subsequent requests.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

func (c *Client) applyAuth(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// get performs one GET with auth and maps failures to TransportError.
// Network errors and 5xx responses are marked transient for the retry layer.
func (c *Client) get(ctx context.Context, op, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.Transient(&TransportError{Op: op, Err: err})
	}
	return resp, nil
}

// ResolveBranch resolves a branch name to its head commit SHA.
func (c *Client) ResolveBranch(ctx context.Context, owner, repo, branch string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/branches/%s", c.baseURL, owner, repo, branch)

	return retry.DoValue(ctx, c.retryPolicy, func() (string, error) {
		resp, err := c.get(ctx, "resolve branch", url)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return "", &ResolutionError{Ref: branch}
		case resp.StatusCode >= 500:
			return "", retry.Transient(&TransportError{Op: "resolve branch", Status: resp.StatusCode})
		case resp.StatusCode != http.StatusOK:
			return "", &TransportError{Op: "resolve branch", Status: resp.StatusCode}
		}

		var br branchResponse
		if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
			return "", &TransportError{Op: "resolve branch", Err: err}
		}
		if br.Commit.SHA == "" {
			return "", &ResolutionError{Ref: branch}
		}
		return br.Commit.SHA, nil
	})
}

// ListTree returns every blob entry of a commit's tree, recursively
// expanded. Directories are not returned. The listing is a single call;
// if the host truncates very large trees the result is incomplete and a
// warning is logged.
func (c *Client) ListTree(ctx context.Context, owner, repo, commit string) ([]FileRef, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", c.baseURL, owner, repo, commit)

	return retry.DoValue(ctx, c.retryPolicy, func() ([]FileRef, error) {
		resp, err := c.get(ctx, "list tree", url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
			return nil, &ResolutionError{Ref: commit}
		case resp.StatusCode >= 500:
			return nil, retry.Transient(&TransportError{Op: "list tree", Status: resp.StatusCode})
		case resp.StatusCode != http.StatusOK:
			return nil, &TransportError{Op: "list tree", Status: resp.StatusCode}
		}

		var tr treeResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return nil, &TransportError{Op: "list tree", Err: err}
		}

		if tr.Truncated {
			logging.Warn("tree listing truncated by host",
				zap.String("repo", owner+"/"+repo),
				zap.String("commit", commit))
		}

		blobs := make([]FileRef, 0, len(tr.Tree))
		for _, entry := range tr.Tree {
			if entry.Type == "blob" {
				blobs = append(blobs, entry)
			}
		}
		return blobs, nil
	})
}

// FetchBlob retrieves one blob by SHA and decodes it.
//
// When binary is true the base64 content field is extracted from the raw
// response body with a bounded scan instead of a full JSON parse, so a
// multi-megabyte payload is never materialized twice. When binary is
// false the response is parsed and the payload decoded to UTF-8 text;
// a payload that is not valid UTF-8 falls back to the binary
// representation.
func (c *Client) FetchBlob(ctx context.Context, owner, repo, sha string, binary bool) (*Blob, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/blobs/%s", c.baseURL, owner, repo, sha)

	return retry.DoValue(ctx, c.retryPolicy, func() (*Blob, error) {
		resp, err := c.get(ctx, "fetch blob", url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return nil, retry.Transient(&TransportError{Op: "fetch blob", Status: resp.StatusCode})
		case resp.StatusCode != http.StatusOK:
			return nil, &TransportError{Op: "fetch blob", Status: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, retry.Transient(&TransportError{Op: "fetch blob", Err: err})
		}

		if binary {
			payload, err := extractContentField(body)
			if err != nil {
				return nil, &ExtractionError{SHA: sha, Reason: err.Error()}
			}
			return &Blob{SHA: sha, Content: payload, Binary: true}, nil
		}

		return decodeTextBlob(sha, body)
	})
}

// extractContentField pulls the base64 payload out of a raw blob response
// without unmarshaling it. Base64 text and the host's "\n" wrap escapes
// contain no quote characters, so the field ends at the next quote.
func extractContentField(body []byte) ([]byte, error) {
	key := []byte(`"content"`)
	i := bytes.Index(body, key)
	if i < 0 {
		return nil, fmt.Errorf("no content field in response")
	}

	rest := body[i+len(key):]
	rest = bytes.TrimLeft(rest, " \t\r\n")
	if len(rest) == 0 || rest[0] != ':' {
		return nil, fmt.Errorf("malformed content field")
	}
	rest = bytes.TrimLeft(rest[1:], " \t\r\n")
	if len(rest) == 0 || rest[0] != '"' {
		return nil, fmt.Errorf("content field is not a string")
	}
	rest = rest[1:]

	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return nil, fmt.Errorf("unterminated content field")
	}

	// Drop the line-wrap escapes the host inserts into long payloads.
	return bytes.ReplaceAll(rest[:end], []byte(`\n`), nil), nil
}

// decodeTextBlob fully parses a blob response and decodes its payload as
// UTF-8 text, falling back to the binary representation when the payload
// is not text after all.
func decodeTextBlob(sha string, body []byte) (*Blob, error) {
	var br blobResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return nil, &ExtractionError{SHA: sha, Reason: fmt.Sprintf("parse response: %v", err)}
	}
	if br.Encoding != "base64" {
		return nil, &ExtractionError{SHA: sha, Reason: fmt.Sprintf("unexpected encoding %q", br.Encoding)}
	}

	encoded := strings.ReplaceAll(br.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &ExtractionError{SHA: sha, Reason: fmt.Sprintf("decode payload: %v", err)}
	}

	if !utf8.Valid(decoded) {
		// Misclassified as text. Keep the encoded payload untouched.
		return &Blob{SHA: sha, Content: []byte(encoded), Binary: true}, nil
	}
	return &Blob{SHA: sha, Content: decoded, Binary: false}, nil
}
