package ops

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func allowedURL(raw string, schemes []string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, invalidParams("bad url %q: %v", raw, err)
	}
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: scheme %q not allowed", ErrPermissionScope, u.Scheme)
}

func fetch(ctx context.Context, env *Env, raw string) (*http.Response, error) {
	u, err := allowedURL(raw, env.HTTP.AllowedSchemes)
	if err != nil {
		return nil, err
	}
	timeout := env.HTTP.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, invalidParams("bad request for %q: %v", raw, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrTransport, raw, resp.StatusCode)
	}
	// cancel fires when the caller closes the body.
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// HTTPGetOperation performs a bounded GET and returns the body as text.
func HTTPGetOperation() *Operation {
	return &Operation{
		Name:        "http_get",
		Description: "Fetch a URL and return the response body",
		Category:    CategoryNetwork,
		Required:    []string{"url"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			resp, err := fetch(ctx, env, params["url"])
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes+1))
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrTransport, err)
			}
			if len(body) > maxReadBytes {
				return string(body[:maxReadBytes]) + "\n...[truncated]", nil
			}
			return string(body), nil
		},
	}
}

// DownloadFileOperation fetches a URL into the workspace root. The target
// path is scoped exactly like create_file.
func DownloadFileOperation() *Operation {
	return &Operation{
		Name:        "download_file",
		Description: "Download a URL into the workspace",
		Category:    CategoryNetwork,
		Required:    []string{"url", "path"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			target, err := resolveScoped(env.Agent.WorkspaceRoot, params["path"])
			if err != nil {
				return "", err
			}
			if params["overwrite"] != "true" {
				if _, err := os.Stat(target); err == nil {
					return "", fmt.Errorf("%w: %s", ErrAlreadyExists, params["path"])
				}
			}
			resp, err := fetch(ctx, env, params["url"])
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", fmt.Errorf("failed to create parent directory: %w", err)
			}
			f, err := os.Create(target)
			if err != nil {
				return "", fmt.Errorf("failed to create file: %w", err)
			}
			n, err := io.Copy(f, resp.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(target)
				return "", fmt.Errorf("%w: %v", ErrTransport, err)
			}
			return fmt.Sprintf("downloaded %s (%d bytes) to %s", params["url"], n, params["path"]), nil
		},
	}
}
