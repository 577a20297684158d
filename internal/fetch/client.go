package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/jbr-fetch/internal/version"
)

// DefaultFileMode is the mode of files written by the client.
const DefaultFileMode os.FileMode = 0o644

var errBadHTTPStatus = errors.New("unexpected http status")

// NetworkError wraps a failed transfer from URL.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

// Client performs plain GET downloads.
type Client struct {
	// http is the underlying HTTP client.
	http *http.Client
	// userAgent is sent with every request.
	userAgent string
}

// Option configures the client.
type Option func(*Client)

// WithTimeout bounds each request including reading the body. Zero keeps it unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// New builds a client on the default transport, so proxy settings come from the environment
// and no timeout applies unless WithTimeout sets one.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Transport: http.DefaultTransport},
		userAgent: version.UserAgent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Download writes the body at rawURL to dst, truncating it, and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, rawURL, dst string) (int64, error) {
	response, err := c.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	output, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	body := &trackingReader{r: response.Body}

	written, err := io.Copy(output, body)
	if closeErr := output.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", dst, closeErr)
	}

	if body.err != nil {
		return written, &NetworkError{URL: rawURL, Err: body.err}
	}

	if err != nil {
		return written, fmt.Errorf("write %s: %w", dst, err)
	}

	return written, nil
}

// Replace downloads rawURL and swaps it in place of dst, overwriting any existing file.
// The old file stays in place until the new contents are fully on disk.
func (c *Client) Replace(ctx context.Context, rawURL, dst string) error {
	dst = filepath.Clean(dst)

	response, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	createdPlaceholder, err := ensureTarget(dst)
	if err != nil {
		return err
	}

	body := &trackingReader{r: response.Body}

	err = goupdate.Apply(body, goupdate.Options{
		TargetPath: dst,
		TargetMode: DefaultFileMode,
	})

	switch {
	case body.err != nil:
		err = &NetworkError{URL: rawURL, Err: body.err}
	case err != nil:
		err = fmt.Errorf("replace %s: %w", dst, err)
	default:
		return nil
	}

	// A failed first download must not leave an empty archive behind.
	if createdPlaceholder {
		_ = os.Remove(dst)
	}

	return err
}

// ensureTarget creates an empty file at dst when none exists, since go-update
// renames the current target aside first. It reports whether it created one.
func ensureTarget(dst string) (bool, error) {
	_, err := os.Stat(dst)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", dst, err)
	}

	placeholder, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY, DefaultFileMode)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", dst, err)
	}

	_ = placeholder.Close()

	return true, nil
}

// get issues a GET request and rejects anything but 200 OK.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", c.userAgent)

	response, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)}
	}

	return response, nil
}

// trackingReader remembers the first non-EOF read error so body failures can be told apart from disk failures.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}

	return n, err
}
