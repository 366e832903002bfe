// Package update checks for newer deskcord releases via the release manifest.
//
// The manifest is a JSON object mapping channel names to versions; the "."
// key holds the latest stable release.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/deskcord/internal/paths"
	"tools.zach/dev/deskcord/internal/remote"
)

// ///////////////////////////////////////////////
// Checker
// ///////////////////////////////////////////////

// Checker fetches the release manifest.
type Checker struct {
	// URL is the manifest location. Empty disables the check.
	URL string

	client *retryablehttp.Client
}

// Result is the outcome of a successful check.
type Result struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	// Newer is true when Latest is a higher version than Current.
	Newer bool `json:"newer"`
}

// NewChecker returns a Checker for the project's manifest on GitHub.
func NewChecker() *Checker {
	return newChecker(remote.Origin().RawURL(paths.ReleaseManifest), 2)
}

func newChecker(url string, retries int) *Checker {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 5 * time.Second
	c.Logger = nil
	return &Checker{URL: url, client: c}
}

// Check compares current against the manifest's latest version.
func (c *Checker) Check(ctx context.Context, current string) (Result, error) {
	latest, err := c.latest(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Current: current,
		Latest:  latest,
		Newer:   latest != "" && latest != current && semverLess(current, latest),
	}, nil
}

// ///////////////////////////////////////////////
// Background Check
// ///////////////////////////////////////////////

// Check runs c.Check and logs when a newer version is available. Failures
// are logged at debug and otherwise ignored.
func Check(ctx context.Context, c *Checker, current string) {
	if c.URL == "" {
		slog.Debug("skipping version check: no remote URL configured")
		return
	}
	res, err := c.Check(ctx, current)
	if err != nil {
		slog.Debug("version check failed", "error", err)
		return
	}
	if res.Newer {
		slog.Info("new version available", "current", res.Current, "latest", res.Latest, "url", remote.Origin().ReleaseURL("v"+strings.TrimPrefix(res.Latest, "v")))
	}
}

// ///////////////////////////////////////////////
// Internal helpers
// ///////////////////////////////////////////////

// latest downloads the manifest and returns the "." entry.
func (c *Checker) latest(ctx context.Context) (string, error) {
	if c.URL == "" {
		return "", fmt.Errorf("no release manifest URL configured")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", c.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", c.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var manifest map[string]string
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest["."], nil
}

// version is a parsed major.minor.patch. Build metadata is dropped and any
// pre-release tag collapses to a flag.
type version struct {
	core [3]int
	pre  bool
}

// parseVersion accepts "1.2.3", "v1.2.3", "0.1.0-dev" and "1.0.0+build".
func parseVersion(s string) (version, bool) {
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	var v version
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s, v.pre = s[:i], true
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return version{}, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return version{}, false
		}
		v.core[i] = n
	}
	return v, true
}

// less orders by core version, then a pre-release before its release.
// Two pre-releases of the same core are unordered.
func (v version) less(w version) bool {
	for i := range v.core {
		if v.core[i] != w.core[i] {
			return v.core[i] < w.core[i]
		}
	}
	return v.pre && !w.pre
}

// semverLess reports whether a < b. Unparsable versions are never less.
func semverLess(a, b string) bool {
	va, ok := parseVersion(a)
	if !ok {
		return false
	}
	vb, ok := parseVersion(b)
	if !ok {
		return false
	}
	return va.less(vb)
}
