// google_fonts.go downloads the fallback font from the Google Fonts CSS API
// and caches it next to the repo's other assets.

package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tdewolff/font"
)

// fontURLRe finds the first font file in a Google Fonts stylesheet.
var fontURLRe = regexp.MustCompile(`url\((https?://[^)\s]+)\)`)

// ParseGoogleFontSpec splits "google:FAMILY:WEIGHT".
func ParseGoogleFontSpec(spec string) (family, weight string, ok bool) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 || parts[0] != "google" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// fontFetcher downloads fonts. cssBase is the css2 endpoint.
type fontFetcher struct {
	client   *http.Client
	cssBase  string
	cacheDir string
}

func newFontFetcher(cacheDir string) *fontFetcher {
	return &fontFetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cssBase:  "https://fonts.googleapis.com/css2",
		cacheDir: cacheDir,
	}
}

// Fetch returns the SFNT bytes for spec, from the cache when present.
func (f *fontFetcher) Fetch(spec string) ([]byte, error) {
	family, weight, ok := ParseGoogleFontSpec(spec)
	if !ok {
		return nil, fmt.Errorf("invalid google font spec %q: expected google:FAMILY:WEIGHT", spec)
	}

	cacheFile := filepath.Join(f.cacheDir, family+"-"+weight+".ttf")
	if data, err := os.ReadFile(cacheFile); err == nil {
		return data, nil
	}

	css, err := f.get(f.cssBase+"?family="+url.QueryEscape(family)+":wght@"+weight, 1<<20)
	if err != nil {
		return nil, fmt.Errorf("fetching stylesheet for %s wght@%s: %w", family, weight, err)
	}
	m := fontURLRe.FindSubmatch(css)
	if m == nil {
		return nil, fmt.Errorf("no font URL in stylesheet for %s wght@%s", family, weight)
	}
	fontURL := string(m[1])

	data, err := f.get(fontURL, 10<<20)
	if err != nil {
		return nil, fmt.Errorf("downloading font: %w", err)
	}
	if data, err = toSFNT(fontURL, data); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err == nil {
		if werr := os.WriteFile(cacheFile, data, 0o644); werr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to cache font: %v\n", werr)
		}
	}
	return data, nil
}

func (f *fontFetcher) get(u string, limit int64) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// Google serves WOFF2 to modern browsers; toSFNT converts it.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// toSFNT converts WOFF2 data (by extension or "wOF2" magic) to SFNT and
// passes anything else through.
func toSFNT(name string, data []byte) ([]byte, error) {
	woff2 := strings.HasSuffix(strings.ToLower(name), ".woff2") ||
		(len(data) >= 4 && string(data[:4]) == "wOF2")
	if !woff2 {
		return data, nil
	}
	sfnt, err := font.ToSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("convert woff2 to sfnt: %w", err)
	}
	return sfnt, nil
}
