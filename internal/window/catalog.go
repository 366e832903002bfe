// Package window recognizes which allowed application is in front of the
// user and exposes the few window operations the shell needs.
//
// The [Catalog] of allowed processes is loaded from JSON, a [Platform]
// backend enumerates native windows, and [Scanner] joins the two.
package window

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrConfigParse is returned when the allowed-processes document is not
// valid JSON of the expected shape.
var ErrConfigParse = errors.New("failed to parse allowed_processes.json")

// ///////////////////////////////////////////////
// Data Types
// ///////////////////////////////////////////////

// AllowedProcess is one catalog entry.
type AllowedProcess struct {
	// ProcessName is the executable file name (e.g. "Code.exe"). It may be a
	// glob such as "blender*".
	ProcessName string `json:"process_name"`
	// IconPath is the asset key shown as the large image.
	IconPath string `json:"icon_path"`
	// DisplayName is the human-readable application name.
	DisplayName string `json:"display_name"`
	// AppID overrides the default Discord application for this process.
	AppID string `json:"app_id,omitempty"`
	// TitleExtractPatterns are regexes tried in order against the window
	// title to find the document name.
	TitleExtractPatterns []string `json:"title_extract_patterns,omitempty"`
}

type compiledProcess struct {
	AllowedProcess
	patterns []*regexp.Regexp
	glob     bool
}

// Catalog is an immutable, compiled list of allowed processes.
type Catalog struct {
	entries []compiledProcess
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// LoadCatalog parses an allowed-processes JSON array. Patterns that fail to
// compile are dropped with a warning; the entry itself is kept.
func LoadCatalog(data []byte) (*Catalog, error) {
	var raw []AllowedProcess
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	c := &Catalog{entries: make([]compiledProcess, 0, len(raw))}
	for _, p := range raw {
		if p.ProcessName == "" {
			slog.Warn("skipping allowed process without process_name", "display_name", p.DisplayName)
			continue
		}
		cp := compiledProcess{
			AllowedProcess: p,
			glob:           strings.ContainsAny(p.ProcessName, "*?[{"),
		}
		if cp.glob && !doublestar.ValidatePattern(p.ProcessName) {
			slog.Warn("invalid process_name glob, matching literally", "process_name", p.ProcessName)
			cp.glob = false
		}
		for _, pat := range p.TitleExtractPatterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				slog.Warn("dropping invalid title pattern", "process_name", p.ProcessName, "pattern", pat, "error", err)
				continue
			}
			cp.patterns = append(cp.patterns, re)
		}
		c.entries = append(c.entries, cp)
	}
	return c, nil
}

// LoadCatalogFile loads the catalog at path, or builtin when path does not
// exist. A present but unreadable or malformed file is an error.
func LoadCatalogFile(path string, builtin []byte) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return LoadCatalog(builtin)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	slog.Info("using allowed processes override", "path", path)
	return LoadCatalog(data)
}

// ///////////////////////////////////////////////
// Queries
// ///////////////////////////////////////////////

// Processes returns the catalog entries as loaded, in file order.
func (c *Catalog) Processes() []AllowedProcess {
	out := make([]AllowedProcess, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.AllowedProcess
	}
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup finds the entry for an executable name. Exact names are compared
// case-insensitively and win over glob entries; globs are tried in file
// order.
func (c *Catalog) Lookup(processName string) (AllowedProcess, bool) {
	i := c.index(processName)
	if i < 0 {
		return AllowedProcess{}, false
	}
	return c.entries[i].AllowedProcess, true
}

func (c *Catalog) index(processName string) int {
	if processName == "" {
		return -1
	}
	for i, e := range c.entries {
		if !e.glob && strings.EqualFold(e.ProcessName, processName) {
			return i
		}
	}
	lower := strings.ToLower(processName)
	for i, e := range c.entries {
		if !e.glob {
			continue
		}
		if ok, _ := doublestar.Match(strings.ToLower(e.ProcessName), lower); ok {
			return i
		}
	}
	return -1
}

// ExtractDocument applies the title patterns of processName's entry to
// title. The first pattern that matches wins: its first capture group if that
// group took part in the match, otherwise the whole match. No match yields "".
func (c *Catalog) ExtractDocument(processName, title string) string {
	i := c.index(processName)
	if i < 0 {
		return ""
	}
	for _, re := range c.entries[i].patterns {
		m := re.FindStringSubmatchIndex(title)
		if m == nil {
			continue
		}
		if len(m) >= 4 && m[2] >= 0 {
			return title[m[2]:m[3]]
		}
		return title[m[0]:m[1]]
	}
	return ""
}
