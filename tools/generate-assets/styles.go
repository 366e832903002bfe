// styles.go loads the icon styling file and the process catalog, and turns
// them into the list of images to render.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Style is the look of one generated icon. Zero fields inherit.
type Style struct {
	BgColor  string `json:"bg_color,omitempty"`
	FgColor  string `json:"fg_color,omitempty"`
	Size     int    `json:"size,omitempty"`
	FontSize int    `json:"font_size,omitempty"`
	// Label overrides the drawn text (one or two characters).
	Label string `json:"label,omitempty"`
}

// merge applies the non-zero fields of src onto s.
func (s *Style) merge(src Style) {
	if src.BgColor != "" {
		s.BgColor = src.BgColor
	}
	if src.FgColor != "" {
		s.FgColor = src.FgColor
	}
	if src.Size != 0 {
		s.Size = src.Size
	}
	if src.FontSize != 0 {
		s.FontSize = src.FontSize
	}
	if src.Label != "" {
		s.Label = src.Label
	}
}

// Styles is data/icons.json.
type Styles struct {
	// Font is a local font file, relative to the repo root.
	Font string `json:"font,omitempty"`
	// FontFallback is a "google:FAMILY:WEIGHT" spec used when Font is
	// missing.
	FontFallback string `json:"font_fallback,omitempty"`
	Defaults     Style  `json:"defaults"`
	// Icons styles individual outputs, keyed by output path ("icons/gimp.png").
	Icons map[string]Style `json:"icons"`
	// Extra lists outputs that are not in the catalog, such as the Discord
	// application's default assets.
	Extra map[string]string `json:"extra"`
}

// LoadStyles reads a styles file.
func LoadStyles(p string) (*Styles, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var s Styles
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return &s, nil
}

// catalogEntry is the subset of an allowed_processes.json entry the
// generator needs.
type catalogEntry struct {
	IconPath    string `json:"icon_path"`
	DisplayName string `json:"display_name"`
}

// LoadCatalogIcons maps each icon path in the catalog at p to the display
// name of the first entry that uses it.
func LoadCatalogIcons(p string) (map[string]string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	icons := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IconPath == "" {
			continue
		}
		if _, seen := icons[e.IconPath]; !seen {
			icons[e.IconPath] = e.DisplayName
		}
	}
	return icons, nil
}

// Job is one image to render.
type Job struct {
	// Out is the output path relative to the output directory.
	Out   string
	Style Style
}

// Plan resolves the final style and label of every output, sorted by path.
// Catalog names win over Extra names for the same path.
func Plan(styles *Styles, catalog map[string]string) ([]Job, error) {
	names := make(map[string]string, len(catalog)+len(styles.Extra))
	for out, name := range styles.Extra {
		names[out] = name
	}
	for out, name := range catalog {
		names[out] = name
	}

	jobs := make([]Job, 0, len(names))
	for out, name := range names {
		if path.IsAbs(out) || strings.HasPrefix(path.Clean(out), "..") {
			return nil, fmt.Errorf("icon path %q escapes the output directory", out)
		}
		st := styles.Defaults
		st.Label = ""
		st.merge(styles.Icons[out])
		if st.Label == "" {
			st.Label = initial(name, out)
		}
		jobs = append(jobs, Job{Out: out, Style: st})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Out < jobs[j].Out })
	return jobs, nil
}

// initial returns the upper-cased first letter of name, or of the file
// name when name has none.
func initial(name, out string) string {
	for _, src := range []string{name, strings.TrimSuffix(path.Base(out), path.Ext(out))} {
		for _, r := range src {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return string(unicode.ToUpper(r))
			}
		}
	}
	return "?"
}

// labelOK reports whether a label fits the icon.
func labelOK(label string) bool {
	n := utf8.RuneCountInString(label)
	return n >= 1 && n <= 2
}
