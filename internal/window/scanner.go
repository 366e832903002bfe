package window

import (
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Info is a recognized window as returned to the shell.
type Info struct {
	HWND         ID     `json:"hwnd"`
	Title        string `json:"title"`
	ProcessName  string `json:"process_name"`
	IconPath     string `json:"icon_path"`
	DisplayName  string `json:"display_name"`
	DocumentName string `json:"document_name"`
	AppID        string `json:"app_id,omitempty"`
}

// Scanner lists the visible windows that belong to catalog processes.
type Scanner struct {
	catalog  *Catalog
	platform Platform
	// ignore holds doublestar globs matched against document names and
	// titles; matching windows are never reported.
	ignore []string
}

// NewScanner returns a Scanner. Invalid ignore globs are dropped with a
// warning.
func NewScanner(catalog *Catalog, platform Platform, ignore []string) *Scanner {
	s := &Scanner{catalog: catalog, platform: platform}
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			slog.Warn("dropping invalid privacy ignore pattern", "pattern", pattern)
			continue
		}
		s.ignore = append(s.ignore, pattern)
	}
	return s
}

// Platform returns the backend the scanner queries.
func (s *Scanner) Platform() Platform { return s.platform }

// Catalog returns the allowed-process catalog.
func (s *Scanner) Catalog() *Catalog { return s.catalog }

// List returns recognized windows in the backend's enumeration order.
// Invisible and untitled windows are skipped.
func (s *Scanner) List() ([]Info, error) {
	raw, err := s.platform.Windows()
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0)
	for _, w := range raw {
		if !w.Visible || w.Title == "" {
			continue
		}
		entry, ok := s.catalog.Lookup(w.ProcessName)
		if !ok {
			continue
		}
		doc := s.catalog.ExtractDocument(w.ProcessName, w.Title)
		if s.ignored(doc, w.Title) {
			slog.Debug("window hidden by privacy ignore list", "process", w.ProcessName, "hwnd", w.ID)
			continue
		}
		out = append(out, Info{
			HWND:         w.ID,
			Title:        w.Title,
			ProcessName:  w.ProcessName,
			IconPath:     entry.IconPath,
			DisplayName:  entry.DisplayName,
			DocumentName: doc,
			AppID:        entry.AppID,
		})
	}
	return out, nil
}

func (s *Scanner) ignored(doc, title string) bool {
	for _, pattern := range s.ignore {
		if doc != "" {
			if ok, _ := doublestar.Match(pattern, doc); ok {
				return true
			}
		}
		if ok, _ := doublestar.Match(pattern, title); ok {
			return true
		}
	}
	return false
}

// sameWindows reports whether two lists describe the same windows in the
// same order.
func sameWindows(a, b []Info) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func processBase(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
