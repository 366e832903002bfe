// Package remote knows where deskcord is published: the GitHub repository
// that hosts the release manifest and the release pages the update notice
// links to.
//
// Release builds carry the repository in ldflags. Development builds fall
// back to `git remote get-url origin`, so outside a checkout Origin may be
// the zero Repo and every URL is empty.
package remote

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Set at build time via:
//
//	-X tools.zach/dev/deskcord/internal/remote.ldOwner=...
//	-X tools.zach/dev/deskcord/internal/remote.ldRepo=...
var (
	ldOwner string
	ldRepo  string
)

// Repo is a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// Known reports whether both parts are set.
func (r Repo) Known() bool { return r.Owner != "" && r.Name != "" }

// RawURL is the raw.githubusercontent.com URL of file on main, or "".
func (r Repo) RawURL(file string) string {
	if !r.Known() {
		return ""
	}
	return "https://raw.githubusercontent.com/" + r.Owner + "/" + r.Name + "/main/" + strings.TrimPrefix(file, "/")
}

// ReleaseURL is the page of release tag, the release list when tag is
// empty, or "" for an unknown repo.
func (r Repo) ReleaseURL(tag string) string {
	if !r.Known() {
		return ""
	}
	u := "https://github.com/" + r.Owner + "/" + r.Name + "/releases"
	if tag != "" {
		u += "/tag/" + tag
	}
	return u
}

// originRe accepts https and scp-style GitHub remotes.
var originRe = regexp.MustCompile(`github\.com[:/]([^/\s]+)/([^/\s]+?)(?:\.git)?/?\s*$`)

// ParseOrigin extracts the repository from a git remote URL.
func ParseOrigin(url string) (Repo, bool) {
	m := originRe.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return Repo{}, false
	}
	return Repo{Owner: m[1], Name: m[2]}, true
}

var (
	originMu  sync.Mutex
	origin    Repo
	resolved  bool
	gitOrigin = func(ctx context.Context) (string, error) {
		out, err := exec.CommandContext(ctx, "git", "remote", "get-url", "origin").Output()
		return string(out), err
	}
)

// Origin returns the repository deskcord was built from. The git lookup
// runs at most once per process.
func Origin() Repo {
	originMu.Lock()
	defer originMu.Unlock()
	if resolved {
		return origin
	}
	resolved = true

	if ldOwner != "" && ldRepo != "" {
		origin = Repo{Owner: ldOwner, Name: ldRepo}
		return origin
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url, err := gitOrigin(ctx)
	if err != nil {
		slog.Debug("repository unknown: no ldflags and no git origin", "error", err)
		return origin
	}
	if r, ok := ParseOrigin(url); ok {
		origin = r
	}
	return origin
}

// setOrigin pins the result of Origin. Tests only.
func setOrigin(r Repo) (restore func()) {
	originMu.Lock()
	prev, prevResolved := origin, resolved
	origin, resolved = r, true
	originMu.Unlock()
	return func() {
		originMu.Lock()
		origin, resolved = prev, prevResolved
		originMu.Unlock()
	}
}
