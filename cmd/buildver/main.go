// Command buildver prints the linker flags for a deskcord release build:
//
//	go build -ldflags "$(go run ./cmd/buildver)" ./cmd/deskcord
//
// The version comes from `git describe` against v* tags, falling back to
// the release manifest's base version plus the short commit hash:
//
//	on v0.1.0:          0.1.0
//	3 commits later:    0.1.0-dev.3+g1234567
//	no tags:            0.1.0-dev+1234567
//	uncommitted edits:  any of the above with a .dirty/-dirty mark
//
// The GitHub owner and repo used for update checks are baked in too, so
// release binaries do not need a git checkout at runtime.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"tools.zach/dev/deskcord/internal/paths"
	"tools.zach/dev/deskcord/internal/remote"
)

const remotePkg = "tools.zach/dev/deskcord/internal/remote"

func main() {
	versionOnly := flag.Bool("version-only", false, "print just the version string")
	flag.Parse()

	ver := buildVersion(git, baseVersion(paths.ReleaseManifest))
	if *versionOnly {
		fmt.Print(ver)
		return
	}
	fmt.Print(ldflags(ver, remote.Origin()))
}

// git runs a git subcommand and returns its trimmed stdout.
func git(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	return strings.TrimSpace(string(out)), err
}

// ldflags renders the -X assignments. Owner and repo are skipped when the
// checkout has no GitHub origin.
func ldflags(ver string, origin remote.Repo) string {
	flags := []string{"-X main.version=" + ver}
	if origin.Known() {
		flags = append(flags,
			"-X "+remotePkg+".ldOwner="+origin.Owner,
			"-X "+remotePkg+".ldRepo="+origin.Name,
		)
	}
	return strings.Join(flags, " ")
}

// buildVersion asks git (through run) for the nearest tag, then for the
// commit hash when there is no tag.
func buildVersion(run func(...string) (string, error), base string) string {
	if desc, err := run("describe", "--tags", "--match", "v*", "--dirty"); err == nil && desc != "" {
		return fromDescribe(desc)
	}
	hash, err := run("rev-parse", "--short=7", "HEAD")
	if err != nil || hash == "" {
		return base + "-dev"
	}
	ver := base + "-dev+" + hash
	if status, err := run("status", "--porcelain"); err == nil && status != "" {
		ver += ".dirty"
	}
	return ver
}

// describeRe splits `git describe` output into tag, distance, hash and the
// dirty mark.
var describeRe = regexp.MustCompile(`^v?(.+?)(?:-(\d+)-(g[0-9a-f]+))?(-dirty)?$`)

// fromDescribe turns "v0.1.0-3-g1234567-dirty" into "0.1.0-dev.3+g1234567.dirty".
func fromDescribe(desc string) string {
	m := describeRe.FindStringSubmatch(desc)
	if m == nil {
		return strings.TrimPrefix(desc, "v")
	}
	tag, distance, hash, dirty := m[1], m[2], m[3], m[4] != ""
	if distance == "" {
		if dirty {
			return tag + "-dirty"
		}
		return tag
	}
	ver := tag + "-dev." + distance + "+" + hash
	if dirty {
		ver += ".dirty"
	}
	return ver
}

// baseVersion reads the "." entry of the release manifest at path, or
// "0.0.0" when it cannot.
func baseVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "0.0.0"
	}
	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil || manifest["."] == "" {
		return "0.0.0"
	}
	return manifest["."]
}
