package discord

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ///////////////////////////////////////////////
// Pipe Discovery
// ///////////////////////////////////////////////

// pipeNamespace is the Windows named-pipe namespace root.
const pipeNamespace = `\\.\pipe\`

// NoPipesFound is the single entry [ListEndpoints] returns when enumeration
// worked but matched nothing. It keeps "found nothing" distinguishable from
// an empty or failed response.
const NoPipesFound = "No Discord IPC pipes found"

// ErrUnsupportedPlatform is returned by [ListEndpoints] outside Windows.
var ErrUnsupportedPlatform = errors.New("pipe discovery is supported on Windows only")

// powershellPipeQuery is the fallback enumeration, equivalent to the primary
// directory read plus marker filter.
const powershellPipeQuery = `Get-ChildItem \\.\pipe\ | Where-Object Name -Match '` + pipeMarker + `' | Select-Object -ExpandProperty Name`

// listEndpoints runs the primary enumeration and, only when that call itself
// fails, the shell fallback. A primary read that succeeds with zero matches
// does not trigger the fallback.
func listEndpoints(readNames func() ([]string, error), shell func() ([]byte, error)) ([]string, error) {
	names, readErr := readNames()
	if readErr == nil {
		var found []string
		for _, name := range names {
			if strings.Contains(name, pipeMarker) {
				found = append(found, name)
			}
		}
		return orSentinel(found), nil
	}

	slog.Debug("pipe namespace read failed, trying powershell", "error", readErr)
	out, shellErr := shell()
	if shellErr != nil {
		return nil, fmt.Errorf("enumerate pipes: read %s: %v; powershell: %w", pipeNamespace, readErr, shellErr)
	}
	return orSentinel(parseLines(out)), nil
}

// parseLines splits line-oriented shell output, trimming whitespace and
// dropping blank lines. CRLF endings are handled by the trim.
func parseLines(out []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func orSentinel(names []string) []string {
	if len(names) == 0 {
		return []string{NoPipesFound}
	}
	return names
}
