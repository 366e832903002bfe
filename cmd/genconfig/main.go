// genconfig renders config.default.toml: the TOML encoding of
// config.ExampleConfig annotated with config.ConfigDocs.
//
// go generate runs it from internal/config (see the directive in
// config.go); the default -o therefore points two levels up, at the file
// configdata.go embeds.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/deskcord/internal/config"
)

func main() {
	out := flag.String("o", "../../config.default.toml", "output file")
	flag.Parse()

	text, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", *out)
}

// render encodes cfg and annotates every documented key.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("encode example config: %w", err)
	}

	a := &annotator{docs: docs, seen: map[string]bool{}}
	a.emit(
		"# ///////////////////////////////////////////////",
		"# Deskcord Configuration",
		"# ///////////////////////////////////////////////",
		"",
	)
	for _, line := range strings.Split(raw.String(), "\n") {
		a.line(strings.TrimSpace(line))
	}
	a.closeSection()

	return strings.TrimRight(strings.Join(a.out, "\n"), "\n") + "\n", nil
}

// ///////////////////////////////////////////////
// annotator
// ///////////////////////////////////////////////

// annotator rewrites encoder output one line at a time.
type annotator struct {
	docs map[string]config.FieldDoc
	out  []string
	// section is the dotted name of the current [table], "" at the root.
	section string
	seen    map[string]bool
}

func (a *annotator) emit(lines ...string) { a.out = append(a.out, lines...) }

func (a *annotator) comment(text string) {
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		a.emit("# " + l)
	}
}

func (a *annotator) line(l string) {
	switch {
	case l == "":
	case strings.HasPrefix(l, "[") && !strings.HasPrefix(l, "[["):
		a.closeSection()
		a.section = strings.Trim(l, "[] ")
		a.emit("", "# ///// "+title(a.section)+" /////", "")
		a.comment(a.docs[a.section].Comment)
		a.emit(l)
	case strings.HasPrefix(l, "#") || !strings.Contains(l, "="):
		a.emit(l)
	default:
		key, _, _ := strings.Cut(l, "=")
		path := a.qualify(strings.TrimSpace(key))
		a.seen[path] = true
		doc := a.docs[path]
		a.comment(doc.Comment)
		a.emit(l)
		for _, alt := range doc.Alternatives {
			a.emit("# " + alt)
		}
	}
}

func (a *annotator) qualify(key string) string {
	if a.section == "" {
		return key
	}
	return a.section + "." + key
}

// closeSection documents the keys of the current section that the encoder
// left out (zero values with omitempty), as commented examples in key order.
func (a *annotator) closeSection() {
	if a.section == "" {
		return
	}
	prefix := a.section + "."
	var missing []string
	for path := range a.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if ok && !strings.Contains(rest, ".") && !a.seen[path] {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)
	for _, path := range missing {
		doc := a.docs[path]
		a.emit("")
		a.comment(doc.Comment)
		for _, alt := range doc.Alternatives {
			a.emit("# " + alt)
		}
		a.seen[path] = true
	}
}

// title is the banner name of a section: its last segment, capitalized.
func title(section string) string {
	last := section[strings.LastIndex(section, ".")+1:]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
