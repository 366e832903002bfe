// generate-assets renders placeholder icons for deskcord.
//
// Every icon_path in allowed_processes.json gets a square PNG with the
// application's initial, and data/icons.json adds the Discord application
// assets (appicon, fileicon) the default presence refers to. Existing files
// are left alone unless -force is set, so real artwork is never replaced.
//
// Font resolution:
//  1. Local file from icons.json "font"
//  2. Google Fonts download from "font_fallback" (e.g. "google:Inter:800")
//
// Usage:
//
//	cd tools/generate-assets && go run .
//	cd tools/generate-assets && go run . -force -out ../../assets
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/image/font/opentype"
)

func main() {
	catalogFile := flag.String("catalog", "../../allowed_processes.json", "allowed processes catalog")
	stylesFile := flag.String("styles", "../../data/icons.json", "icon styles")
	outDir := flag.String("out", "../../assets", "output directory; icon paths are relative to it")
	force := flag.Bool("force", false, "overwrite existing files")
	flag.Parse()

	if err := run(*catalogFile, *stylesFile, *outDir, *force); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(catalogFile, stylesFile, outDir string, force bool) error {
	styles, err := LoadStyles(stylesFile)
	if err != nil {
		return fmt.Errorf("load styles: %w", err)
	}
	catalog, err := LoadCatalogIcons(catalogFile)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	jobs, err := Plan(styles, catalog)
	if err != nil {
		return err
	}

	repoRoot, err := filepath.Abs(filepath.Join(filepath.Dir(stylesFile), ".."))
	if err != nil {
		return fmt.Errorf("resolve repo root: %w", err)
	}
	fontData, err := resolveFont(styles, repoRoot, newFontFetcher(filepath.Join(repoRoot, "assets", "fonts", ".cache")))
	if err != nil {
		return err
	}
	otFont, err := opentype.Parse(fontData)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}

	written, skipped, err := generate(jobs, otFont, outDir, force)
	if err != nil {
		return err
	}
	fmt.Printf("Done. Wrote %d icons, kept %d existing.\n", written, skipped)
	return nil
}

// generate renders jobs under outDir.
func generate(jobs []Job, otFont *opentype.Font, outDir string, force bool) (written, skipped int, err error) {
	for _, job := range jobs {
		dst := filepath.Join(outDir, filepath.FromSlash(job.Out))
		if !force {
			if _, statErr := os.Stat(dst); statErr == nil {
				fmt.Printf("  %s (exists)\n", job.Out)
				skipped++
				continue
			}
		}
		data, err := Render(job.Style, otFont)
		if err != nil {
			return written, skipped, fmt.Errorf("render %s: %w", job.Out, err)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return written, skipped, fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return written, skipped, fmt.Errorf("write %s: %w", dst, err)
		}
		fmt.Printf("  %s (%s)\n", job.Out, job.Style.Label)
		written++
	}
	return written, skipped, nil
}

// resolveFont loads the local font, then falls back to Google Fonts.
func resolveFont(styles *Styles, repoRoot string, fetcher *fontFetcher) ([]byte, error) {
	if styles.Font != "" {
		p := filepath.Join(repoRoot, styles.Font)
		if data, err := os.ReadFile(p); err == nil {
			fmt.Printf("font: %s (local)\n", styles.Font)
			return toSFNT(p, data)
		}
	}
	if styles.FontFallback != "" {
		fmt.Printf("font: %s (Google Fonts)\n", styles.FontFallback)
		data, err := fetcher.Fetch(styles.FontFallback)
		if err != nil {
			return nil, fmt.Errorf("google fonts fallback failed: %w", err)
		}
		return data, nil
	}
	return nil, errors.New(`no font configured (set "font" or "font_fallback" in icons.json)`)
}
