// render.go draws one icon: the style's label centered on a solid square.

package main

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Render returns the PNG for st drawn with otFont.
func Render(st Style, otFont *opentype.Font) ([]byte, error) {
	if !labelOK(st.Label) {
		return nil, fmt.Errorf("label %q must be one or two characters", st.Label)
	}
	if st.Size <= 0 || st.FontSize <= 0 {
		return nil, fmt.Errorf("size %d and font_size %d must be positive", st.Size, st.FontSize)
	}
	bg, err := ParseHexColor(st.BgColor)
	if err != nil {
		return nil, fmt.Errorf("bg_color: %w", err)
	}
	fg, err := ParseHexColor(st.FgColor)
	if err != nil {
		return nil, fmt.Errorf("fg_color: %w", err)
	}

	fontSize := st.FontSize
	if len([]rune(st.Label)) == 2 {
		// Two glyphs need roughly twice the width.
		fontSize = fontSize * 3 / 5
	}
	face, err := opentype.NewFace(otFont, &opentype.FaceOptions{
		Size:    float64(fontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	// Center on the ink bounds, not the advance box.
	bounds, _ := font.BoundString(face, st.Label)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()
	x := (st.Size-w)/2 - bounds.Min.X.Floor()
	y := (st.Size-h)/2 - bounds.Min.Y.Floor()

	img := image.NewNRGBA(image.Rect(0, 0, st.Size, st.Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(st.Label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
