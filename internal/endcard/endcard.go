// Package endcard renders the mandatory call-to-action card shown in
// the trailing seconds of every ad.
package endcard

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Card describes the end card content. URL is optional; when set a QR
// code is placed between the brand line and the CTA line.
type Card struct {
	Brand      string
	CTAText    string
	URL        string
	Background string // hex color, e.g. "#101828"
	Width      int
	Height     int
}

// Generate writes the card as a PNG to path.
func Generate(card Card, path string) error {
	if card.Width <= 0 || card.Height <= 0 {
		return fmt.Errorf("endcard: invalid size %dx%d", card.Width, card.Height)
	}
	bg, err := parseHexColor(card.Background)
	if err != nil {
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, card.Width, card.Height))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)

	fg := contrastColor(bg)
	centerY := card.Height / 2

	if card.URL != "" {
		qr, err := qrcode.New(card.URL, qrcode.Medium)
		if err != nil {
			return fmt.Errorf("endcard: qr: %w", err)
		}
		qr.BackgroundColor = bg
		qr.ForegroundColor = fg
		size := card.Width / 3
		src := qr.Image(size)
		dst := image.Rect((card.Width-size)/2, centerY-size/2, (card.Width+size)/2, centerY+size/2)
		xdraw.NearestNeighbor.Scale(img, dst, src, src.Bounds(), xdraw.Src, nil)
		drawCenteredText(img, card.Brand, fg, card.Width/2, centerY-size/2-40)
		drawCenteredText(img, card.CTAText, fg, card.Width/2, centerY+size/2+40)
	} else {
		drawCenteredText(img, card.Brand, fg, card.Width/2, centerY-30)
		drawCenteredText(img, card.CTAText, fg, card.Width/2, centerY+30)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("endcard: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("endcard: encode: %w", err)
	}
	return nil
}

func drawCenteredText(img *image.RGBA, text string, c color.Color, cx, cy int) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
	}
	w := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - w/2,
		Y: fixed.I(cy + face.Height/2),
	}
	d.DrawString(text)
}

func parseHexColor(s string) (color.RGBA, error) {
	if s == "" {
		return color.RGBA{R: 0x10, G: 0x18, B: 0x28, A: 0xff}, nil
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("endcard: bad color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(h, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("endcard: bad color %q", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// contrastColor picks white or black text depending on background
// luminance.
func contrastColor(bg color.RGBA) color.RGBA {
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum > 140 {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}
