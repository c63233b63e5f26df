package qr

import (
	"bytes"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Format is a supported QR output format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
	EPS Format = "eps"
)

var ErrUnsupportedFormat = errors.New("unsupported qr format")

// scale is the rendered size of one QR module in pixels (or points).
const scale = 10

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case PNG, SVG, EPS:
		return Format(s), nil
	}
	return "", ErrUnsupportedFormat
}

func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case SVG:
		return "image/svg+xml"
	case EPS:
		return "application/postscript"
	}
	return ""
}

// Render encodes content as a QR code at error correction level H and
// serializes it in the requested format. PNG comes straight from the
// encoder; the vector formats are drawn from the module bitmap.
func Render(content string, format Format) ([]byte, error) {
	code, err := qrcode.New(content, qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}

	switch format {
	case PNG:
		// Negative size means pixels per module.
		return code.PNG(-scale)
	case SVG:
		return renderSVG(code.Bitmap()), nil
	case EPS:
		return renderEPS(code.Bitmap()), nil
	}
	return nil, ErrUnsupportedFormat
}

func renderSVG(bitmap [][]bool) []byte {
	size := len(bitmap) * scale

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8"?>`+"\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", size, size, size, size)
	fmt.Fprintf(&buf, `<rect width="%d" height="%d" fill="#ffffff"/>`+"\n", size, size)
	for y, row := range bitmap {
		for x, set := range row {
			if set {
				fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="%d" fill="#000000"/>`+"\n", x*scale, y*scale, scale, scale)
			}
		}
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderEPS(bitmap [][]bool) []byte {
	size := len(bitmap) * scale

	var buf bytes.Buffer
	buf.WriteString("%!PS-Adobe-3.0 EPSF-3.0\n")
	fmt.Fprintf(&buf, "%%%%BoundingBox: 0 0 %d %d\n", size, size)
	buf.WriteString("1 setgray\n")
	fmt.Fprintf(&buf, "0 0 %d %d rectfill\n", size, size)
	buf.WriteString("0 setgray\n")
	for y, row := range bitmap {
		for x, set := range row {
			if set {
				// PostScript's origin is bottom-left; flip rows.
				fmt.Fprintf(&buf, "%d %d %d %d rectfill\n", x*scale, size-(y+1)*scale, scale, scale)
			}
		}
	}
	buf.WriteString("showpage\n%%EOF\n")
	return buf.Bytes()
}
