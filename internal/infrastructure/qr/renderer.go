package qr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	defaultSizePx = 400
	imageWidthMM  = 140.0
	pageWidthMM   = 210.0
)

var instructions = []string{
	"1. Open WhatsApp on the phone that will serve the bridge.",
	"2. Go to Settings > Linked devices > Link a device.",
	"3. Point the camera at the code above.",
}

// Renderer draws pairing codes for the terminal, as PNG and as a one-page PDF.
type Renderer struct {
	sizePx int
}

func NewRenderer(sizePx int) *Renderer {
	if sizePx <= 0 {
		sizePx = defaultSizePx
	}
	return &Renderer{sizePx: sizePx}
}

func (r *Renderer) Terminal(w io.Writer, code string) {
	fmt.Fprintln(w, "--- new pairing QR code ---")
	qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
}

func (r *Renderer) Image(code string) ([]byte, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, r.sizePx)
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return png, nil
}

// Document lays out title, the PNG image and scanning instructions on an A4 page.
func (r *Renderer) Document(title string, image []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 14, tr(title), "", 1, "C", false, 0, "")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(image))
	y := pdf.GetY() + 6
	pdf.ImageOptions("qr", (pageWidthMM-imageWidthMM)/2, y, imageWidthMM, imageWidthMM, false, opts, 0, "")

	pdf.SetY(y + imageWidthMM + 8)
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range instructions {
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pairing pdf: %w", err)
	}
	return buf.Bytes(), nil
}
