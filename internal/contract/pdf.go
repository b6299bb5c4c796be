package contract

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	margin     = 20.0
	lineHeight = 7.0
)

// Image is an embedded picture. ContentType is image/jpeg or image/png.
type Image struct {
	ContentType string
	Data        []byte
}

// PDF renders the signed contract. A missing or undecodable photo or
// signature is replaced by a "non disponible" line.
func PDF(h Holder, photo, signature *Image, date time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle("Contrat d'ouverture de compte bancaire", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, lineHeight*2, tr("CONTRAT D'OUVERTURE DE COMPTE BANCAIRE"), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, lineHeight, tr("INFORMATIONS DU TITULAIRE:"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range holderLines(h) {
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(lineHeight)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, lineHeight, tr("TERMES ET CONDITIONS:"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(Terms(h)), "", "L", false)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, lineHeight*2, tr("SIGNATURES ET DOCUMENTS"), "", 1, "C", false, 0, "")

	pdf.CellFormat(0, lineHeight, tr("PHOTO D'IDENTITÉ:"), "", 1, "L", false, 0, "")
	if !embed(pdf, "photo", photo, 60, 45) {
		pdf.CellFormat(0, lineHeight, tr("Photo non disponible"), "", 1, "L", false, 0, "")
	}

	pdf.CellFormat(0, lineHeight, tr("SIGNATURE ÉLECTRONIQUE:"), "", 1, "L", false, 0, "")
	if !embed(pdf, "signature", signature, 80, 30) {
		pdf.CellFormat(0, lineHeight, tr("Signature non disponible"), "", 1, "L", false, 0, "")
	}

	pdf.Ln(lineHeight)
	pdf.CellFormat(0, lineHeight, tr("Date: "+FormatDate(date)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr("Lieu: "+Place), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render contract pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func embed(pdf *fpdf.Fpdf, name string, img *Image, w, h float64) bool {
	if img == nil || len(img.Data) == 0 {
		return false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err != nil {
		return false
	}
	kind := "PNG"
	if img.ContentType == "image/jpeg" {
		kind = "JPG"
	}
	opts := fpdf.ImageOptions{ImageType: kind}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if pdf.Err() {
		pdf.ClearError()
		return false
	}
	y := pdf.GetY()
	pdf.ImageOptions(name, margin, y, w, h, false, opts, 0, "")
	if pdf.Err() {
		pdf.ClearError()
		return false
	}
	pdf.SetY(y + h + 5)
	return true
}
