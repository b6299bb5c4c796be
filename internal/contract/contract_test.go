package contract

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/bankportal/onboarding/internal/account"
)

func sampleHolder() Holder {
	return Holder{
		FirstName:    "Amira",
		LastName:     "Ben Salah",
		DateOfBirth:  "1990-04-12",
		PlaceOfBirth: "Sfax",
		Nationality:  "tunisienne",
		CIN:          "12345678",
		AccountType:  "epargne",
		Email:        "amira@example.tn",
		PhoneNumber:  "+21620123456",
	}
}

func encodeImage(t *testing.T, kind string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		img.Set(x, 3, color.RGBA{R: 10, G: 20, B: 200, A: 255})
	}
	var buf bytes.Buffer
	var err error
	if kind == "image/jpeg" {
		err = jpeg.Encode(&buf, img, nil)
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", kind, err)
	}
	return buf.Bytes()
}

func TestSummaryContainsCredentials(t *testing.T) {
	info := account.AccountInfo{
		AccountNumber:     "1000200112345678",
		IBAN:              "TN59 1000 2001 12345678 42",
		AccessCode:        "654321",
		TemporaryPassword: "ABCD1234",
		ActivationCode:    "ZX98YW76",
	}
	date := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	out := Summary(sampleHolder(), info, date)

	for _, want := range []string{
		"RÉCAPITULATIF DE CRÉATION DE COMPTE BANCAIRE",
		"- Nom: Amira Ben Salah",
		"- Numéro de compte: 1000200112345678",
		"- IBAN: TN59 1000 2001 12345678 42",
		"- Code d'activation: ZX98YW76",
		"Date de création: 14/10/2026",
		"Statut: Compte créé - En attente d'activation",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q", want)
		}
	}
}

func TestTextContractNamesHolder(t *testing.T) {
	out := Text(sampleHolder(), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(out, "au nom de Amira Ben Salah auprès") {
		t.Fatal("expected holder name in article 1")
	}
	if !strings.Contains(out, "Article 8 - Droit applicable") {
		t.Fatal("expected article 8")
	}
	if !strings.Contains(out, "Date: 02/01/2026") || !strings.Contains(out, "Lieu: Tunis, Tunisie") {
		t.Fatal("expected date and place")
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(sampleHolder(), "pdf"); got != "contrat-compte-bancaire-Amira-Ben-Salah.pdf" {
		t.Fatalf("unexpected filename %s", got)
	}
}

func TestPDFWithImages(t *testing.T) {
	photo := &Image{ContentType: "image/jpeg", Data: encodeImage(t, "image/jpeg")}
	signature := &Image{ContentType: "image/png", Data: encodeImage(t, "image/png")}

	out, err := PDF(sampleHolder(), photo, signature, time.Now())
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("expected a PDF document")
	}
	withImages := len(out)

	out, err = PDF(sampleHolder(), nil, nil, time.Now())
	if err != nil {
		t.Fatalf("pdf without images: %v", err)
	}
	if len(out) >= withImages {
		t.Fatalf("expected embedded images to enlarge the document (%d vs %d)", withImages, len(out))
	}
}

func TestPDFSkipsBrokenImage(t *testing.T) {
	broken := &Image{ContentType: "image/png", Data: []byte("not an image")}
	out, err := PDF(sampleHolder(), broken, broken, time.Now())
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("expected a PDF document")
	}
}
