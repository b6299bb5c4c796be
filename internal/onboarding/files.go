package onboarding

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadSize bounds every attachment and captured image.
const MaxUploadSize = 5 << 20

const (
	msgFileTooLarge    = "Le fichier ne doit pas dépasser 5MB"
	msgFileUnsupported = "Format non supporté. Utilisez JPG, PNG ou PDF"
	msgImageInvalid    = "Image invalide. Utilisez JPG ou PNG"
)

var (
	documentTypes = []string{"image/jpeg", "image/png", "application/pdf"}
	imageTypes    = []string{"image/jpeg", "image/png"}
)

var (
	errFileTooLarge    = errors.New(msgFileTooLarge)
	errFileUnsupported = errors.New(msgFileUnsupported)
	errImageInvalid    = errors.New(msgImageInvalid)
)

// CheckDocument validates an attachment and returns its detected content
// type. The declared type, when given, must agree with the file contents.
func CheckDocument(declared string, data []byte) (string, error) {
	if len(data) > MaxUploadSize {
		return "", errFileTooLarge
	}
	if len(data) == 0 {
		return "", errFileUnsupported
	}
	detected := mimetype.Detect(data)
	kind := matchType(detected, documentTypes)
	if kind == "" {
		return "", errFileUnsupported
	}
	if declared != "" && !sameType(declared, kind) {
		return "", errFileUnsupported
	}
	return kind, nil
}

// Image is a decoded data URL.
type Image struct {
	ContentType string
	Data        []byte
}

// ParseDataURL decodes a base64 data URL holding a JPEG or PNG image.
func ParseDataURL(raw string) (Image, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return Image{}, errImageInvalid
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, errImageInvalid
	}
	declared, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return Image{}, errImageInvalid
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxUploadSize+3 {
		return Image{}, errFileTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, errImageInvalid
	}
	if len(data) > MaxUploadSize {
		return Image{}, errFileTooLarge
	}
	kind := matchType(mimetype.Detect(data), imageTypes)
	if kind == "" || !sameType(declared, kind) {
		return Image{}, errImageInvalid
	}
	return Image{ContentType: kind, Data: data}, nil
}

func matchType(detected *mimetype.MIME, allowed []string) string {
	for _, t := range allowed {
		if detected.Is(t) {
			return t
		}
	}
	return ""
}

func sameType(declared, kind string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if media, _, ok := strings.Cut(declared, ";"); ok {
		declared = strings.TrimSpace(media)
	}
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	return declared == kind
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}
