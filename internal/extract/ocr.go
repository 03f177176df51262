package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs OCR through gosseract. A fresh client is created per call,
// so one value is safe to share across requests.
type Tesseract struct {
	Language string
}

func NewTesseract(language string) Tesseract {
	if language == "" {
		language = "eng"
	}
	return Tesseract{Language: language}
}

func (t Tesseract) Recognize(image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	// Uniform block of text, keeping the spacing between columns.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
		return "", fmt.Errorf("set variable: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}
