// Package extract turns one uploaded file into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeImage   FileType = "image"
	FileTypeDICOM   FileType = "dicom"
	FileTypeUnknown FileType = "unknown"
)

// DICOMPlaceholder is the text returned for DICOM files, which are detected
// but never decoded.
const DICOMPlaceholder = "DICOM file detected. Use a dedicated DICOM viewer to inspect the study in 2D/3D."

// AcceptedTypes lists the accepted upload kinds for error messages.
const AcceptedTypes = "images (jpg, jpeg, png), PDF, DICOM (.dcm)"

var ErrUnsupportedFileType = errors.New("unsupported file type")

// OCREngine recognises text in an encoded image.
type OCREngine interface {
	Recognize(image []byte) (string, error)
}

// PDFReader returns the plain text of every page of a PDF, in page order.
type PDFReader interface {
	Text(data []byte) (string, error)
}

type Input struct {
	Data     []byte
	FileName string
	MimeType string
}

type Result struct {
	FileType FileType
	Text     string
}

type Extractor struct {
	ocr        OCREngine
	pdf        PDFReader
	preprocess func([]byte) Preprocessed
}

func New(ocr OCREngine, pdf PDFReader) *Extractor {
	return &Extractor{ocr: ocr, pdf: pdf, preprocess: Preprocess}
}

// DetectFileType classifies an upload. A .dcm extension wins over any
// declared MIME type.
func DetectFileType(fileName, mimeType string) FileType {
	ext := strings.ToLower(filepath.Ext(fileName))
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch {
	case ext == ".dcm":
		return FileTypeDICOM
	case mime == "application/pdf" || ext == ".pdf":
		return FileTypePDF
	case mime == "image/jpeg" || mime == "image/jpg" || mime == "image/png",
		ext == ".jpg" || ext == ".jpeg" || ext == ".png":
		return FileTypeImage
	default:
		return FileTypeUnknown
	}
}

// Extract returns the text of in. Unknown types fail with
// ErrUnsupportedFileType before any parsing is attempted.
func (e *Extractor) Extract(ctx context.Context, in Input) (Result, error) {
	fileType := DetectFileType(in.FileName, in.MimeType)

	switch fileType {
	case FileTypeDICOM:
		return Result{FileType: FileTypeDICOM, Text: DICOMPlaceholder}, nil

	case FileTypePDF:
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		text, err := e.pdf.Text(in.Data)
		if err != nil {
			return Result{}, fmt.Errorf("parse pdf: %w", err)
		}
		return Result{FileType: FileTypePDF, Text: clean(text)}, nil

	case FileTypeImage:
		target := in.Data
		if pre := e.preprocess(in.Data); pre.OK {
			target = pre.Image
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		text, err := e.ocr.Recognize(target)
		if err != nil {
			return Result{}, fmt.Errorf("ocr: %w", err)
		}
		return Result{FileType: FileTypeImage, Text: clean(text)}, nil

	default:
		return Result{}, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFileType, in.FileName, in.MimeType)
	}
}

// clean folds compatibility characters (full-width digits, ligatures) so the
// ASCII probes downstream still match, and drops carriage returns.
func clean(text string) string {
	return norm.NFKC.String(strings.ReplaceAll(text, "\r", ""))
}
