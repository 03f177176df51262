// Package analysis runs the document-analysis pipeline: text extraction,
// clinical summary, prescription parsing and lifestyle planning.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skufu/securemed/internal/apperrors"
	"github.com/Skufu/securemed/internal/clinical"
	"github.com/Skufu/securemed/internal/extract"
	"github.com/Skufu/securemed/internal/lifestyle"
	"github.com/Skufu/securemed/internal/prescription"
)

// FileTypeText marks results produced from caller-supplied text.
const FileTypeText = "text"

type Extractor interface {
	Extract(ctx context.Context, in extract.Input) (extract.Result, error)
}

type Input struct {
	Data     []byte
	FileName string
	MimeType string
}

// Result is the payload returned to callers on success.
type Result struct {
	Success       bool                      `json:"success"`
	FileType      string                    `json:"fileType"`
	ExtractedText string                    `json:"extractedText"`
	Summary       clinical.Summary          `json:"summary"`
	Prescription  prescription.Prescription `json:"prescription"`
	LifestylePlan lifestyle.Plan            `json:"lifestylePlan"`
}

// ErrorResult is the payload returned to callers on failure.
type ErrorResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewErrorResult(err *apperrors.AppError) ErrorResult {
	return ErrorResult{Success: false, Message: err.Message}
}

type Analyzer struct {
	extractor Extractor
}

func New(extractor Extractor) *Analyzer {
	return &Analyzer{extractor: extractor}
}

type outcome struct {
	res *Result
	err error
}

// Analyze extracts text from in and runs every stage over it. Stages run
// sequentially in a single goroutine; when ctx expires before they finish
// the call returns AnalysisTimeout and the late result is discarded.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Result, error) {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: apperrors.ExtractionFailure(fmt.Errorf("extractor panic: %v", r))}
			}
		}()
		res, err := a.run(ctx, in)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, apperrors.AnalysisTimeout(ctx.Err())
	}
}

func (a *Analyzer) run(ctx context.Context, in Input) (*Result, error) {
	ext, err := a.extractor.Extract(ctx, extract.Input{
		Data:     in.Data,
		FileName: in.FileName,
		MimeType: in.MimeType,
	})
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFileType):
			return nil, apperrors.UnsupportedFileType(in.FileName, extract.AcceptedTypes)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return nil, apperrors.AnalysisTimeout(err)
		default:
			return nil, apperrors.ExtractionFailure(err)
		}
	}
	return AnalyzeText(string(ext.FileType), ext.Text)
}

// AnalyzeText runs the summary, prescription and plan stages over text that
// is already extracted. A panic in any stage fails the whole call closed.
func AnalyzeText(fileType, text string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, apperrors.ExtractionFailure(fmt.Errorf("stage panic: %v", r))
		}
	}()

	summary := clinical.Summarize(text)
	rx := prescription.Parse(text)
	plan := lifestyle.BuildPlan(summary, rx)

	return &Result{
		Success:       true,
		FileType:      fileType,
		ExtractedText: text,
		Summary:       summary,
		Prescription:  rx,
		LifestylePlan: plan,
	}, nil
}
