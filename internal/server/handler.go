package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/securemed/internal/analysis"
	"github.com/Skufu/securemed/internal/apperrors"
	"github.com/Skufu/securemed/internal/extract"
	"github.com/Skufu/securemed/internal/metrics"
	"github.com/Skufu/securemed/internal/store"
)

const (
	headerAnalysisID = "X-Analysis-ID"
	headerDisclaimer = "X-Advisory-Disclaimer"

	disclaimer = "Automated summary for general guidance only. Not a diagnosis; consult a licensed clinician."

	persistTimeout = 3 * time.Second
)

type handler struct {
	analyzer    Analyzer
	store       AnalysisStore
	maxUploadMB int
	timeout     time.Duration
}

type textRequest struct {
	Text string `json:"text"`
}

func (h *handler) analyze(c *gin.Context) {
	id := uuid.New()
	c.Header(headerAnalysisID, id.String())

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, id, "", apperrors.PayloadTooLarge(h.maxUploadMB))
			return
		}
		h.fail(c, id, "", apperrors.BadRequest("No file uploaded"))
		return
	}
	if fh.Size > int64(h.maxUploadMB)<<20 {
		h.fail(c, id, "", apperrors.PayloadTooLarge(h.maxUploadMB))
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	fileType := extract.DetectFileType(fh.Filename, mimeType)
	if fileType == extract.FileTypeUnknown {
		h.fail(c, id, string(fileType), apperrors.UnsupportedFileType(fh.Filename, extract.AcceptedTypes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.fail(c, id, string(fileType), apperrors.BadRequest("Could not read uploaded file"))
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		h.fail(c, id, string(fileType), apperrors.BadRequest("Could not read uploaded file"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	res, err := h.analyzer.Analyze(ctx, analysis.Input{
		Data:     data,
		FileName: fh.Filename,
		MimeType: mimeType,
	})
	if err != nil {
		metrics.RecordAnalysis(string(fileType), outcomeOf(err), time.Since(start), 0)
		h.fail(c, id, string(fileType), apperrors.From(err))
		return
	}
	metrics.RecordAnalysis(res.FileType, metrics.OutcomeSuccess, time.Since(start), len(res.Prescription.Medications))

	h.respond(c, id, fh.Filename, res)
}

func (h *handler) analyzeText(c *gin.Context) {
	id := uuid.New()
	c.Header(headerAnalysisID, id.String())

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, id, analysis.FileTypeText, apperrors.BadRequest("Invalid payload"))
		return
	}
	if req.Text == "" {
		h.fail(c, id, analysis.FileTypeText, apperrors.BadRequest("No text provided"))
		return
	}

	start := time.Now()
	res, err := analysis.AnalyzeText(analysis.FileTypeText, req.Text)
	if err != nil {
		metrics.RecordAnalysis(analysis.FileTypeText, outcomeOf(err), time.Since(start), 0)
		h.fail(c, id, analysis.FileTypeText, apperrors.From(err))
		return
	}
	metrics.RecordAnalysis(analysis.FileTypeText, metrics.OutcomeSuccess, time.Since(start), len(res.Prescription.Medications))

	h.respond(c, id, "", res)
}

func (h *handler) getAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, analysis.NewErrorResult(apperrors.BadRequest("Invalid analysis id")))
		return
	}

	rec, err := h.store.GetAnalysis(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, analysis.ErrorResult{Success: false, Message: "Analysis not found"})
		return
	}
	if err != nil {
		log.Printf("analysis %s lookup failed: %v", id, err)
		appErr := apperrors.Internal(err)
		c.JSON(appErr.HTTPStatus, analysis.NewErrorResult(appErr))
		return
	}

	c.Header(headerAnalysisID, rec.ID.String())
	c.Header(headerDisclaimer, disclaimer)
	c.Data(http.StatusOK, "application/json; charset=utf-8", rec.Result)
}

// respond writes res and, when history is enabled, stores the same bytes.
func (h *handler) respond(c *gin.Context, id uuid.UUID, fileName string, res *analysis.Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		h.fail(c, id, res.FileType, apperrors.Internal(err))
		return
	}

	if h.store != nil {
		h.persist(c.Request.Context(), store.AnalysisRecord{
			ID:              id,
			FileName:        fileName,
			FileType:        res.FileType,
			MedicationCount: len(res.Prescription.Medications),
			Conditions:      res.Summary.PossibleConditions,
			Result:          raw,
		})
	}

	c.Header(headerDisclaimer, disclaimer)
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (h *handler) persist(parent context.Context, rec store.AnalysisRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), persistTimeout)
	defer cancel()

	if err := h.store.SaveAnalysis(ctx, rec); err != nil {
		metrics.RecordPersistFailure()
		log.Printf("analysis %s not persisted: %v", rec.ID, err)
	}
}

func (h *handler) fail(c *gin.Context, id uuid.UUID, fileType string, appErr *apperrors.AppError) {
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Printf("analysis %s (%s) failed: %v", id, fileType, appErr)
	}
	c.JSON(appErr.HTTPStatus, analysis.NewErrorResult(appErr))
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedFileType):
		return metrics.OutcomeUnsupported
	case errors.Is(err, apperrors.ErrAnalysisTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFailure
	}
}
