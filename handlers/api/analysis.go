package api

import (
	"bufio"
	"bytes"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"threadscope/loader"
	"threadscope/models"
	"threadscope/storage"
	"threadscope/utils"
)

const (
	mboxContentType = "application/mbox"
	maxPageSize     = 100
)

// AnalyzeRequest is the JSON body accepted by CreateAnalysis
type AnalyzeRequest struct {
	Source   string              `json:"source"`
	Messages []models.RawMessage `json:"messages"`
}

// AnalysisHandler runs the threading pipeline on uploaded messages and
// serves the stored results
type AnalysisHandler struct {
	storage *storage.AnalysisStorage
	cache   *utils.MemoryCache[*models.Document]
	parser  loader.Options
	workers int
	indent  int
	logger  *utils.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisStorage *storage.AnalysisStorage, cache *utils.MemoryCache[*models.Document], parser loader.Options, workers, indent int) *AnalysisHandler {
	logger := parser.Logger
	if logger == nil {
		logger = utils.Log
	}
	return &AnalysisHandler{
		storage: analysisStorage,
		cache:   cache,
		parser:  parser,
		workers: workers,
		indent:  indent,
		logger:  logger,
	}
}

// CreateAnalysis analyzes a JSON message list or a raw mbox body
func (h *AnalysisHandler) CreateAnalysis(c *fiber.Ctx) error {
	var req AnalyzeRequest

	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), mboxContentType) {
		req.Source = c.Query("source", "upload.mbox")
		raws, err := loader.ReadMbox(bytes.NewReader(c.Body()), req.Source, h.parser)
		if err != nil {
			return utils.BadRequestError("Invalid mbox body", err)
		}
		req.Messages = raws
	} else if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	if req.Source == "" {
		req.Source = "upload"
	}

	doc := utils.Analyze(req.Messages, utils.AnalyzeOptions{
		Workers: h.workers,
		Logger:  h.logger,
	})

	meta, err := h.storage.SaveAnalysis(req.Source, doc)
	if err != nil {
		return utils.InternalServerError("Failed to store analysis", err)
	}
	h.cache.Set(meta.ID, doc)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"analysis": meta,
	})
}

// ListAnalyses returns the index of stored analyses, newest first
func (h *AnalysisHandler) ListAnalyses(c *fiber.Ctx) error {
	analyses, err := h.storage.ListAnalyses()
	if err != nil {
		return utils.InternalServerError("Failed to retrieve analyses", err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"analyses": analyses,
	})
}

// GetAnalysis streams one stored document as JSON, or YAML with ?format=yaml
func (h *AnalysisHandler) GetAnalysis(c *fiber.Ctx) error {
	format, err := utils.ParseFormat(c.Query("format", string(utils.FormatJSON)))
	if err != nil {
		return utils.BadRequestError("Unsupported format", err)
	}

	doc, err := h.document(c.Params("id"))
	if err != nil {
		return err
	}

	if format == utils.FormatYAML {
		c.Set(fiber.HeaderContentType, "application/yaml")
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	}

	indent := h.indent
	logger := h.logger
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		if err := utils.EncodeDocument(w, doc, format, indent); err != nil {
			logger.Error("Failed to stream analysis: %v", err)
			return
		}
		w.Flush()
	}))

	return nil
}

// GetThreads returns a page of thread records
func (h *AnalysisHandler) GetThreads(c *fiber.Ctx) error {
	id := c.Params("id")
	doc, err := h.document(id)
	if err != nil {
		return err
	}

	pageSize := c.QueryInt("page_size", 20)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return c.JSON(models.NewPaginatedThreads(id, doc.Threads, c.QueryInt("page", 1), pageSize))
}

// GetThread returns a single thread record
func (h *AnalysisHandler) GetThread(c *fiber.Ctx) error {
	doc, err := h.document(c.Params("id"))
	if err != nil {
		return err
	}

	thread, ok := doc.FindThread(c.Params("threadId"))
	if !ok {
		return utils.NotFoundError("Thread not found", nil)
	}

	return c.JSON(thread)
}

// DeleteAnalysis removes a stored analysis
func (h *AnalysisHandler) DeleteAnalysis(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.storage.DeleteAnalysis(id); err != nil {
		if errors.Is(err, storage.ErrAnalysisNotFound) {
			return utils.NotFoundError("Analysis not found", err)
		}
		return utils.InternalServerError("Failed to delete analysis", err)
	}
	h.cache.Delete(id)

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// document loads an analysis through the cache
func (h *AnalysisHandler) document(id string) (*models.Document, error) {
	if doc, ok := h.cache.Get(id); ok {
		return doc, nil
	}

	doc, err := h.storage.GetAnalysis(id)
	if err != nil {
		if errors.Is(err, storage.ErrAnalysisNotFound) {
			return nil, utils.NotFoundError("Analysis not found", err)
		}
		return nil, utils.InternalServerError("Failed to load analysis", err)
	}

	h.cache.Set(id, doc)
	return doc, nil
}
