package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecotech/contentforge/internal/coordinator"
	"github.com/ecotech/contentforge/internal/index"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/internal/retriever"
)

// HttpHandler exposes the pipeline and the index over REST.
type HttpHandler struct {
	coordinator     *coordinator.Coordinator
	retriever       *retriever.Retriever
	index           *index.Index
	collection      string
	brandCollection string
}

func NewHttpHandler(coord *coordinator.Coordinator, ret *retriever.Retriever, ix *index.Index, collection, brandCollection string) *HttpHandler {
	return &HttpHandler{
		coordinator:     coord,
		retriever:       ret,
		index:           ix,
		collection:      collection,
		brandCollection: brandCollection,
	}
}

func (h *HttpHandler) generate(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.coordinator.Generate(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// generateStream runs generation and relays activity events as SSE. The
// connection closes after the terminal event, or silently when the client
// disconnects mid-run.
func (h *HttpHandler) generateStream(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.coordinator.GenerateStreaming(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(event.Type), event)
		return true
	})
}

type upsertRequest struct {
	Collection string                `json:"collection,omitempty"`
	Items      []*models.ContentItem `json:"items" binding:"required"`
}

func (h *HttpHandler) upsertItems(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	collection := req.Collection
	if collection == "" {
		collection = h.collection
	}

	written, err := h.index.Upsert(c.Request.Context(), collection, req.Items)
	if err != nil {
		var writeErr *models.IndexWriteError
		if errors.As(err, &writeErr) {
			// Partial success: report what was written alongside the failures.
			c.JSON(http.StatusMultiStatus, gin.H{
				"written": written,
				"failed":  len(writeErr.Failed),
				"error":   writeErr.Error(),
			})
			return
		}
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": written})
}

type searchRequest struct {
	Query       string             `json:"query" binding:"required"`
	ContentType models.ContentType `json:"content_type,omitempty"`
	TopK        int                `json:"top_k,omitempty"`
	Threshold   float64            `json:"threshold,omitempty"`
}

func (h *HttpHandler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.retriever.RetrieveContext(c.Request.Context(), req.Query, req.ContentType, req.TopK, req.Threshold)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type hybridSearchRequest struct {
	Query          string  `json:"query" binding:"required"`
	TopK           int     `json:"top_k,omitempty"`
	SemanticWeight float64 `json:"semantic_weight,omitempty"`
	KeywordWeight  float64 `json:"keyword_weight,omitempty"`
}

func (h *HttpHandler) hybridSearch(c *gin.Context) {
	var req hybridSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.retriever.HybridSearch(c.Request.Context(), req.Query, req.TopK, req.SemanticWeight, req.KeywordWeight)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *HttpHandler) similar(c *gin.Context) {
	id := c.Param("id")
	diversify := c.Query("diversify") == "true"

	results, err := h.retriever.RecommendSimilar(c.Request.Context(), id, retriever.DefaultTopK, diversify)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *HttpHandler) stats(c *gin.Context) {
	collection := c.DefaultQuery("collection", h.collection)
	stats, err := h.index.Stats(c.Request.Context(), collection)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCollectionNotFound), errors.Is(err, models.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCancelled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
