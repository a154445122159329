package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/somalabs/somagen/internal/webui"
)

// Server exposes the summary API and the embedded single-page UI.
type Server struct {
	store   HistoryStore
	service *SummaryService
	clock   func() time.Time
}

// NewServer builds a Server around a history store and a summary service.
func NewServer(store HistoryStore, service *SummaryService) *Server {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Server{
		store:   store,
		service: service,
		clock:   time.Now,
	}
}

// Register mounts all routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.handleIndex)
	e.GET("/v1/healthz", s.handleHealthz)

	e.POST("/v1/summaries", s.handleCreateSummary)
	e.GET("/v1/summaries", s.handleListSummaries)
	e.GET("/v1/summaries/:id", s.handleGetSummary)
	e.DELETE("/v1/summaries/:id", s.handleDeleteSummary)

	e.POST("/v1/batch", s.handleBatch)
	e.GET("/v1/batch/template", s.handleBatchTemplate)
}

func (s *Server) handleIndex(c *echo.Context) error {
	return c.HTMLBlob(http.StatusOK, webui.Index())
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.clock().Unix(),
	})
}

func (s *Server) handleCreateSummary(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "summary service not configured")
	}
	req, err := decodeJSON[SummaryRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	var writer *SSEStreamWriter
	var stream StreamWriter
	if req.Stream != nil && *req.Stream {
		w, err := NewSSEStreamWriter(c)
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		writer = w
		stream = w
	}

	resp, err := s.service.CreateSummary(c.Request().Context(), &req, stream)
	if err != nil {
		if writer != nil && writer.Started() {
			// error already reported in-stream
			return nil
		}
		if errors.Is(err, ErrInvalidRequest) {
			return writeBadRequest(c, err.Error())
		}
		return writeError(c, http.StatusBadGateway, "server_error", err.Error())
	}

	if resp != nil && (req.Store == nil || *req.Store) {
		_ = s.store.Save(*resp)
	}

	if writer != nil {
		return nil
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListSummaries(c *echo.Context) error {
	limit := 0
	if q := c.QueryParam("limit"); q != "" {
		limit = parsePositiveInt(q)
	}
	data := s.store.List(limit)
	if data == nil {
		data = []SummaryResponse{}
	}
	return c.JSON(http.StatusOK, SummaryList{
		Object: "list",
		Data:   data,
	})
}

func (s *Server) handleGetSummary(c *echo.Context) error {
	id := c.Param("id")
	rec, ok := s.store.Get(id)
	if id == "" || !ok {
		return writeNotFound(c, "summary not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteSummary(c *echo.Context) error {
	id := c.Param("id")
	if id == "" || !s.store.Delete(id) {
		return writeNotFound(c, "summary not found")
	}
	return c.JSON(http.StatusOK, DeleteSummaryResponse{
		ID:      id,
		Object:  "summary",
		Deleted: true,
	})
}

func parsePositiveInt(v string) int {
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0
		}
	}
	return n
}
