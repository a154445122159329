package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/somalabs/somagen/internal/batch"
)

const (
	maxBatchUploadBytes = 1 << 20
	maxBatchRows        = 500
)

// batchRate bounds how fast uploaded rows hit the model server.
var batchRate = rate.Limit(2)

func (s *Server) handleBatchTemplate(c *echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="measurements_template.csv"`)
	res.WriteHeader(http.StatusOK)
	return batch.WriteTemplate(res)
}

// handleBatch accepts a multipart CSV upload in the "file" field. With
// ?stream=true progress is sent as SSE events; otherwise the full results
// CSV comes back once every row has been processed.
func (s *Server) handleBatch(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "summary service not configured")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return writeBadRequest(c, `multipart field "file" is required`)
	}
	if fh.Size > maxBatchUploadBytes {
		return writeBadRequest(c, fmt.Sprintf("file exceeds %d bytes", maxBatchUploadBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	defer f.Close()

	rows, err := batch.ParseInput(io.LimitReader(f, maxBatchUploadBytes))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if len(rows) > maxBatchRows {
		return writeBadRequest(c, fmt.Sprintf("too many rows: %d (limit %d)", len(rows), maxBatchRows))
	}

	if streamParam(c) {
		return s.runBatchSSE(c, rows)
	}
	return s.runBatchCSV(c, rows)
}

func (s *Server) runBatchCSV(c *echo.Context, rows []batch.Row) error {
	results := s.runBatch(c, rows, nil)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="summaries.csv"`)
	res.WriteHeader(http.StatusOK)
	return batch.WriteResults(res, results)
}

func (s *Server) runBatchSSE(c *echo.Context, rows []batch.Row) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return writeBadRequest(c, "streaming unsupported")
	}

	seq := 1
	emit := func(ev BatchRowEvent) {
		ev.SequenceNumber = seq
		b, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(res, "data: %s\n\n", string(b))
		flusher.Flush()
		seq++
	}

	succeeded, failed := 0, 0
	results := s.runBatch(c, rows, func(r batch.Result) {
		ev := BatchRowEvent{Type: "batch.row", Line: r.Row.Line, Summary: r.Summary}
		if r.Err != nil {
			ev.Error = r.Err.Error()
			failed++
		} else {
			succeeded++
			ev.Row = measurementView(r.Row)
		}
		emit(ev)
	})

	emit(BatchRowEvent{
		Type:      "batch.completed",
		Total:     len(results),
		Succeeded: succeeded,
		Failed:    failed,
	})
	return nil
}

// runBatch drives rows through the summary service sequentially, so batch
// entries land in history exactly like manual ones.
func (s *Server) runBatch(c *echo.Context, rows []batch.Row, onResult func(batch.Result)) []batch.Result {
	ctx := c.Request().Context()
	limiter := rate.NewLimiter(batchRate, 1)

	results := make([]batch.Result, 0, len(rows))
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		res := batch.Result{Row: row}
		switch {
		case row.Err != nil:
			res.Err = row.Err
		default:
			if err := limiter.Wait(ctx); err != nil {
				res.Err = err
				break
			}
			req := summaryRequestFromRow(row)
			resp, err := s.service.CreateSummary(ctx, &req, nil)
			if err != nil {
				res.Err = err
			} else {
				res.Summary = resp.Summary
				_ = s.store.Save(*resp)
			}
		}
		results = append(results, res)
		if onResult != nil {
			onResult(res)
		}
	}
	return results
}

func summaryRequestFromRow(row batch.Row) SummaryRequest {
	m := row.Measurement
	req := SummaryRequest{
		Age:      m.Age,
		Sex:      string(m.Sex),
		HeightCM: m.HeightCM,
		WeightKG: m.WeightKG,
	}
	if m.WaistCM > 0 {
		req.WaistCM = m.WaistCM
	}
	return req
}

func measurementView(row batch.Row) *MeasurementView {
	m := row.Measurement
	return &MeasurementView{
		Age:           m.Age,
		Sex:           string(m.Sex),
		HeightCM:      m.HeightCM,
		WeightKG:      m.WeightKG,
		WaistCM:       m.WaistCM,
		BMI:           m.BMI(),
		WaistToHeight: m.WaistToHeight(),
	}
}

func streamParam(c *echo.Context) bool {
	q := c.QueryParam("stream")
	return q == "1" || strings.EqualFold(q, "true")
}
