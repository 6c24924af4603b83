package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/etlq/internal/duckdb"
	"github.com/tinytelemetry/etlq/internal/export"
	"github.com/tinytelemetry/etlq/internal/logparse"
	"github.com/tinytelemetry/etlq/internal/model"
	"github.com/tinytelemetry/etlq/internal/query"
)

// queryParams mirrors the shell's query flags. Outfile is not accepted here;
// use format=csv instead. Non-positive head, tail and limit count as unset.
type queryParams struct {
	Head      int    `form:"head"`
	Tail      int    `form:"tail"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Severity  string `form:"severity" binding:"omitempty,oneof=ERROR WARNING INFO"`
	Code      string `form:"code"`
	Limit     int    `form:"limit"`
	Format    string `form:"format" binding:"omitempty,oneof=json csv otlp"`
}

func (p queryParams) request() (query.Request, error) {
	req := query.Request{
		Head:     p.Head,
		Tail:     p.Tail,
		Severity: p.Severity,
		Code:     p.Code,
		Limit:    p.Limit,
	}
	var err error
	if p.StartDate != "" {
		if req.StartDate, err = logparse.ParseTime(p.StartDate); err != nil {
			return req, err
		}
	}
	if p.EndDate != "" {
		if req.EndDate, err = logparse.ParseTime(p.EndDate); err != nil {
			return req, err
		}
	}
	return req, nil
}

type recordJSON struct {
	Timestamp   string `json:"timestamp"`
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":       "ok",
		"uptime":       time.Since(s.startTime).String(),
		"record_count": s.records.Len(),
	}
	if s.mirror != nil {
		n, err := s.mirror.RecordCount(c.Request.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("mirror record count failed")
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
			return
		}
		body["mirror_record_count"] = n
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleQuery(c *gin.Context) {
	var params queryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := params.request()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seq := query.Run(s.records, req)
	switch params.Format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if _, err := export.WriteCSV(c.Writer, seq); err != nil {
			s.logger.Error().Err(err).Msg("api: csv write failed")
		}
	case "otlp":
		body, err := export.MarshalOTLPJSON(export.LogsRequest(seq, s.serviceName))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode otlp"})
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	default:
		records := []recordJSON{}
		for r := range seq {
			records = append(records, toRecordJSON(r))
		}
		c.JSON(http.StatusOK, gin.H{
			"mode":    req.Mode().String(),
			"records": records,
			"count":   len(records),
		})
	}
}

func (s *Server) handleSQL(c *gin.Context) {
	if s.mirror == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sql mirror is disabled"})
		return
	}

	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	res, err := s.mirror.ExecuteQuery(c.Request.Context(), req.SQL)
	if err != nil {
		if !errors.Is(err, duckdb.ErrNotReadOnly) {
			s.logger.Warn().Err(err).Msg("api: sql query failed")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   res.Columns,
		"rows":      res.Rows,
		"row_count": len(res.Rows),
		"truncated": res.Truncated,
	})
}

func toRecordJSON(r model.Record) recordJSON {
	return recordJSON{
		Timestamp:   r.FormatTime(),
		Severity:    r.Severity,
		Code:        r.Code,
		Description: r.Description,
	}
}
