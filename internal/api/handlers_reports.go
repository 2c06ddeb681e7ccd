// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/cache"
	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
	"github.com/1001011000101101/lers-plugins-sub000/internal/metrics"
)

// maxDateRangeDays bounds one generation request; the vendor report engine
// degrades badly beyond a year of data.
const maxDateRangeDays = 366

// dateLayout is the wire format for report date ranges.
const dateLayout = "2006-01-02"

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	systemTypeID, ok := optionalIntQuery(r, "systemTypeId")
	if !ok {
		writeError(w, "invalid systemTypeId")
		return
	}
	s.serveTemplates(w, r, lers.PointTypeRegular, systemTypeID)
}

func (s *Server) handleApartmentTemplates(w http.ResponseWriter, r *http.Request) {
	s.serveTemplates(w, r, lers.PointTypeCommunal, 0)
}

func (s *Server) serveTemplates(w http.ResponseWriter, r *http.Request, pointType string, systemTypeID int) {
	sess := sessionFromContext(r.Context())
	scope := cache.Scope{Server: s.cfg.LERSBaseURL, PointType: pointType, SystemTypeID: systemTypeID}

	if entry, ok := s.templates.Get(r.Context(), scope); ok {
		writeJSON(w, http.StatusOK, map[string]any{"templates": entry.Templates, "cached": true})
		return
	}

	templates, err := s.enumerateTemplates(r.Context(), sess.Conn, pointType, systemTypeID)
	if err != nil {
		s.templates.Set(r.Context(), scope, cache.Entry{Status: cache.StatusError, LoadedAt: time.Now()})
		s.writeVendorError(w, r, err)
		return
	}

	status := cache.StatusLoaded
	if len(templates) == 0 {
		status = cache.StatusEmpty
	}
	s.templates.Set(r.Context(), scope, cache.Entry{Templates: templates, Status: status, LoadedAt: time.Now()})
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates, "cached": false})
}

// enumerateTemplates walks every matching measure point and unions the
// attached templates by report id. This is the expensive path the cache
// exists to avoid.
func (s *Server) enumerateTemplates(ctx context.Context, conn lers.API, pointType string, systemTypeID int) ([]lers.ReportTemplate, error) {
	points, err := conn.MeasurePoints(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var templates []lers.ReportTemplate
	for _, p := range points {
		if !matchesPointFilter(p, pointType, systemTypeID) {
			continue
		}
		reports, err := conn.ReportTemplates(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("templates for point %d: %w", p.ID, err)
		}
		for _, t := range reports {
			if _, dup := seen[t.ReportID]; dup {
				continue
			}
			seen[t.ReportID] = struct{}{}
			templates = append(templates, t)
		}
	}
	return templates, nil
}

type invalidateRequest struct {
	All          bool   `json:"all,omitempty"`
	PointType    string `json:"pointType,omitempty"`
	SystemTypeID int    `json:"systemTypeId,omitempty"`
}

func (s *Server) handleInvalidateTemplates(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "malformed invalidation request")
		return
	}

	if req.All {
		s.templates.InvalidateAll(r.Context())
	} else {
		if req.PointType != lers.PointTypeRegular && req.PointType != lers.PointTypeCommunal {
			writeError(w, "unknown point type")
			return
		}
		scope := cache.Scope{Server: s.cfg.LERSBaseURL, PointType: req.PointType, SystemTypeID: req.SystemTypeID}
		s.templates.Invalidate(r.Context(), scope)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type generateRequest struct {
	ReportID        int64   `json:"reportId"`
	MeasurePointIDs []int64 `json:"measurePointIds,omitempty"`
	NodeIDs         []int64 `json:"nodeIds,omitempty"`
	DataType        string  `json:"dataType,omitempty"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	Format          string  `json:"format,omitempty"`
}

// validate enforces the generation preconditions; the returned message is
// safe for the client.
func (g generateRequest) validate(now time.Time) (start, end time.Time, msg string) {
	if g.ReportID <= 0 {
		return start, end, "reportId is required"
	}
	if len(g.MeasurePointIDs) == 0 && len(g.NodeIDs) == 0 {
		return start, end, "at least one measure point or node id is required"
	}
	var err error
	if start, err = time.Parse(dateLayout, g.StartDate); err != nil {
		return start, end, "invalid startDate"
	}
	if end, err = time.Parse(dateLayout, g.EndDate); err != nil {
		return start, end, "invalid endDate"
	}
	if start.After(end) {
		return start, end, "startDate must not be after endDate"
	}
	if end.Sub(start) > maxDateRangeDays*24*time.Hour {
		return start, end, "date range exceeds 366 days"
	}
	if start.After(now.Add(24 * time.Hour)) {
		return start, end, "startDate is in the future"
	}
	return start, end, ""
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	sess := sessionFromContext(r.Context())

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "malformed generation request")
		return
	}
	start, end, msg := req.validate(time.Now())
	if msg != "" {
		writeError(w, msg)
		return
	}

	// The generation ceiling is independent of the transport timeout.
	ctx, cancel := context.WithTimeout(r.Context(), s.generateTimeout)
	defer cancel()

	began := time.Now()
	report, err := sess.Conn.Generate(ctx, lers.GenerateRequest{
		ReportID:        req.ReportID,
		MeasurePointIDs: req.MeasurePointIDs,
		NodeIDs:         req.NodeIDs,
		DataType:        req.DataType,
		StartDate:       start,
		EndDate:         end,
		Format:          req.Format,
	})
	metrics.GenerationDuration.Observe(time.Since(began).Seconds())

	if err != nil {
		if errors.Is(err, lers.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.Generations.WithLabelValues("timeout").Inc()
			logger.Error().
				Err(err).
				Str("event", "generate.timeout").
				Int64("report_id", req.ReportID).
				Dur("elapsed", time.Since(began)).
				Msg("report generation exceeded ceiling")
			writeTimeout(w)
			return
		}
		metrics.Generations.WithLabelValues("failure").Inc()
		s.writeVendorError(w, r, err)
		return
	}

	metrics.Generations.WithLabelValues("success").Inc()
	w.Header().Set("Content-Type", contentTypeForName(report.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	if _, err := w.Write(report.Data); err != nil {
		logger.Error().Err(err).Str("event", "generate.write_failed").Msg("failed to write report response")
	}
}

func contentTypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
