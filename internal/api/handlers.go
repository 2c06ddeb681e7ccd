// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
	"github.com/1001011000101101/lers-plugins-sub000/internal/metrics"
	"github.com/1001011000101101/lers-plugins-sub000/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.health.ServeHealth(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.health.ServeReady(w, r)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	})
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	addr := s.clientIP(r)

	// Limit before credentials are even looked at.
	if !s.limiter.Allow(addr) {
		logger.Warn().
			Str("event", "login.rate_limited").
			Str("client", addr).
			Msg("login attempt rate limited")
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.LoginRateWindow.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "malformed login request")
		return
	}
	if req.Login == "" || req.Password == "" {
		writeError(w, "login and password are required")
		return
	}

	token, err := s.sessions.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, lers.ErrAuthFailed) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			logger.Warn().
				Str("event", "login.rejected").
				Str("login", req.Login).
				Str("client", addr).
				Msg("vendor server rejected credentials")
			writeJSON(w, http.StatusUnauthorized, loginResponse{Success: false})
			return
		}
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		logger.Error().
			Err(err).
			Str("event", "login.failed").
			Str("client", addr).
			Msg("vendor login failed")
		writeInternal(w)
		return
	}

	s.limiter.Success(addr)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.sessions.Close(r.Context(), sess.Token)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// measurePointView optionally carries the point's report templates when the
// caller asked for includeReports.
type measurePointView struct {
	lers.MeasurePoint
	Reports []lers.ReportTemplate `json:"reports,omitempty"`
}

func (s *Server) handleMeasurePoints(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	pointType := strings.ToLower(r.URL.Query().Get("type"))
	if pointType != "" && pointType != lers.PointTypeRegular && pointType != lers.PointTypeCommunal {
		writeError(w, "unknown point type")
		return
	}
	includeReports := r.URL.Query().Get("includeReports") == "true"
	systemTypeID, ok := optionalIntQuery(r, "systemTypeId")
	if !ok {
		writeError(w, "invalid systemTypeId")
		return
	}

	points, err := sess.Conn.MeasurePoints(r.Context())
	if err != nil {
		s.writeVendorError(w, r, err)
		return
	}

	views := make([]measurePointView, 0, len(points))
	for _, p := range points {
		if !matchesPointFilter(p, pointType, systemTypeID) {
			continue
		}
		view := measurePointView{MeasurePoint: p}
		if includeReports {
			reports, rerr := sess.Conn.ReportTemplates(r.Context(), p.ID)
			if rerr != nil {
				s.writeVendorError(w, r, rerr)
				return
			}
			view.Reports = reports
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, map[string]any{"measurePoints": views})
}

func matchesPointFilter(p lers.MeasurePoint, pointType string, systemTypeID int) bool {
	switch pointType {
	case lers.PointTypeRegular:
		if p.IsCommunal() {
			return false
		}
	case lers.PointTypeCommunal:
		if !p.IsCommunal() {
			return false
		}
	}
	if systemTypeID > 0 && p.SystemTypeID != systemTypeID {
		return false
	}
	return true
}

func (s *Server) handleMeasurePoint(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "invalid measure point id")
		return
	}

	point, err := sess.Conn.MeasurePoint(r.Context(), id)
	if err != nil {
		s.writeVendorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"measurePoint": point})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	points, err := sess.Conn.MeasurePoints(r.Context())
	if err != nil {
		s.writeVendorError(w, r, err)
		return
	}

	withData := 0
	for _, p := range points {
		if p.State != lers.StateNoData {
			withData++
		}
	}
	coverage := 0.0
	if len(points) > 0 {
		coverage = float64(withData) / float64(len(points)) * 100
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(points),
		"withData": withData,
		"coverage": coverage,
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	nodes, err := sess.Conn.Nodes(r.Context())
	if err != nil {
		s.writeVendorError(w, r, err)
		return
	}

	if nodeType := r.URL.Query().Get("type"); nodeType != "" {
		// The vendor client may hand out a retained slice; never filter it
		// in place.
		filtered := make([]lers.Node, 0, len(nodes))
		for _, n := range nodes {
			if strings.EqualFold(n.Type, nodeType) {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

// writeVendorError maps a vendor client failure onto the gateway's status
// codes. Auth failures bubble up as 401 so the client knows to re-login.
func (s *Server) writeVendorError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	switch {
	case errors.Is(err, lers.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, lers.ErrAuthFailed):
		logger.Warn().Err(err).Str("event", "vendor.auth_lost").Msg("vendor session no longer valid")
		writeUnauthorized(w)
	default:
		logger.Error().Err(err).Str("event", "vendor.call_failed").Msg("vendor call failed")
		writeInternal(w)
	}
}

// optionalIntQuery parses an optional positive integer query parameter.
// Returns (0, true) when absent and (0, false) on malformed input.
func optionalIntQuery(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
