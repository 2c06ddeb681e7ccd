// SPDX-License-Identifier: MIT

// Package lers is the client for the vendor metering server. Every call
// resolves its endpoint through the capability resolver because the vendor
// API surface differs between deployed server versions.
package lers

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/capability"
	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
)

// Options configures a vendor connection.
type Options struct {
	BaseURL  string
	Login    string
	Password string
	Timeout  time.Duration // transport timeout; zero means 30s
	Insecure bool          // skip TLS verification
}

// Connection is one authenticated handle to the vendor server. It is owned
// exclusively by the session that created it; Close releases the vendor
// token exactly once.
type Connection struct {
	base      string
	http      *http.Client
	res       *capability.Resolver
	token     string
	login     string
	version   string
	closeOnce sync.Once
}

// Connect probes the server version, selects the matching capability
// profile and authenticates. The returned connection is ready for use.
func Connect(ctx context.Context, opts Options) (*Connection, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if opts.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- operator opt-in per target
		}
	}

	c := &Connection{
		base:  strings.TrimRight(opts.BaseURL, "/"),
		login: opts.Login,
		http:  &http.Client{Timeout: timeout, Transport: transport},
	}

	if err := c.probeVersion(ctx); err != nil {
		return nil, err
	}

	profiles, preferred := capability.ProfilesFor(c.version)
	c.res = capability.NewResolver(profiles, preferred)

	if err := c.authenticate(ctx, opts.Login, opts.Password); err != nil {
		return nil, err
	}

	logger := log.WithComponentFromContext(ctx, "lers")
	logger.Info().
		Str("event", "lers.connected").
		Str("server", c.base).
		Str("server_version", c.version).
		Msg("connected to vendor server")
	return c, nil
}

// Version returns the vendor server version reported at connect time.
func (c *Connection) Version() string {
	return c.version
}

// probeVersion asks the unversioned discovery endpoint which API generation
// the server speaks. The endpoint predates the version split and is stable.
func (c *Connection) probeVersion(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/version", nil)
	if err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: "version", Err: err}
	}
	res, err := c.http.Do(req)
	if err != nil {
		return transportError("version", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return &APIError{Sentinel: ErrUnavailable, Operation: "version", Status: res.StatusCode}
	}
	var p struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: "version", Err: err}
	}
	c.version = p.Version
	return nil
}

func (c *Connection) authenticate(ctx context.Context, login, password string) error {
	m, ok := c.res.ResolveOperation("Authentication", "Login")
	if !ok {
		return &APIError{Sentinel: ErrCapability, Operation: "login"}
	}

	body, _ := json.Marshal(map[string]string{"login": login, "password": password})
	req, err := http.NewRequestWithContext(ctx, m.Method, c.base+m.Path, bytes.NewReader(body))
	if err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return transportError("login", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return &APIError{Sentinel: ErrAuthFailed, Operation: "login", Status: res.StatusCode}
	default:
		return statusError("login", res)
	}

	var p struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: "login", Err: err}
	}
	if p.Token == "" {
		return &APIError{Sentinel: ErrBadResponse, Operation: "login", Body: "empty token"}
	}
	c.token = p.Token
	return nil
}

// MeasurePoints lists all measure points visible to the login.
func (c *Connection) MeasurePoints(ctx context.Context) ([]MeasurePoint, error) {
	var p struct {
		MeasurePoints []MeasurePoint `json:"measurePoints"`
	}
	if err := c.call(ctx, "MeasurePointManager", "GetMeasurePoints", nil, nil, &p); err != nil {
		return nil, err
	}
	return p.MeasurePoints, nil
}

// MeasurePoint fetches one point by id.
func (c *Connection) MeasurePoint(ctx context.Context, id int64) (*MeasurePoint, error) {
	var p struct {
		MeasurePoint MeasurePoint `json:"measurePoint"`
	}
	params := map[string]string{"id": strconv.FormatInt(id, 10)}
	if err := c.call(ctx, "MeasurePointManager", "GetMeasurePoint", params, nil, &p); err != nil {
		return nil, err
	}
	return &p.MeasurePoint, nil
}

// Nodes lists buildings.
func (c *Connection) Nodes(ctx context.Context) ([]Node, error) {
	var p struct {
		Nodes []Node `json:"nodes"`
	}
	if err := c.call(ctx, "NodeManager", "GetNodes", nil, nil, &p); err != nil {
		return nil, err
	}
	return p.Nodes, nil
}

// ReportTemplates lists the report templates attached to one measure point.
func (c *Connection) ReportTemplates(ctx context.Context, pointID int64) ([]ReportTemplate, error) {
	var p struct {
		Reports []ReportTemplate `json:"reports"`
	}
	params := map[string]string{"id": strconv.FormatInt(pointID, 10)}
	if err := c.call(ctx, "ReportManager", "GetReports", params, nil, &p); err != nil {
		return nil, err
	}
	return p.Reports, nil
}

// Generate runs one report export and returns the binary result. The vendor
// enum values for data type and export format are resolved with fallback
// candidates because both were renamed between server generations.
func (c *Connection) Generate(ctx context.Context, greq GenerateRequest) (*GeneratedReport, error) {
	dataType, ok := c.res.ParseEnumValue("DataType", dataTypeCandidates(greq.DataType)...)
	if !ok {
		return nil, &APIError{Sentinel: ErrCapability, Operation: "generate", Body: "DataType enum unavailable"}
	}
	format, ok := c.res.ParseEnumValue("ExportFormat", formatCandidates(greq.Format)...)
	if !ok {
		return nil, &APIError{Sentinel: ErrCapability, Operation: "generate", Body: "ExportFormat enum unavailable"}
	}

	m, ok := c.res.ResolveOperation("ReportManager", "GenerateExported")
	if !ok {
		return nil, &APIError{Sentinel: ErrCapability, Operation: "generate"}
	}

	body, _ := json.Marshal(map[string]any{
		"reportId":        greq.ReportID,
		"measurePointIds": greq.MeasurePointIDs,
		"nodeIds":         greq.NodeIDs,
		"dataType":        dataType.Value,
		"startDate":       greq.StartDate.Format("2006-01-02"),
		"endDate":         greq.EndDate.Format("2006-01-02"),
		"format":          format.Value,
	})

	req, err := http.NewRequestWithContext(ctx, m.Method, c.base+m.Path, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, transportError("generate", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, statusError("generate", res)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, transportError("generate", err)
	}
	return &GeneratedReport{
		FileName: fileNameFromDisposition(res.Header.Get("Content-Disposition"), greq),
		Data:     data,
	}, nil
}

// Close logs the vendor session out. Idempotent; the token is released at
// most once even when called concurrently.
func (c *Connection) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		m, ok := c.res.ResolveOperation("Authentication", "Logout")
		if !ok {
			return // nothing to release on servers without an explicit logout
		}
		req, rerr := http.NewRequestWithContext(ctx, m.Method, c.base+m.Path, nil)
		if rerr != nil {
			err = &APIError{Sentinel: ErrBadResponse, Operation: "logout", Err: rerr}
			return
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		res, derr := c.http.Do(req)
		if derr != nil {
			err = transportError("logout", derr)
			return
		}
		_ = res.Body.Close()
	})
	return err
}

// call performs one resolved JSON API call. params substitute {name}
// placeholders in the member path; query values are appended verbatim.
func (c *Connection) call(ctx context.Context, typeName, memberName string, params map[string]string, query url.Values, out any) error {
	op := typeName + "." + memberName
	m, ok := c.res.ResolveOperation(typeName, memberName)
	if !ok {
		return &APIError{Sentinel: ErrCapability, Operation: op}
	}

	path := m.Path
	for name, val := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(val))
	}
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, m.Method, u, nil)
	if err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return statusError(op, res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	return nil
}

func transportError(op string, err error) error {
	sentinel := ErrUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		sentinel = ErrTimeout
	}
	return &APIError{Sentinel: sentinel, Operation: op, Err: err}
}

func statusError(op string, res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	sentinel := ErrUpstream
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		sentinel = ErrAuthFailed
	case res.StatusCode == http.StatusNotFound:
		sentinel = ErrNotFound
	case res.StatusCode < 500:
		sentinel = ErrBadResponse
	}
	return &APIError{Sentinel: sentinel, Operation: op, Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
}

func fileNameFromDisposition(disposition string, greq GenerateRequest) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	ext := strings.ToLower(greq.Format)
	if ext == "" {
		ext = "pdf"
	}
	return fmt.Sprintf("report_%d_%s.%s", greq.ReportID, greq.StartDate.Format("20060102"), ext)
}

func dataTypeCandidates(dataType string) []string {
	switch strings.ToLower(dataType) {
	case "hour", "hourly":
		return []string{"Hour", "Hourly"}
	case "month", "monthly":
		return []string{"Month", "Monthly"}
	default:
		return []string{"Day", "Daily"}
	}
}

func formatCandidates(format string) []string {
	switch strings.ToLower(format) {
	case "xlsx", "excel":
		return []string{"Xlsx", "Excel"}
	case "csv":
		return []string{"Csv"}
	default:
		return []string{"Pdf"}
	}
}
