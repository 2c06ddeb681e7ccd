// SPDX-License-Identifier: MIT

// Package proxyclient talks to a remote gateway instance over its /lersproxy
// surface. The batch orchestrator uses it to drive report generation on
// other servers without touching vendor internals.
package proxyclient

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
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/config"
	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
)

var (
	// ErrAuthFailed means the remote gateway rejected the target's credentials.
	ErrAuthFailed = errors.New("proxyclient: authentication rejected")
	// ErrUnavailable means the remote gateway could not be reached.
	ErrUnavailable = errors.New("proxyclient: remote gateway unreachable")
	// ErrRemote means the remote gateway returned an unexpected status.
	ErrRemote = errors.New("proxyclient: remote gateway error")
	// ErrTimeout means generation on the remote exceeded its ceiling.
	ErrTimeout = errors.New("proxyclient: remote generation timed out")
)

// Client is one authenticated connection to a remote gateway.
type Client struct {
	target config.ServerTarget
	base   string
	http   *http.Client
	token  string
}

// New builds a client for the given server target. Call Login before use.
func New(target config.ServerTarget, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport
	if target.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- operator opt-in per target
		}
	}
	return &Client{
		target: target,
		base:   strings.TrimRight(target.BaseURL, "/") + "/lersproxy",
		http:   &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Name returns the target's display name.
func (c *Client) Name() string {
	return c.target.Name
}

// Login authenticates with the target's stored credentials.
func (c *Client) Login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"login":    c.target.Login,
		"password": c.target.Password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: server %s", ErrAuthFailed, c.target.Name)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login returned HTTP %d", ErrRemote, res.StatusCode)
	}

	var p struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if !p.Success || p.Token == "" {
		return fmt.Errorf("%w: server %s", ErrAuthFailed, c.target.Name)
	}
	c.token = p.Token
	return nil
}

// Logout releases the remote session. Best effort.
func (c *Client) Logout(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/logout", nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if res, err := c.http.Do(req); err == nil {
		_ = res.Body.Close()
	}
}

// MeasurePoints lists points on the remote, with optional filters.
func (c *Client) MeasurePoints(ctx context.Context, pointType string, systemTypeID int) ([]lers.MeasurePoint, error) {
	q := url.Values{}
	if pointType != "" {
		q.Set("type", pointType)
	}
	if systemTypeID > 0 {
		q.Set("systemTypeId", strconv.Itoa(systemTypeID))
	}
	var p struct {
		MeasurePoints []lers.MeasurePoint `json:"measurePoints"`
	}
	if err := c.getJSON(ctx, "/measurepoints", q, &p); err != nil {
		return nil, err
	}
	return p.MeasurePoints, nil
}

// Nodes lists buildings on the remote.
func (c *Client) Nodes(ctx context.Context) ([]lers.Node, error) {
	var p struct {
		Nodes []lers.Node `json:"nodes"`
	}
	if err := c.getJSON(ctx, "/nodes", nil, &p); err != nil {
		return nil, err
	}
	return p.Nodes, nil
}

// Templates lists unique regular-point templates on the remote.
func (c *Client) Templates(ctx context.Context, systemTypeID int) ([]lers.ReportTemplate, error) {
	q := url.Values{}
	if systemTypeID > 0 {
		q.Set("systemTypeId", strconv.Itoa(systemTypeID))
	}
	return c.templates(ctx, "/reports/templates", q)
}

// ApartmentTemplates lists communal-point templates on the remote.
func (c *Client) ApartmentTemplates(ctx context.Context) ([]lers.ReportTemplate, error) {
	return c.templates(ctx, "/reports/apartment-templates", nil)
}

func (c *Client) templates(ctx context.Context, path string, q url.Values) ([]lers.ReportTemplate, error) {
	var p struct {
		Templates []lers.ReportTemplate `json:"templates"`
	}
	if err := c.getJSON(ctx, path, q, &p); err != nil {
		return nil, err
	}
	return p.Templates, nil
}

// GenerateRequest mirrors the gateway's generation body.
type GenerateRequest struct {
	ReportID        int64   `json:"reportId"`
	MeasurePointIDs []int64 `json:"measurePointIds,omitempty"`
	NodeIDs         []int64 `json:"nodeIds,omitempty"`
	DataType        string  `json:"dataType,omitempty"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	Format          string  `json:"format,omitempty"`
}

// Generate runs one report generation on the remote and returns the binary
// result. A remote 504 is surfaced as ErrTimeout so callers can distinguish
// timeouts from other failures.
func (c *Client) Generate(ctx context.Context, greq GenerateRequest) (*lers.GeneratedReport, error) {
	body, _ := json.Marshal(greq)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/reports/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: server %s", ErrTimeout, c.target.Name)
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: server %s", ErrAuthFailed, c.target.Name)
	default:
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: generate returned HTTP %d: %s", ErrRemote, res.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	name := ""
	if disposition := res.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, perr := mime.ParseMediaType(disposition); perr == nil {
			name = params["filename"]
		}
	}
	if name == "" {
		name = fmt.Sprintf("report_%d.bin", greq.ReportID)
	}
	return &lers.GeneratedReport{FileName: name, Data: data}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: server %s", ErrAuthFailed, c.target.Name)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned HTTP %d", ErrRemote, path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return nil
}
