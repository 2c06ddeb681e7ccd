// SPDX-License-Identifier: MIT

package proxyclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/config"
)

func testTarget(url string) config.ServerTarget {
	return config.ServerTarget{Name: "north", BaseURL: url, Login: "batch", Password: "s3cret"}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lersproxy/login" {
			t.Errorf("login path = %q", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["login"] != "batch" || body["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "tok-1"})
	}))
	defer srv.Close()

	c := New(testTarget(srv.URL), time.Second)
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.token != "tok-1" {
		t.Errorf("token = %q, want tok-1", c.token)
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(testTarget(srv.URL), time.Second)
	if err := c.Login(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Login error = %v, want ErrAuthFailed", err)
	}
}

func TestLoginUnreachable(t *testing.T) {
	c := New(testTarget("http://127.0.0.1:1"), 200*time.Millisecond)
	if err := c.Login(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Login error = %v, want ErrUnavailable", err)
	}
}

func TestMeasurePointsSendsTokenAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("type") != "regular" || r.URL.Query().Get("systemTypeId") != "2" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"measurePoints":[{"id":1,"title":"p1"},{"id":2,"title":"p2"}]}`))
	}))
	defer srv.Close()

	c := New(testTarget(srv.URL), time.Second)
	c.token = "tok-1"

	points, err := c.MeasurePoints(context.Background(), "regular", 2)
	if err != nil {
		t.Fatalf("MeasurePoints: %v", err)
	}
	if len(points) != 2 || points[0].ID != 1 {
		t.Errorf("points = %+v", points)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ReportID != 7 || req.StartDate != "2026-02-01" {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Disposition", `attachment; filename="report_7.pdf"`)
		_, _ = w.Write([]byte("pdf-bytes"))
	}))
	defer srv.Close()

	c := New(testTarget(srv.URL), time.Second)
	c.token = "tok-1"

	report, err := c.Generate(context.Background(), GenerateRequest{
		ReportID:  7,
		NodeIDs:   []int64{3},
		StartDate: "2026-02-01",
		EndDate:   "2026-02-28",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.FileName != "report_7.pdf" {
		t.Errorf("file name = %q", report.FileName)
	}
	if string(report.Data) != "pdf-bytes" {
		t.Errorf("data = %q", report.Data)
	}
}

func TestGenerateRemoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := New(testTarget(srv.URL), time.Second)
	if _, err := c.Generate(context.Background(), GenerateRequest{ReportID: 7}); !errors.Is(err, ErrTimeout) {
		t.Errorf("Generate error = %v, want ErrTimeout", err)
	}
}

func TestGenerateRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "engine exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testTarget(srv.URL), time.Second)
	_, err := c.Generate(context.Background(), GenerateRequest{ReportID: 7})
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("Generate error = %v, want ErrRemote", err)
	}
}
