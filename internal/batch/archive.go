// SPDX-License-Identifier: MIT

package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// deliver moves successful outputs from the staging area to the requested
// destination, either as individual files or packed into one archive. Result
// paths are rewritten to their final location.
func (o *Orchestrator) deliver(req Request, summary *Summary) error {
	if summary.Succeeded == 0 {
		return nil
	}
	if err := os.MkdirAll(req.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if req.Delivery == DeliveryArchive {
		return o.deliverArchive(req, summary)
	}
	return o.deliverSeparate(req, summary)
}

func (o *Orchestrator) deliverSeparate(req Request, summary *Summary) error {
	for i := range summary.Results {
		r := &summary.Results[i]
		if !r.Success {
			continue
		}
		data, err := os.ReadFile(r.OutputPath)
		if err != nil {
			return fmt.Errorf("read staged report: %w", err)
		}
		dest := filepath.Join(req.OutputDir, filepath.Base(r.OutputPath))
		// Atomic write: a crash mid-copy never leaves a truncated report.
		if err := renameio.WriteFile(dest, data, 0o640); err != nil {
			return fmt.Errorf("deliver %s: %w", filepath.Base(dest), err)
		}
		r.OutputPath = dest
	}
	return nil
}

func (o *Orchestrator) deliverArchive(req Request, summary *Summary) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, r := range summary.Results {
		if !r.Success {
			continue
		}
		src, err := os.Open(r.OutputPath)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("read staged report: %w", err)
		}
		entry, err := zw.Create(filepath.Base(r.OutputPath))
		if err == nil {
			_, err = io.Copy(entry, src)
		}
		_ = src.Close()
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("pack %s: %w", filepath.Base(r.OutputPath), err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	dest := filepath.Join(req.OutputDir, fmt.Sprintf("reports_%s.zip", time.Now().Format("20060102_150405")))
	if err := renameio.WriteFile(dest, buf.Bytes(), 0o640); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	summary.ArchivePath = dest
	for i := range summary.Results {
		if summary.Results[i].Success {
			summary.Results[i].OutputPath = dest
		}
	}
	return nil
}
