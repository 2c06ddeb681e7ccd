// SPDX-License-Identifier: MIT

// Package batch fans one logical "generate N reports" request out across the
// local vendor source and any number of remote gateway instances, then
// aggregates the partial results into one consolidated deliverable.
package batch

import (
	"time"

	"golang.org/x/text/cases"
)

// State tracks a batch through its lifecycle.
type State string

const (
	StateResolving     State = "resolving"
	StateFanningOut    State = "fanning_out"
	StateAggregating   State = "aggregating"
	StatePackaging     State = "packaging"
	StateDone          State = "done"
	StateCancelled     State = "cancelled"
	StateFailedToStart State = "failed_to_start"
)

// Delivery selects how successful outputs are delivered.
type Delivery string

const (
	// DeliverySeparate copies each successful file to the destination as-is.
	DeliverySeparate Delivery = "separate"
	// DeliveryArchive packs all successful files into one timestamped zip.
	DeliveryArchive Delivery = "archive"
)

// Kind distinguishes generation targets.
type Kind string

const (
	KindPoint Kind = "point"
	KindNode  Kind = "node"
)

// Unit is one entity to generate a report for.
type Unit struct {
	ID    int64
	Kind  Kind
	Title string
}

// Request describes one batch.
type Request struct {
	// TemplateTitle selects the report template per server; matching goes by
	// instance title falling back to template title, case-folded. Report ids
	// are never compared across servers because the same title can map to a
	// different id elsewhere.
	TemplateTitle string
	// ReportID shortcuts template matching on the local source only.
	ReportID int64

	PointType    string // lers.PointTypeRegular or lers.PointTypeCommunal
	SystemTypeID int

	DataType  string
	StartDate time.Time
	EndDate   time.Time
	Format    string

	Delivery  Delivery
	OutputDir string
}

// Result records the outcome for one generation unit. Immutable once
// appended to a summary.
type Result struct {
	Server     string `json:"server"`
	Unit       Unit   `json:"unit"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	TimedOut   bool   `json:"timedOut,omitempty"`
	OutputPath string `json:"outputPath,omitempty"`
	Error      string `json:"error,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
}

// maxExampleErrors bounds the error excerpt in a summary.
const maxExampleErrors = 5

// Summary is the aggregated outcome of one batch.
type Summary struct {
	BatchID    string    `json:"batchId"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	Results       []Result `json:"results"`
	ArchivePath   string   `json:"archivePath,omitempty"`
	ExampleErrors []string `json:"exampleErrors,omitempty"`
}

// tally derives the counts from the merged result list; counts are never
// incremented during fan-out.
func (s *Summary) tally() {
	s.Total = len(s.Results)
	s.Succeeded, s.Failed, s.Skipped = 0, 0, 0
	s.ExampleErrors = s.ExampleErrors[:0]
	for _, r := range s.Results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Success:
			s.Succeeded++
		default:
			s.Failed++
			if len(s.ExampleErrors) < maxExampleErrors && r.Error != "" {
				s.ExampleErrors = append(s.ExampleErrors, r.Error)
			}
		}
	}
}

var foldCaser = cases.Fold()

// titleEqual compares template titles with Unicode case folding; titles are
// commonly Cyrillic and simple ASCII lowering is not enough.
func titleEqual(a, b string) bool {
	return foldCaser.String(a) == foldCaser.String(b)
}
