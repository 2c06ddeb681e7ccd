// SPDX-License-Identifier: MIT

package lers

import "time"

// Point type filters understood by listing operations.
const (
	PointTypeRegular  = "regular"  // building-level points (ODPU)
	PointTypeCommunal = "communal" // apartment points linked to a personal account (IPU)
)

// StateNoData is the measure-point state that counts against coverage.
const StateNoData = "NoData"

// MeasurePoint is a single metered entity on the vendor server.
type MeasurePoint struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Address           string `json:"address,omitempty"`
	SystemTypeID      int    `json:"systemTypeId"`
	NodeID            int64  `json:"nodeId,omitempty"`
	PersonalAccountID int64  `json:"personalAccountId,omitempty"`
	State             string `json:"state,omitempty"`
}

// IsCommunal reports whether the point is an apartment (IPU) point; the
// vendor models this as a link to a personal account.
func (p MeasurePoint) IsCommunal() bool {
	return p.PersonalAccountID > 0
}

// Node is a physical structure aggregating apartment points.
type Node struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Address string `json:"address,omitempty"`
	Type    string `json:"type,omitempty"`
}

// ReportTemplate identifies a generatable report. ReportID is the generation
// key and is only unique per server; cross-server matching must go by title.
type ReportTemplate struct {
	ReportID      int64  `json:"reportId"`
	TemplateID    int64  `json:"templateId,omitempty"`
	TemplateTitle string `json:"templateTitle"`
	InstanceTitle string `json:"instanceTitle,omitempty"`
}

// GenerateRequest describes one report generation call.
type GenerateRequest struct {
	ReportID        int64
	MeasurePointIDs []int64
	NodeIDs         []int64
	DataType        string // "day", "hour" or "month"; resolved against the vendor enum
	StartDate       time.Time
	EndDate         time.Time
	Format          string // "pdf", "xlsx" or "csv"; resolved against the vendor enum
}

// GeneratedReport is the binary result of one generation call.
type GeneratedReport struct {
	FileName string
	Data     []byte
}
