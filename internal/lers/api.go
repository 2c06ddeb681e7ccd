// SPDX-License-Identifier: MIT

package lers

import "context"

// API is the vendor operations surface used by the gateway and the batch
// orchestrator. *Connection implements it; tests substitute fakes.
type API interface {
	MeasurePoints(ctx context.Context) ([]MeasurePoint, error)
	MeasurePoint(ctx context.Context, id int64) (*MeasurePoint, error)
	Nodes(ctx context.Context) ([]Node, error)
	ReportTemplates(ctx context.Context, pointID int64) ([]ReportTemplate, error)
	Generate(ctx context.Context, req GenerateRequest) (*GeneratedReport, error)
	Close(ctx context.Context) error
	Version() string
}

var _ API = (*Connection)(nil)
