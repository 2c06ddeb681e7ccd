// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/config"
	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	"github.com/1001011000101101/lers-plugins-sub000/internal/proxyclient"
)

// Source abstracts one report-generation origin: the local vendor connection
// or one remote gateway. The orchestrator treats both identically.
type Source interface {
	Name() string
	// Open prepares the source (remote login); must be called before use.
	Open(ctx context.Context) error
	// Close releases the source. Best effort.
	Close(ctx context.Context)
	// Units resolves the generation targets for the request's scope.
	Units(ctx context.Context, req Request) ([]Unit, error)
	// ResolveReport finds the report id matching the request on this source.
	// ok=false means the template does not exist here.
	ResolveReport(ctx context.Context, req Request) (int64, bool, error)
	// Generate produces one report for one unit.
	Generate(ctx context.Context, reportID int64, unit Unit, req Request) (*lers.GeneratedReport, error)
}

// localSource generates through a direct vendor connection.
type localSource struct {
	conn lers.API
}

// NewLocalSource wraps an established vendor connection as a batch source.
func NewLocalSource(conn lers.API) Source {
	return &localSource{conn: conn}
}

func (s *localSource) Name() string               { return "local" }
func (s *localSource) Open(context.Context) error { return nil }
func (s *localSource) Close(context.Context)      {}

func (s *localSource) Units(ctx context.Context, req Request) ([]Unit, error) {
	// Apartment reports target the building, not individual apartments.
	if req.PointType == lers.PointTypeCommunal {
		nodes, err := s.conn.Nodes(ctx)
		if err != nil {
			return nil, err
		}
		units := make([]Unit, 0, len(nodes))
		for _, n := range nodes {
			units = append(units, Unit{ID: n.ID, Kind: KindNode, Title: n.Title})
		}
		return units, nil
	}

	points, err := s.conn.MeasurePoints(ctx)
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(points))
	for _, p := range points {
		if p.IsCommunal() {
			continue
		}
		if req.SystemTypeID > 0 && p.SystemTypeID != req.SystemTypeID {
			continue
		}
		units = append(units, Unit{ID: p.ID, Kind: KindPoint, Title: p.Title})
	}
	return units, nil
}

func (s *localSource) ResolveReport(ctx context.Context, req Request) (int64, bool, error) {
	if req.ReportID > 0 {
		return req.ReportID, true, nil
	}
	points, err := s.conn.MeasurePoints(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, p := range points {
		templates, terr := s.conn.ReportTemplates(ctx, p.ID)
		if terr != nil {
			return 0, false, terr
		}
		if id, ok := matchTemplate(templates, req.TemplateTitle); ok {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (s *localSource) Generate(ctx context.Context, reportID int64, unit Unit, req Request) (*lers.GeneratedReport, error) {
	greq := lers.GenerateRequest{
		ReportID:  reportID,
		DataType:  req.DataType,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Format:    req.Format,
	}
	if unit.Kind == KindNode {
		greq.NodeIDs = []int64{unit.ID}
	} else {
		greq.MeasurePointIDs = []int64{unit.ID}
	}
	return s.conn.Generate(ctx, greq)
}

// remoteSource generates through a remote gateway instance.
type remoteSource struct {
	client *proxyclient.Client
}

// NewRemoteSource builds a source for one configured server target.
func NewRemoteSource(target config.ServerTarget, timeout time.Duration) Source {
	return &remoteSource{client: proxyclient.New(target, timeout)}
}

func (s *remoteSource) Name() string { return s.client.Name() }

func (s *remoteSource) Open(ctx context.Context) error {
	return s.client.Login(ctx)
}

func (s *remoteSource) Close(ctx context.Context) {
	s.client.Logout(ctx)
}

func (s *remoteSource) Units(ctx context.Context, req Request) ([]Unit, error) {
	if req.PointType == lers.PointTypeCommunal {
		nodes, err := s.client.Nodes(ctx)
		if err != nil {
			return nil, err
		}
		units := make([]Unit, 0, len(nodes))
		for _, n := range nodes {
			units = append(units, Unit{ID: n.ID, Kind: KindNode, Title: n.Title})
		}
		return units, nil
	}

	points, err := s.client.MeasurePoints(ctx, lers.PointTypeRegular, req.SystemTypeID)
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(points))
	for _, p := range points {
		units = append(units, Unit{ID: p.ID, Kind: KindPoint, Title: p.Title})
	}
	return units, nil
}

func (s *remoteSource) ResolveReport(ctx context.Context, req Request) (int64, bool, error) {
	var (
		templates []lers.ReportTemplate
		err       error
	)
	if req.PointType == lers.PointTypeCommunal {
		templates, err = s.client.ApartmentTemplates(ctx)
	} else {
		templates, err = s.client.Templates(ctx, req.SystemTypeID)
	}
	if err != nil {
		return 0, false, err
	}
	id, ok := matchTemplate(templates, req.TemplateTitle)
	return id, ok, nil
}

func (s *remoteSource) Generate(ctx context.Context, reportID int64, unit Unit, req Request) (*lers.GeneratedReport, error) {
	greq := proxyclient.GenerateRequest{
		ReportID:  reportID,
		DataType:  req.DataType,
		StartDate: req.StartDate.Format("2006-01-02"),
		EndDate:   req.EndDate.Format("2006-01-02"),
		Format:    req.Format,
	}
	if unit.Kind == KindNode {
		greq.NodeIDs = []int64{unit.ID}
	} else {
		greq.MeasurePointIDs = []int64{unit.ID}
	}
	return s.client.Generate(ctx, greq)
}

// matchTemplate finds the template whose instance title (falling back to
// template title) equals the wanted title under case folding.
func matchTemplate(templates []lers.ReportTemplate, title string) (int64, bool) {
	if title == "" {
		return 0, false
	}
	for _, t := range templates {
		if t.InstanceTitle != "" && titleEqual(t.InstanceTitle, title) {
			return t.ReportID, true
		}
	}
	for _, t := range templates {
		if titleEqual(t.TemplateTitle, title) {
			return t.ReportID, true
		}
	}
	return 0, false
}

// errReportNotFound marks the per-server "no matching title" failure.
func errReportNotFound(server string) string {
	return fmt.Sprintf("report not found on server %s", server)
}
