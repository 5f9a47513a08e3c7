// Package store persists audited areas. One document per area id, owning its
// full plot list, polygon layers and audit histories — the durable contract
// read-only dashboards rely on.
package store

import (
	"context"

	"github.com/landgrid/geoaudit/internal/model"
)

// AreaFilter specifies criteria for listing areas.
type AreaFilter struct {
	Page         int  `json:"page,omitempty"`
	Limit        int  `json:"limit,omitempty"`
	Encroached   bool `json:"encroached,omitempty"`
	ManualReview bool `json:"manual_review,omitempty"`
}

// AreaPage is one page of a filtered listing. Areas carry no plot payload;
// callers fetch the full document by id.
type AreaPage struct {
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
	Pages int          `json:"pages"`
	Areas []model.Area `json:"areas"`
}

// DashboardStats are the top-level dashboard counters.
type DashboardStats struct {
	TotalAreas        int `json:"total_areas"`
	EncroachedAreas   int `json:"encroached_areas"`
	ManualReviewAreas int `json:"manual_review_areas"`
}

// Store defines the persistence interface for audited areas.
type Store interface {
	// UpsertArea creates the area or fully replaces its plots, summary and
	// image refs. Partial updates do not exist at this layer.
	UpsertArea(ctx context.Context, area *model.Area) error
	// GetArea returns the full area document, or model.ErrNotFound.
	GetArea(ctx context.Context, areaID string) (*model.Area, error)
	// DeleteArea removes the area and everything it owns, or model.ErrNotFound.
	DeleteArea(ctx context.Context, areaID string) error
	// ListAreas returns a filtered, paginated light listing.
	ListAreas(ctx context.Context, filter AreaFilter) (*AreaPage, error)
	// Stats returns the dashboard counters.
	Stats(ctx context.Context) (*DashboardStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Normalize applies listing defaults.
func (f AreaFilter) Normalize() AreaFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	return f
}
