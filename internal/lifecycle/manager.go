// Package lifecycle advances a plot's compliance status through
// administrative actions and keeps the append-only audit trail.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/landgrid/geoaudit/internal/arealock"
	"github.com/landgrid/geoaudit/internal/model"
	"github.com/landgrid/geoaudit/internal/pipeline"
	"github.com/landgrid/geoaudit/internal/store"
	"github.com/landgrid/geoaudit/pkg/dispatch"
)

// Manager executes administrative operations against single plots. All
// mutations run under the per-area lock so concurrent actions and re-scans on
// the same area serialize instead of clobbering each other.
type Manager struct {
	store      store.Store
	dispatch   dispatch.Client
	locks      *arealock.Registry
	adminEmail string

	titleCaser cases.Caser
}

// New creates a Manager. adminEmail is the fallback acting-administrator
// address for callers that carry no identity of their own.
func New(st store.Store, dc dispatch.Client, locks *arealock.Registry, adminEmail string) *Manager {
	return &Manager{
		store:      st,
		dispatch:   dc,
		locks:      locks,
		adminEmail: adminEmail,
		titleCaser: cases.Title(language.English),
	}
}

// FlagPatch is a direct administrative override. Nil fields are untouched.
type FlagPatch struct {
	Status               *model.Status `json:"status,omitempty"`
	RequiresManualReview *bool         `json:"requires_manual_review,omitempty"`
}

// ToggleFlags applies a direct override to a plot's status or review flag.
// It is an escape hatch for corrections: no transition table is enforced and
// no audit entry is appended.
func (m *Manager) ToggleFlags(ctx context.Context, areaID, plotID string, patch FlagPatch) (*model.Plot, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, eris.Wrapf(model.ErrValidation, "unknown status %q", *patch.Status)
	}

	unlock := m.locks.Lock(areaID)
	defer unlock()

	area, plot, err := m.loadPlot(ctx, areaID, plotID)
	if err != nil {
		return nil, err
	}

	if patch.RequiresManualReview != nil {
		plot.Compliance.RequiresManualReview = *patch.RequiresManualReview
	}
	if patch.Status != nil {
		plot.Compliance.Status = *patch.Status
		plot.Encroached = plot.Compliance.Status == model.StatusEncroached
	}

	if err := m.saveArea(ctx, area); err != nil {
		return nil, err
	}
	return plot, nil
}

// AssignOwner sets a plot's owner name and email. Names are trimmed and
// title-cased; an empty name resets the plot to the unassigned default.
func (m *Manager) AssignOwner(ctx context.Context, areaID, plotID, name, email string) (*model.Plot, error) {
	unlock := m.locks.Lock(areaID)
	defer unlock()

	area, plot, err := m.loadPlot(ctx, areaID, plotID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		plot.OwnerName = model.DefaultOwnerName
	} else {
		plot.OwnerName = m.titleCaser.String(name)
	}
	plot.OwnerEmail = strings.TrimSpace(email)

	if err := m.saveArea(ctx, area); err != nil {
		return nil, err
	}
	return plot, nil
}

// ActionResult reports a completed administrative action.
type ActionResult struct {
	Recipient string       `json:"recipient"`
	Status    model.Status `json:"status"`
}

// ExecuteAction performs an administrative action against a plot: resolves
// the recipient, transitions status where the action demands it, appends
// exactly one audit entry, persists, and then dispatches the report.
//
// The status mutation and audit entry commit before the dispatch call; a
// dispatch failure is surfaced but not rolled back
// (commit-then-best-effort-notify).
func (m *Manager) ExecuteAction(ctx context.Context, areaID, plotID string, action model.ActionType, adminEmail string) (*ActionResult, error) {
	if !action.Valid() {
		return nil, eris.Wrapf(model.ErrValidation, "unknown action type %q", action)
	}
	if adminEmail == "" {
		adminEmail = m.adminEmail
	}

	unlock := m.locks.Lock(areaID)
	defer unlock()

	area, plot, err := m.loadPlot(ctx, areaID, plotID)
	if err != nil {
		return nil, err
	}

	recipient := resolveRecipient(action, plot.OwnerEmail, adminEmail)
	if recipient == "" {
		// No mutation, no dispatch. Only possible when both the owner email
		// and the acting administrator's address are absent.
		return nil, eris.Wrapf(model.ErrRecipientMissing, "plot %s has no owner email and no administrator address was supplied", plotID)
	}

	if action == model.ActionIssueWarning {
		plot.Compliance.Status = model.StatusWarningSent
		plot.Encroached = false
	}

	plot.Compliance.ActionHistory = append(plot.Compliance.ActionHistory, model.ActionHistoryEntry{
		ID:         uuid.New().String(),
		ActionType: action,
		Timestamp:  time.Now().UTC(),
		Details:    fmt.Sprintf("report dispatched to %s", recipient),
	})

	if err := m.saveArea(ctx, area); err != nil {
		return nil, err
	}

	report := dispatch.Report{
		PlotID:            plot.PlotID,
		OwnerName:         plot.OwnerName,
		AreaName:          area.AreaName,
		Status:            string(plot.Compliance.Status),
		DeviationPercent:  plot.Compliance.DeviationPercent,
		SatelliteImageURL: area.SatelliteImage.URL,
	}
	if err := m.dispatch.Send(ctx, report, recipient); err != nil {
		// Known consistency gap: the status and audit entry stay committed.
		zap.L().Error("lifecycle: dispatch failed after commit",
			zap.String("area", areaID),
			zap.String("plot", plotID),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "lifecycle: dispatch report for plot %s", plotID)
	}

	zap.L().Info("lifecycle: action executed",
		zap.String("area", areaID),
		zap.String("plot", plotID),
		zap.String("action", string(action)),
		zap.String("recipient", recipient),
	)
	return &ActionResult{Recipient: recipient, Status: plot.Compliance.Status}, nil
}

// resolveRecipient picks the report recipient for an action. ISSUE_WARNING
// prefers the plot owner and falls back to the acting administrator.
func resolveRecipient(action model.ActionType, ownerEmail, adminEmail string) string {
	switch action {
	case model.ActionSendToSelf:
		return adminEmail
	case model.ActionIssueWarning:
		if ownerEmail != "" {
			return ownerEmail
		}
		return adminEmail
	}
	return ""
}

// loadPlot fetches the area and locates the plot within it.
func (m *Manager) loadPlot(ctx context.Context, areaID, plotID string) (*model.Area, *model.Plot, error) {
	area, err := m.store.GetArea(ctx, areaID)
	if err != nil {
		return nil, nil, err
	}
	plot := area.FindPlot(plotID)
	if plot == nil {
		return nil, nil, eris.Wrapf(model.ErrNotFound, "plot %s in area %s", plotID, areaID)
	}
	return area, plot, nil
}

// saveArea refreshes the derived summary and timestamps, then persists the
// full record. The summary stays a pure function of the current plot set.
func (m *Manager) saveArea(ctx context.Context, area *model.Area) error {
	area.UpdatedAt = time.Now().UTC()
	area.Summary = pipeline.Summarize(area.Plots, area.Summary.LastProcessedAt)
	return m.store.UpsertArea(ctx, area)
}
