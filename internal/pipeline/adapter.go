package pipeline

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/landgrid/geoaudit/internal/model"
)

// Normalization of the three detection payloads into canonical, plot-keyed
// values. Producers drift independently, so every field the adapter reads is
// named here once; nothing downstream touches raw JSON.

// encroachedKeyAliases lists the accepted field names for a plot key in the
// encroachment payload, checked in this order. The subsystem has shipped both.
var encroachedKeyAliases = []string{"plot_id", "id"}

// VectorPlot is one normalized vectorization entry. Key is empty when the
// subsystem supplied none; the merge engine assigns positional keys.
type VectorPlot struct {
	Key       string
	Points    []model.Point
	PixelArea float64
}

// UsageEntry is one normalized land-usage report row.
type UsageEntry struct {
	PlotKey           string
	UnusedAreaPercent float64
}

// rawVectorPlot mirrors the vectorization subsystem's wire shape.
type rawVectorPlot struct {
	ID        string      `json:"id"`
	Coords    [][]float64 `json:"coords"`
	AreaPixel float64     `json:"area_pixel"`
}

// NormalizeVectorization parses the vectorization payload. The payload must
// be a JSON list; anything else is a malformed upstream result.
func NormalizeVectorization(raw json.RawMessage) ([]VectorPlot, error) {
	var entries []rawVectorPlot
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrap(model.ErrMalformedUpstream, "vectorization result is not a list")
	}

	plots := make([]VectorPlot, 0, len(entries))
	for _, e := range entries {
		points := make([]model.Point, 0, len(e.Coords))
		for _, c := range e.Coords {
			if len(c) < 2 {
				continue
			}
			points = append(points, model.Point{c[0], c[1]})
		}
		plots = append(plots, VectorPlot{
			Key:       e.ID,
			Points:    points,
			PixelArea: e.AreaPixel,
		})
	}
	return plots, nil
}

// NormalizeEncroachment parses the encroachment payload: a list of entries
// each carrying a plot key under one of the accepted aliases. Entries that
// are bare strings are accepted as keys directly; entries with no key under
// any alias are skipped.
func NormalizeEncroachment(raw json.RawMessage) ([]string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrap(model.ErrMalformedUpstream, "encroachment result is not a list")
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			if s != "" {
				keys = append(keys, s)
			}
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(e, &obj); err != nil {
			return nil, eris.Wrap(model.ErrMalformedUpstream, "encroachment entry is neither string nor object")
		}
		if key, ok := keyFromAliases(obj, encroachedKeyAliases); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// keyFromAliases returns the first non-empty string value found under the
// aliases, in order.
func keyFromAliases(obj map[string]json.RawMessage, aliases []string) (string, bool) {
	for _, alias := range aliases {
		rawVal, ok := obj[alias]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(rawVal, &s); err != nil || s == "" {
			continue
		}
		return s, true
	}
	return "", false
}

// rawUsageReport mirrors the usage subsystem's wire shape.
type rawUsageReport struct {
	Report []struct {
		PlotID            string   `json:"plot_id"`
		UnusedAreaPercent *float64 `json:"unused_area_percent"`
	} `json:"report"`
}

// NormalizeUsage parses the usage payload. Missing numeric fields default to
// zero; rows without a plot key are dropped.
func NormalizeUsage(raw json.RawMessage) ([]UsageEntry, error) {
	var report rawUsageReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, eris.Wrap(model.ErrMalformedUpstream, "usage result is not an object with a report list")
	}

	entries := make([]UsageEntry, 0, len(report.Report))
	for _, r := range report.Report {
		if r.PlotID == "" {
			continue
		}
		var pct float64
		if r.UnusedAreaPercent != nil {
			pct = *r.UnusedAreaPercent
		}
		entries = append(entries, UsageEntry{PlotKey: r.PlotID, UnusedAreaPercent: pct})
	}
	return entries, nil
}
