package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/gmhafiz/reconcile/internal/apperr"
	"github.com/gmhafiz/reconcile/internal/domain/document"
	"github.com/gmhafiz/reconcile/internal/domain/expr"
	"github.com/gmhafiz/reconcile/internal/domain/preprocess"
	"github.com/gmhafiz/reconcile/internal/domain/recon"
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
	"github.com/gmhafiz/reconcile/internal/domain/stream"
	"github.com/gmhafiz/reconcile/internal/domain/transform"
	"github.com/gmhafiz/reconcile/internal/rates"
	"github.com/gmhafiz/reconcile/internal/telemetry"
	"github.com/gmhafiz/reconcile/internal/utility/respond"
)

// ReconcileRequest is the smallest possible stand-in for the out-of-scope
// UI collaborator spec.md §6 describes: two raw row arrays plus the
// persisted reconciliation document describing how to enrich and match
// them.
type ReconcileRequest struct {
	Document document.Document `json:"document" validate:"required"`
	Source   []wireRow         `json:"source" validate:"required"`
	Target   []wireRow         `json:"target" validate:"required"`
}

// ReconcileResponse wraps the verdict sequence with the dropped-row tally
// spec.md §7 requires alongside it.
type ReconcileResponse struct {
	Results []recon.Result `json:"results"`
	Stats   stream.Stats   `json:"stats"`
}

// ReconcileHandler wires the HTTP layer to the preprocess/recon/stream
// engines; it holds no state of its own beyond its collaborators.
type ReconcileHandler struct {
	validator *validator.Validate
	rateProv  rates.Provider
}

// NewReconcileHandler builds a ReconcileHandler.
func NewReconcileHandler(v *validator.Validate, rateProv rates.Provider) *ReconcileHandler {
	return &ReconcileHandler{validator: v, rateProv: rateProv}
}

// Reconcile runs a full batch: preprocess both sides, then match under
// cfg.SortConfiguration's strategy (in-memory or streaming, picked by
// ShouldStream).
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	if err := req.Document.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	ctx := transform.Context{Rates: h.rateProv}

	sourceSpec := preprocess.Spec{
		VirtualFields: filterBySide(req.Document.BuildVirtualFields(), "source"),
		Pipelines:     toColumnPipelines(req.Document.Pipelines("source")),
	}
	targetSpec := preprocess.Spec{
		VirtualFields: filterBySide(req.Document.BuildVirtualFields(), "target"),
		Pipelines:     toColumnPipelines(req.Document.Pipelines("target")),
	}

	sourceRows, droppedSource := enrichAll(sourceSpec, toScalarRows(req.Source), ctx)
	targetRows, droppedTarget := enrichAll(targetSpec, toScalarRows(req.Target), ctx)

	mappings := req.Document.ColumnMappings()
	cfg := req.Document.ReconConfig()

	if !stream.ShouldStream(len(sourceRows), len(targetRows)) {
		_, span := telemetry.StartReconcile(r.Context(), len(sourceRows), len(targetRows))
		results := recon.Run(sourceRows, targetRows, mappings, cfg)
		stats := statsFrom(results)
		stats.Excluded = droppedSource + droppedTarget
		telemetry.RecordOutcome(span, stats.Matched, stats.UnmatchedSource, stats.UnmatchedTarget, stats.Discrepancy)
		span.End()
		respond.JSON(w, http.StatusOK, ReconcileResponse{Results: results, Stats: stats})
		return
	}

	streamCfg := stream.Config{
		SourceSortKey: req.Document.SortConfiguration.SourceSortKey,
		TargetSortKey: req.Document.SortConfiguration.TargetSortKey,
		Tolerance:     cfg.Tolerance,
		ToleranceUnit: cfg.ToleranceUnit,
		MatchStrategy: cfg.MatchStrategy,
	}

	spanCtx, span := telemetry.StartStream(r.Context(), string(cfg.MatchStrategy))
	results, stats, err := stream.Run(spanCtx, sourceRows, targetRows, mappings, streamCfg, nil)
	telemetry.RecordOutcome(span, stats.Matched, stats.UnmatchedSource, stats.UnmatchedTarget, stats.Discrepancy)
	span.End()
	if err != nil {
		if err == apperr.ErrCancelled {
			respond.Error(w, http.StatusRequestTimeout, err)
			return
		}
		respond.Error(w, http.StatusInternalServerError, err)
		return
	}

	stats.Excluded = droppedSource + droppedTarget
	respond.JSON(w, http.StatusOK, ReconcileResponse{Results: results, Stats: stats})
}

func filterBySide(vfs []*expr.VirtualField, side string) []*expr.VirtualField {
	out := make([]*expr.VirtualField, 0, len(vfs))
	for _, vf := range vfs {
		if vf.Side == side {
			out = append(out, vf)
		}
	}
	return out
}

func enrichAll(spec preprocess.Spec, rows []scalar.Row, ctx transform.Context) ([]scalar.Row, int) {
	out := make([]scalar.Row, 0, len(rows))
	excluded := 0
	for _, row := range rows {
		outcome := preprocess.Run(spec, row, ctx)
		if outcome.Excluded {
			excluded++
			continue
		}
		out = append(out, outcome.Row)
	}
	return out, excluded
}

// toColumnPipelines groups steps by the column they read from (ColumnID),
// preserving declaration order; preprocess.Run writes each pipeline's
// result to OutputColumn when the chain sets one, else back to ColumnID
// (spec.md §4.5).
func toColumnPipelines(steps []transform.Step) []preprocess.ColumnPipeline {
	byColumn := make(map[string][]transform.Step)
	var order []string
	for _, s := range steps {
		col := s.ColumnID
		if col == "" {
			continue
		}
		if _, ok := byColumn[col]; !ok {
			order = append(order, col)
		}
		byColumn[col] = append(byColumn[col], s)
	}
	pipelines := make([]preprocess.ColumnPipeline, 0, len(order))
	for _, col := range order {
		pipelines = append(pipelines, preprocess.ColumnPipeline{Column: col, Steps: byColumn[col]})
	}
	return pipelines
}

func statsFrom(results []recon.Result) stream.Stats {
	var s stream.Stats
	for _, r := range results {
		switch r.Status {
		case recon.StatusMatched:
			s.Matched++
		case recon.StatusDiscrepancy:
			s.Discrepancy++
		case recon.StatusUnmatchedSource:
			s.UnmatchedSource++
		case recon.StatusUnmatchedTarget:
			s.UnmatchedTarget++
		}
	}
	return s
}
