package api

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/sterlixo/chilli-checker/internal/batch"
	"github.com/sterlixo/chilli-checker/internal/domain"
	"github.com/sterlixo/chilli-checker/internal/generator"
	"github.com/sterlixo/chilli-checker/internal/scoring"
	"github.com/sterlixo/chilli-checker/internal/verify"
	"github.com/sterlixo/chilli-checker/internal/webhook"
)

// Limits bounds request sizes.
type Limits struct {
	MaxBatchLines int
	MaxGenerate   int
}

// Deps are the collaborators a Handler needs. Verifier may be nil, in which
// case only the local strategy is offered. CORS is disabled when
// CORSOrigins is empty.
type Deps struct {
	Engine      *scoring.Engine
	Runner      *batch.Runner
	Generator   *generator.Generator
	Verifier    *verify.Guard
	Notifier    *webhook.Notifier
	Limits      Limits
	CORSOrigins []string
	Log         zerolog.Logger
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	Deps
	validate *validator.Validate
}

// NewHandler creates a Handler wired to the given dependencies.
func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d, validate: newValidator()}
}

// ─── POST /api/v1/classify ────────────────────────────────────────────────────

type classifyRequest struct {
	CardData string `json:"card_data" validate:"required"`
}

// Classify scores a single pipe-delimited record synchronously.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !h.bindJSON(w, r, &req) {
		return
	}
	ok(w, h.Engine.ClassifyLine(req.CardData))
}

// ─── /api/v1/batches ──────────────────────────────────────────────────────────

type batchRequest struct {
	// Input is newline-separated text; Lines is the pre-split alternative.
	Input    string   `json:"input"`
	Lines    []string `json:"lines"`
	Strategy string   `json:"strategy" validate:"omitempty,oneof=local verified"`
}

type batchResponse struct {
	Batch   domain.BatchState     `json:"batch"`
	Results []domain.RecordResult `json:"results"`
}

// RunBatch runs a batch to completion (or abort) and returns every result
// in input order together with the final counters. Only one batch runs at a
// time; a request made while another is running gets 409.
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.bindJSON(w, r, &req) {
		return
	}

	lines := req.Lines
	if req.Input != "" {
		lines = append(batch.SplitLines(req.Input), lines...)
	}
	if len(lines) > h.Limits.MaxBatchLines {
		badRequest(w, codeTooLarge, fmt.Sprintf("at most %d lines per batch", h.Limits.MaxBatchLines))
		return
	}

	strategy, err := h.strategy(req.Strategy)
	if err != nil {
		badRequest(w, codeNoVerifier, err.Error())
		return
	}

	var results []domain.RecordResult
	final, started := h.Runner.Start(r.Context(), lines, strategy, batch.Hooks{
		OnResult: func(res domain.RecordResult) { results = append(results, res) },
	})
	if !started {
		conflict(w, codeBatchRunning, fmt.Sprintf("batch '%s' is already running", final.ID))
		return
	}

	h.Notifier.NotifyAsync(final)

	if results == nil {
		results = []domain.RecordResult{}
	}
	ok(w, batchResponse{Batch: final, Results: results})
}

// CurrentBatch returns the counters of the running or most recent batch.
func (h *Handler) CurrentBatch(w http.ResponseWriter, r *http.Request) {
	ok(w, h.Runner.State())
}

// StopBatch asks the running batch to abort before its next record.
func (h *Handler) StopBatch(w http.ResponseWriter, r *http.Request) {
	if !h.Runner.Stop() {
		notFound(w, "no batch is running")
		return
	}
	h.Log.Info().Str("batch_id", h.Runner.State().ID).Msg("batch stop requested")
	ok(w, h.Runner.State())
}

func (h *Handler) strategy(name string) (batch.Strategy, error) {
	switch name {
	case "", batch.StrategyLocal:
		return batch.Local{Engine: h.Engine}, nil
	default:
		if h.Verifier == nil {
			return nil, fmt.Errorf("strategy %q needs an external verifier, none is configured", name)
		}
		return batch.Verified{Engine: h.Engine, Verifier: h.Verifier}, nil
	}
}

// ─── POST /api/v1/generate ────────────────────────────────────────────────────

type generateRequest struct {
	Prefix string `json:"prefix" validate:"required,min=6,max=32"`
	Count  int    `json:"count" validate:"required,gte=1"`
	Month  int    `json:"month" validate:"omitempty,gte=1,lte=12"`
	Year   int    `json:"year" validate:"omitempty,gte=0,lte=9999"`
	CVV    string `json:"cvv" validate:"omitempty,numeric,min=3,max=4"`
}

// Generate synthesizes records from a prefix pattern.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !h.bindJSON(w, r, &req) {
		return
	}
	if req.Count > h.Limits.MaxGenerate {
		badRequest(w, codeTooLarge, fmt.Sprintf("count must be at most %d", h.Limits.MaxGenerate))
		return
	}

	records, err := h.Generator.Generate(req.Prefix, req.Count, generator.Options{
		Month: req.Month,
		Year:  req.Year,
		CVV:   req.CVV,
	})
	if err != nil {
		badRequest(w, codeValidation, err.Error())
		return
	}
	ok(w, map[string]any{"records": records})
}
