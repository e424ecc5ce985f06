package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/verity/internal/api/middleware"
	"github.com/Harshitk-cp/verity/internal/domain"
	"github.com/Harshitk-cp/verity/internal/service"
	"go.uber.org/zap"
)

// maxHypothesesPerRequest caps a single interrogation request; larger candidate
// sets should be split upstream.
const maxHypothesesPerRequest = 16

// InterrogateHandler runs the full pipeline for a request: interrogation,
// elimination, synthesis. The engine is built per request so callers can
// tighten the configured bounds without affecting each other.
type InterrogateHandler struct {
	src     domain.SourceOracle
	scoring service.ScoringStrategy
	baseCfg service.EngineConfig
	logger  *zap.Logger
}

func NewInterrogateHandler(src domain.SourceOracle, scoring service.ScoringStrategy, cfg service.EngineConfig, logger *zap.Logger) *InterrogateHandler {
	return &InterrogateHandler{
		src:     src,
		scoring: scoring,
		baseCfg: cfg,
		logger:  logger,
	}
}

type hypothesisSeed struct {
	Assumptions []string `json:"assumptions"`
	Topics      []string `json:"topics"`
	Strategy    string   `json:"strategy,omitempty"`
}

// configOverrides narrows the server's engine bounds for one request. Absent
// fields keep the configured value.
type configOverrides struct {
	MaxParallel         *int     `json:"max_parallel,omitempty"`
	GlobalDeadlineMS    *int     `json:"global_deadline_ms,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	MaxIterations       *int     `json:"max_iterations,omitempty"`
	BudgetCeiling       *float64 `json:"budget_ceiling,omitempty"`
	MaxForkDepth        *int     `json:"max_fork_depth,omitempty"`
	MinConfidence       *float64 `json:"min_confidence,omitempty"`
	MinEvidence         *int     `json:"min_evidence,omitempty"`
	MaxCost             *float64 `json:"max_cost,omitempty"`
}

func (o *configOverrides) apply(cfg service.EngineConfig) service.EngineConfig {
	if o == nil {
		return cfg
	}
	if o.MaxParallel != nil {
		cfg.MaxParallel = *o.MaxParallel
	}
	if o.GlobalDeadlineMS != nil {
		cfg.GlobalDeadline = time.Duration(*o.GlobalDeadlineMS) * time.Millisecond
	}
	if o.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.MaxIterations != nil {
		cfg.MaxIterations = *o.MaxIterations
	}
	if o.BudgetCeiling != nil {
		cfg.BudgetCeiling = *o.BudgetCeiling
	}
	if o.MaxForkDepth != nil {
		cfg.MaxForkDepth = *o.MaxForkDepth
	}
	if o.MinConfidence != nil {
		cfg.MinConfidence = *o.MinConfidence
	}
	if o.MinEvidence != nil {
		cfg.MinEvidence = *o.MinEvidence
	}
	if o.MaxCost != nil {
		cfg.MaxCost = *o.MaxCost
	}
	return cfg
}

type interrogateRequest struct {
	Hypotheses []hypothesisSeed `json:"hypotheses"`
	Config     *configOverrides `json:"config,omitempty"`
}

type hypothesisResult struct {
	ID                string                 `json:"id"`
	ParentID          string                 `json:"parent_id,omitempty"`
	ForkDepth         int                    `json:"fork_depth"`
	Status            string                 `json:"status"`
	EliminationReason string                 `json:"elimination_reason,omitempty"`
	Confidence        float64                `json:"confidence"`
	Uncertainty       string                 `json:"uncertainty"`
	QueriesIssued     int                    `json:"queries_issued"`
	CostSpent         float64                `json:"cost_spent"`
	EvidenceCount     int                    `json:"evidence_count"`
	Contradictions    []domain.Contradiction `json:"contradictions,omitempty"`
}

type interrogateResponse struct {
	Synthesis  *domain.SynthesizedState `json:"synthesis"`
	Survivors  []hypothesisResult       `json:"survivors"`
	Eliminated []hypothesisResult       `json:"eliminated"`
}

// Interrogate handles POST /v1/interrogate.
func (h *InterrogateHandler) Interrogate(w http.ResponseWriter, r *http.Request) {
	var req interrogateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Hypotheses) == 0 {
		writeError(w, http.StatusBadRequest, "at least one hypothesis is required")
		return
	}
	if len(req.Hypotheses) > maxHypothesesPerRequest {
		writeError(w, http.StatusBadRequest, "too many hypotheses in one request")
		return
	}

	cfg := req.Config.apply(h.baseCfg)
	engine, err := service.NewInterrogationEngine(h.src, h.scoring, cfg, h.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	eliminator := service.NewHypothesisEliminator(cfg, h.logger)
	synthesizer := service.NewStateSynthesizer(cfg, h.logger)

	hypotheses := make([]*domain.Hypothesis, 0, len(req.Hypotheses))
	for _, seed := range req.Hypotheses {
		hypotheses = append(hypotheses, domain.NewHypothesis(seed.Assumptions, seed.Topics, seed.Strategy))
	}

	h.logger.Info("interrogation started",
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.Int("hypotheses", len(hypotheses)))

	terminal := engine.Run(r.Context(), hypotheses)
	survivors, eliminated := eliminator.Eliminate(terminal)
	synthesis := synthesizer.Synthesize(survivors, eliminated)

	writeJSON(w, http.StatusOK, interrogateResponse{
		Synthesis:  synthesis,
		Survivors:  toResults(survivors),
		Eliminated: toResults(eliminated),
	})
}

func toResults(hypotheses []*domain.Hypothesis) []hypothesisResult {
	results := make([]hypothesisResult, 0, len(hypotheses))
	for _, h := range hypotheses {
		res := hypothesisResult{
			ID:                h.ID.String(),
			ForkDepth:         h.ForkDepth,
			Status:            string(h.Status),
			EliminationReason: h.EliminationReason,
			Confidence:        h.State.Confidence(),
			Uncertainty:       string(h.State.Uncertainty()),
			QueriesIssued:     h.State.QueriesIssued(),
			CostSpent:         h.State.CostSpent(),
			EvidenceCount:     h.State.TotalEvidence(),
			Contradictions:    h.State.Contradictions(),
		}
		if h.ParentID != nil {
			res.ParentID = h.ParentID.String()
		}
		results = append(results, res)
	}
	return results
}
