package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blueteamacademy/sim-server-go/internal/simulation"
	"github.com/blueteamacademy/sim-server-go/internal/xp"
	"go.uber.org/zap"
)

// Client-supplied fields default to a neutral midpoint when omitted.
const defaultEffectiveness = 50

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	snap := s.controller.GetState(UserID(r.Context()))
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	snap, err := s.controller.Start(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"gameState": snap,
	})
}

type stopGameRequest struct {
	TimeRemaining *int `json:"time_remaining"`
}

func (s *Server) handleStopGame(w http.ResponseWriter, r *http.Request) {
	var req stopGameRequest
	decodeOptionalBody(r, &req)

	result, err := s.controller.Stop(r.Context(), UserID(r.Context()), req.TimeRemaining)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"gameState":         result.State,
		"final_score":       result.FinalScore,
		"session_completed": result.SessionCompleted,
		"xp_awarded":        result.XPAwarded,
		"completion_bonus":  result.CompletionBonus,
	})
}

func (s *Server) handleResetGame(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Reset(r.Context(), UserID(r.Context())); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleExitGame(w http.ResponseWriter, r *http.Request) {
	var req stopGameRequest
	decodeOptionalBody(r, &req)

	result, err := s.controller.Exit(r.Context(), UserID(r.Context()), req.TimeRemaining)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"xp_awarded": result.XPAwarded,
	})
}

type playerActionRequest struct {
	Action        string         `json:"action"`
	Target        string         `json:"target"`
	Parameters    map[string]any `json:"parameters"`
	Effectiveness *int           `json:"effectiveness"`
	Successful    *bool          `json:"successful"`
	TimeRemaining *int           `json:"time_remaining"`
}

func (s *Server) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	var req playerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	act := simulation.Action{
		Type:          req.Action,
		Target:        req.Target,
		Effectiveness: defaultEffectiveness,
		Successful:    true,
	}
	if req.Effectiveness != nil {
		act.Effectiveness = clampPercent(*req.Effectiveness)
	}
	if req.Successful != nil {
		act.Successful = *req.Successful
	}

	outcome, err := s.controller.PlayerAction(r.Context(), UserID(r.Context()), act, req.TimeRemaining)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"action":           outcome.Result.Action,
		"xpAwarded":        outcome.Result.XPAwarded,
		"accumulated_xp":   outcome.AccumulatedXP,
		"total_session_xp": outcome.SessionXP,
	})
}

type aiActionRequest struct {
	Action        string `json:"action"`
	Technique     string `json:"technique"`
	Target        string `json:"target"`
	Severity      string `json:"severity"`
	Detected      *bool  `json:"detected"`
	Successful    *bool  `json:"successful"`
	SourceIP      string `json:"sourceIP"`
	TimeRemaining *int   `json:"time_remaining"`
}

func (s *Server) handleAIAction(w http.ResponseWriter, r *http.Request) {
	var req aiActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	act := simulation.Action{
		Type:       req.Action,
		Technique:  req.Technique,
		Target:     req.Target,
		Severity:   simulation.Severity(req.Severity),
		Successful: true,
		SourceIP:   req.SourceIP,
	}
	if req.Successful != nil {
		act.Successful = *req.Successful
	}
	if req.Detected != nil {
		act.Detected = *req.Detected
	}

	outcome, err := s.controller.AIAction(r.Context(), UserID(r.Context()), act, req.TimeRemaining)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"action":           outcome.Result.Action,
		"integrity_impact": outcome.Result.IntegrityImpact,
		"xp_penalty":       outcome.Result.XPPenalty,
		"ip_blocked":       outcome.Result.IPBlocked,
		"accumulated_xp":   outcome.AccumulatedXP,
	})
}

func (s *Server) handleGameResults(w http.ResponseWriter, r *http.Request) {
	snap, stats := s.controller.Results(UserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"gameState":  snap,
		"statistics": stats,
	})
}

func (s *Server) handleXPStatus(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	status := s.controller.XPStatus(userID)

	total, err := s.economy.Total(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to read ledger total",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	} else {
		status.CurrentXP = total
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleXPLedger(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	entries, err := s.economy.Recent(r.Context(), userID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}
	if entries == nil {
		entries = []xp.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleXPRecalc(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	cached, recomputed, repaired, err := s.economy.Recalc(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "recalc failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cached":     cached,
		"recomputed": recomputed,
		"repaired":   repaired,
	})
}

type completeLevelRequest struct {
	LevelID      string `json:"level_id"`
	Difficulty   string `json:"difficulty"`
	Score        *int   `json:"score"`
	TimeSpent    *int   `json:"time_spent"`
	ExpectedTime int    `json:"expected_time"`
	FirstTime    bool   `json:"first_time"`
}

func (s *Server) handleCompleteLevel(w http.ResponseWriter, r *http.Request) {
	var req completeLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LevelID == "" || req.Difficulty == "" {
		writeError(w, http.StatusBadRequest, "level_id and difficulty are required")
		return
	}

	userID := UserID(r.Context())
	entry, result, err := s.economy.AwardLevelCompletion(r.Context(), userID, req.LevelID,
		xp.Difficulty(req.Difficulty), req.Score, req.TimeSpent, req.ExpectedTime, req.FirstTime)
	if err != nil {
		if errors.Is(err, xp.ErrDuplicateSettlement) {
			writeError(w, http.StatusConflict, "level completion already awarded")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to award XP")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"xp_earned": result.XPEarned,
		"breakdown": result.Breakdown,
		"new_total": entry.BalanceAfter,
	})
}

// writeDomainError maps the simulation error taxonomy to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simulation.ErrNotRunning):
		writeError(w, http.StatusConflict, "game not running")
	case errors.Is(err, simulation.ErrNoSession):
		writeError(w, http.StatusNotFound, "no active session")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeOptionalBody tolerates empty request bodies on endpoints whose
// parameters are all optional.
func decodeOptionalBody(r *http.Request, v any) {
	if r.Body == nil {
		return
	}
	_ = json.NewDecoder(r.Body).Decode(v)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
