package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/bizhub-io/gamification-engine/internal/application/command"
	"github.com/bizhub-io/gamification-engine/internal/application/query"
	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

const maxBodyBytes = 1 << 20

// ─────────────────────────────────────────────────────────────────────────────
// Request DTOs
// ─────────────────────────────────────────────────────────────────────────────

type updateProgressRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Module      string `json:"module"`
	Action      string `json:"action"`

	// Increment defaults to 1 when omitted; an explicit 0 is a legal
	// metadata/target-only update.
	Increment *float64 `json:"increment,omitempty"`

	Target   *float64               `json:"target,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type checkAchievementsRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "validation_error", "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "validation_error", "malformed JSON body")
		return false
	}
	return true
}

func parseUser(raw string) (shared.UserID, error) {
	return shared.NewUserID(raw)
}

func parseWorkspace(raw string) (shared.WorkspaceID, error) {
	return shared.NewWorkspaceID(raw)
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpdateProgress records one action occurrence and, with inline
// evaluation, reports the achievements the action just unlocked.
func (a *API) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req updateProgressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID, err := parseUser(req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	workspaceID, err := parseWorkspace(req.WorkspaceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	increment := 1.0
	if req.Increment != nil {
		increment = *req.Increment
	}

	result, err := a.recordAction.Handle(r.Context(), command.RecordActionCommand{
		UserID:        userID,
		WorkspaceID:   workspaceID,
		Module:        req.Module,
		Action:        shared.Action(req.Action),
		Increment:     increment,
		Target:        req.Target,
		Metadata:      req.Metadata,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"progress":        result.Progress,
		"streak_extended": result.StreakExtended,
		"streak_reset":    result.StreakReset,
		"earned":          a.evaluateEagerly(r, userID, workspaceID),
	})
}

// evaluateEagerly runs one evaluation pass on the request path so the caller
// sees what this action just unlocked. An evaluation failure is not surfaced:
// the increment is already durable and the worker sweep re-checks out of
// band. In event-driven mode the list is always empty.
func (a *API) evaluateEagerly(r *http.Request, userID shared.UserID, workspaceID shared.WorkspaceID) []achievement.Earned {
	earned := []achievement.Earned{}
	if !a.eagerEvaluation {
		return earned
	}

	list, err := a.evaluate.Handle(r.Context(), command.EvaluateCommand{
		UserID:        userID,
		WorkspaceID:   workspaceID,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		a.logger.Warn("inline achievement evaluation failed",
			"user_id", userID.String(),
			"workspace_id", workspaceID.String(),
			"error", err,
		)
		return earned
	}
	return append(earned, list...)
}

// handleCheckAchievements runs one evaluation pass and returns what it earned.
func (a *API) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	var req checkAchievementsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID, err := parseUser(req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	workspaceID, err := parseWorkspace(req.WorkspaceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	earned, err := a.evaluate.Handle(r.Context(), command.EvaluateCommand{
		UserID:      userID,
		WorkspaceID: workspaceID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if earned == nil {
		earned = []achievement.Earned{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"earned": earned})
}

// handleInitializeAchievements seeds the default catalog.
func (a *API) handleInitializeAchievements(w http.ResponseWriter, r *http.Request) {
	seeded, err := a.initializeCatalog.Handle(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"seeded": seeded})
}

// handleGetProgress returns the caller's progress records.
func (a *API) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUser(r.URL.Query().Get("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	workspaceID, err := parseWorkspace(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items, err := a.getProgress.Handle(r.Context(), query.GetProgressQuery{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Module:      r.URL.Query().Get("module"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": items})
}

// handleGetAchievements returns the catalog with the caller's state overlaid.
func (a *API) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUser(r.URL.Query().Get("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	workspaceID, err := parseWorkspace(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := a.getAchievements.Handle(r.Context(), query.GetAchievementsQuery{
		UserID:        userID,
		WorkspaceID:   workspaceID,
		Category:      r.URL.Query().Get("category"),
		Type:          r.URL.Query().Get("type"),
		CompletedOnly: r.URL.Query().Get("completed") == "true",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetLeaderboard returns workspace standings plus the caller's rank.
func (a *API) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := parseWorkspace(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	q := query.GetLeaderboardQuery{WorkspaceID: workspaceID}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		q.Limit = limit
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		callerID, err := parseUser(raw)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		q.CallerID = callerID
	}

	result, err := a.getLeaderboard.Handle(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetDashboard returns the composed home-screen view.
func (a *API) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUser(r.URL.Query().Get("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	workspaceID, err := parseWorkspace(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := a.getDashboard.Handle(r.Context(), query.GetDashboardQuery{
		UserID:      userID,
		WorkspaceID: workspaceID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetMilestones returns nearest-incomplete recommendations.
func (a *API) handleGetMilestones(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUser(r.URL.Query().Get("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	workspaceID, err := parseWorkspace(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	q := query.NextMilestonesQuery{UserID: userID, WorkspaceID: workspaceID}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		q.Limit = limit
	}

	milestones, err := a.nextMilestones.Handle(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"milestones": milestones})
}
