package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"servertycoon/internal/auth"
	"servertycoon/internal/catalog"
	"servertycoon/internal/economy"
	"servertycoon/internal/models"
	"servertycoon/internal/store"
)

const maxBodyBytes = 1 << 20

const tokenTTL = 24 * time.Hour

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "Invalid request body")
		return false
	}
	return true
}

func accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing account")
	}
	return id, ok
}

// writeEngineError maps the validation taxonomy onto HTTP responses. The
// error message carries the user-facing context (remaining cooldown,
// required level, price).
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, economy.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, economy.ErrInsufficientLevel):
		writeError(w, http.StatusBadRequest, "INSUFFICIENT_LEVEL", err.Error())
	case errors.Is(err, economy.ErrCapacityExceeded):
		writeError(w, http.StatusBadRequest, "CAPACITY_EXCEEDED", "Server limit reached")
	case errors.Is(err, economy.ErrCooldownActive):
		writeError(w, http.StatusTooManyRequests, "COOLDOWN_ACTIVE", err.Error())
	case errors.Is(err, economy.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", "Value out of range")
	case errors.Is(err, economy.ErrAlreadyClaimed):
		writeError(w, http.StatusBadRequest, "ALREADY_CLAIMED", "Quest reward already claimed")
	case errors.Is(err, economy.ErrNotCompleted):
		writeError(w, http.StatusBadRequest, "NOT_COMPLETED", "Quest is not completed yet")
	case errors.Is(err, economy.ErrCourseActive):
		writeError(w, http.StatusBadRequest, "COURSE_ACTIVE", "A course is already in progress")
	case errors.Is(err, economy.ErrCourseNotFinished):
		writeError(w, http.StatusBadRequest, "COURSE_NOT_FINISHED", "Course is not finished yet")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", "Already exists")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// Auth
// =============================================================================

type credentialsRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Nickname == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Nickname and password required")
		return
	}
	hash, err := a.Auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to hash password")
		return
	}
	acct, err := a.Engine.CreateAccount(r.Context(), req.Nickname, hash)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "NICKNAME_TAKEN", "Nickname already taken")
			return
		}
		writeError(w, http.StatusBadRequest, "REGISTRATION_FAILED", "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": acct.ID})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acct, err := a.Engine.AccountByNickname(r.Context(), req.Nickname)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}
	if err := a.Auth.ComparePassword(acct.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}
	if acct.Banned {
		writeError(w, http.StatusForbidden, "BANNED", "Account is banned")
		return
	}
	token, err := a.Auth.GenerateToken(acct.ID, tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

// =============================================================================
// Profile & income
// =============================================================================

type profileResponse struct {
	*models.Account
	Level            int   `json:"level"`
	ExperienceToNext int64 `json:"experience_to_next"`
}

func newProfileResponse(acct *models.Account) profileResponse {
	return profileResponse{
		Account:          acct,
		Level:            economy.Level(acct.Experience),
		ExperienceToNext: economy.ExperienceToNextLevel(acct.Experience),
	}
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := a.Engine.Profile(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(acct))
}

func (a *API) handleCollectIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	result, acct, err := a.Engine.CollectIncome(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"income":  result.Income,
		"rental":  result.Rental,
		"net":     result.Net,
		"balance": acct.Balance,
	})
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := a.Engine.Account(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": acct.Activity})
}

// =============================================================================
// Servers
// =============================================================================

func (a *API) handleListServers(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := a.Engine.Account(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"servers":      acct.Servers,
		"server_limit": acct.ServerLimit,
	})
}

func (a *API) handlePurchaseServer(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "product_id required")
		return
	}
	srv, err := a.Engine.PurchaseServer(r.Context(), id, req.ProductID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, srv)
}

func (a *API) handleToggleServer(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	srv, err := a.Engine.ToggleServer(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, srv)
}

func (a *API) handleSetServerLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req struct {
		Load int `json:"load"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	srv, err := a.Engine.SetServerLoad(r.Context(), id, chi.URLParam(r, "id"), req.Load)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, srv)
}

func (a *API) handleRepairServer(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	srv, err := a.Engine.RepairServer(r.Context(), id, chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, srv)
}

func (a *API) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	if err := a.Engine.DeleteServer(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleFleet(w http.ResponseWriter, r *http.Request) {
	fleet, err := a.Engine.Fleet(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fleet": fleet})
}

// =============================================================================
// Jobs
// =============================================================================

type jobView struct {
	catalog.JobType
	CooldownSeconds  int64 `json:"cooldown_seconds"`
	Available        bool  `json:"available"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

func (a *API) handleListJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := a.Engine.Account(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	now := a.Engine.Now()
	jobs := make([]jobView, 0, len(a.Engine.Catalog().Jobs))
	for _, job := range a.Engine.Catalog().Jobs {
		remaining := economy.CooldownRemaining(acct, job.ID, now)
		jobs = append(jobs, jobView{
			JobType:          job,
			CooldownSeconds:  int64(job.Cooldown.Seconds()),
			Available:        remaining == 0,
			RemainingSeconds: int64(remaining.Seconds()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (a *API) handleStartJob(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	result, err := a.Engine.StartJob(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// Quests & achievements
// =============================================================================

func (a *API) handleListQuests(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	quests, err := a.Engine.Quests(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quests": quests})
}

func (a *API) handleClaimQuest(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	reward, err := a.Engine.ClaimQuest(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reward": reward})
}

func (a *API) handleAchievements(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := a.Engine.Account(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"unlocked": acct.Achievements,
		"catalog":  a.Engine.Catalog().Achievements,
	})
}

// =============================================================================
// Courses
// =============================================================================

type courseView struct {
	catalog.Course
	DurationSeconds int64 `json:"duration_seconds"`
}

func (a *API) handleListCourses(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := a.Engine.Account(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	courses := make([]courseView, 0, len(a.Engine.Catalog().Courses))
	for _, c := range a.Engine.Catalog().Courses {
		courses = append(courses, courseView{Course: c, DurationSeconds: int64(c.Duration.Seconds())})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"courses": courses,
		"active":  acct.Learning,
	})
}

func (a *API) handleStartCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	session, err := a.Engine.StartCourse(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleFinishCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := a.Engine.FinishCourse(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(acct))
}
