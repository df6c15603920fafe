// Package handler содержит HTTP-обработчики API сервиса бронирования.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/gymreserve/internal/auth"
	"github.com/mmeshcher/gymreserve/internal/catalog"
	"github.com/mmeshcher/gymreserve/internal/middleware"
	"github.com/mmeshcher/gymreserve/internal/model"
	"github.com/mmeshcher/gymreserve/internal/service"
	"github.com/mmeshcher/gymreserve/internal/validation"
	"github.com/mmeshcher/gymreserve/internal/workflow"
)

const defaultDraftsLimit = 50

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Login(ctx context.Context, memberID, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Draft(ctx context.Context, sess *model.Session) (model.Draft, error)
	ConfirmFacility(ctx context.Context, sess *model.Session, facilityID string) (string, model.Draft, error)
	SubmitSchedule(ctx context.Context, sess *model.Session, form workflow.ScheduleForm) (string, model.Draft, error)
	Instruments(ctx context.Context, sess *model.Session) ([]model.Instrument, []model.Instrument, error)
	SubmitPayment(ctx context.Context, sess *model.Session, form workflow.PaymentForm) (string, model.Draft, error)
	Abandon(ctx context.Context, sess *model.Session) (string, model.Draft, error)
	ListDrafts(ctx context.Context, limit int) ([]model.StoredDraft, error)
}

// Handler реализует HTTP-обработчики API сервиса бронирования.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, am *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: am,
	}
}

type credentialsRequest struct {
	MemberID string `json:"memberId"`
	Password string `json:"password"`
}

type homeResponse struct {
	MemberID   string `json:"memberId"`
	MemberName string `json:"memberName"`
	Role       string `json:"role"`
	Home       string `json:"home"`
}

type draftResponse struct {
	Next       string      `json:"next,omitempty"`
	Draft      model.Draft `json:"draft"`
	TotalPrice int64       `json:"totalPrice"`
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type instrumentsResponse struct {
	Accounts []model.Instrument `json:"accounts"`
	Cards    []model.Instrument `json:"cards"`
}

type facilityRequest struct {
	FacilityID string `json:"facilityId"`
}

type storedDraftResponse struct {
	SessionID  string      `json:"sessionId"`
	MemberID   string      `json:"memberId"`
	Draft      model.Draft `json:"draft"`
	TotalPrice int64       `json:"totalPrice"`
	UpdatedAt  string      `json:"updatedAt"`
}

// Login выполняет вход через бэкенд и устанавливает cookie сеанса.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.MemberID == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sess, err := h.service.Login(r.Context(), req.MemberID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, service.ErrUnsupportedRole):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("login error", zap.Error(err), zap.String("member", req.MemberID))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}
		return
	}

	if err := h.authMiddleware.SetSessionCookie(w, sess.ID); err != nil {
		h.logger.Error("set session cookie error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeHome(w, sess)
}

// Logout закрывает сеанс текущего пользователя.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), sess.ID); err != nil {
		h.logger.Error("logout error", zap.Error(err), zap.String("session", sess.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Home возвращает стартовую страницу для роли текущего пользователя.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.writeHome(w, sess)
}

func (h *Handler) writeHome(w http.ResponseWriter, sess *model.Session) {
	home, err := model.HomePath(sess.Role)
	if err != nil {
		h.logger.Error("home path error", zap.Error(err), zap.String("session", sess.ID))
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	h.writeJSON(w, http.StatusOK, homeResponse{
		MemberID:   sess.MemberID,
		MemberName: sess.MemberName,
		Role:       sess.Role.String(),
		Home:       home,
	})
}

// GetDraft возвращает текущий черновик бронирования.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	d, err := h.service.Draft(r.Context(), sess)
	if err != nil {
		h.logger.Error("get draft error", zap.Error(err), zap.String("session", sess.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, draftResponse{Draft: d, TotalPrice: d.TotalPrice()})
}

// AbandonDraft сбрасывает черновик бронирования.
func (h *Handler) AbandonDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	next, d, err := h.service.Abandon(r.Context(), sess)
	h.writeStep(w, sess, next, d, err)
}

// ConfirmFacility обрабатывает шаг выбора объекта.
func (h *Handler) ConfirmFacility(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req facilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	next, d, err := h.service.ConfirmFacility(r.Context(), sess, req.FacilityID)
	h.writeStep(w, sess, next, d, err)
}

// SubmitSchedule обрабатывает шаг выбора расписания и представителя.
func (h *Handler) SubmitSchedule(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var form workflow.ScheduleForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	next, d, err := h.service.SubmitSchedule(r.Context(), sess, form)
	h.writeStep(w, sess, next, d, err)
}

// GetInstruments возвращает счета и карты текущего пользователя.
func (h *Handler) GetInstruments(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	accounts, cards, err := h.service.Instruments(r.Context(), sess)
	if err != nil {
		h.logger.Error("get instruments error", zap.Error(err), zap.String("member", sess.MemberID))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, instrumentsResponse{Accounts: accounts, Cards: cards})
}

// SubmitPayment обрабатывает шаг оплаты и отправку бронирования.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var form workflow.PaymentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	next, d, err := h.service.SubmitPayment(r.Context(), sess, form)
	h.writeStep(w, sess, next, d, err)
}

// ListDrafts возвращает незавершённые бронирования для администратора.
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	limit := defaultDraftsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		limit = n
	}

	drafts, err := h.service.ListDrafts(r.Context(), limit)
	if err != nil {
		h.logger.Error("list drafts error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(drafts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]storedDraftResponse, 0, len(drafts))
	for _, sd := range drafts {
		resp = append(resp, storedDraftResponse{
			SessionID:  sd.SessionID,
			MemberID:   sd.MemberID,
			Draft:      sd.Draft,
			TotalPrice: sd.Draft.TotalPrice(),
			UpdatedAt:  sd.UpdatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeStep(w http.ResponseWriter, sess *model.Session, next string, d model.Draft, err error) {
	if err == nil {
		h.writeJSON(w, http.StatusOK, draftResponse{Next: next, Draft: d, TotalPrice: d.TotalPrice()})
		return
	}

	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, catalog.ErrFacilityNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, workflow.ErrSubmissionInFlight):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, workflow.ErrSubmissionFailed):
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	default:
		h.logger.Error("reservation step error", zap.Error(err), zap.String("session", sess.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}
