package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/splitshare/splitshare-system/internal/middleware"
	"github.com/splitshare/splitshare-system/internal/model"
	"github.com/splitshare/splitshare-system/internal/service"
)

type groupResponse struct {
	ID           int64   `json:"id"`
	OwnerID      int64   `json:"owner_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	TotalPrice   float64 `json:"total_price"`
	SharePrice   float64 `json:"share_price"`
	SlotsTotal   int32   `json:"slots_total"`
	SlotsFilled  int32   `json:"slots_filled"`
	Status       string  `json:"status"`
	RejectReason string  `json:"reject_reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func toGroupResponse(g *model.Group) groupResponse {
	return groupResponse{
		ID:           g.ID,
		OwnerID:      g.OwnerID,
		Name:         g.Name,
		Category:     g.Category,
		TotalPrice:   float64(g.TotalPriceCents) / 100,
		SharePrice:   float64(model.SharePriceCents(g.TotalPriceCents, g.SlotsTotal)) / 100,
		SlotsTotal:   g.SlotsTotal,
		SlotsFilled:  g.SlotsFilled,
		Status:       string(g.Status),
		RejectReason: g.RejectReason,
		CreatedAt:    g.CreatedAt.Format(time.RFC3339),
	}
}

func toGroupResponses(groups []model.Group) []groupResponse {
	resp := make([]groupResponse, 0, len(groups))
	for i := range groups {
		resp = append(resp, toGroupResponse(&groups[i]))
	}
	return resp
}

type groupListResponse struct {
	Groups []groupResponse `json:"groups"`
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
}

type groupRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	TotalPrice  float64 `json:"total_price"`
	SlotsTotal  int32   `json:"slots_total"`
	Credentials string  `json:"credentials"`
}

// CreateGroup создаёт группу от имени текущего пользователя.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	group, err := h.service.CreateGroup(r.Context(), userID, service.CreateGroupInput{
		Name:        req.Name,
		Category:    req.Category,
		TotalPrice:  req.TotalPrice,
		SlotsTotal:  req.SlotsTotal,
		Credentials: req.Credentials,
	})
	if err != nil {
		h.respondError(w, err, "create group error", zap.Int64("userID", userID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toGroupResponse(group)); err != nil {
		h.logger.Error("encode group response", zap.Error(err))
	}
}

// ListGroups возвращает страницу каталога активных групп.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	groups, total, err := h.service.ListGroups(r.Context(), q.Get("search"), q.Get("category"), page, limit)
	if err != nil {
		h.respondError(w, err, "list groups error")
		return
	}

	if page < 1 {
		page = 1
	}
	h.respondJSON(w, groupListResponse{
		Groups: toGroupResponses(groups),
		Total:  total,
		Page:   page,
	})
}

// GetGroup возвращает группу по идентификатору.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		h.respondError(w, err, "get group error", zap.Int64("groupID", groupID))
		return
	}

	h.respondJSON(w, toGroupResponse(group))
}

// MyGroups возвращает группы, созданные текущим пользователем.
func (h *Handler) MyGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	groups, err := h.service.ListGroupsByOwner(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "list own groups error", zap.Int64("userID", userID))
		return
	}

	if len(groups) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.respondJSON(w, toGroupResponses(groups))
}

// UpdateGroup обновляет группу от имени владельца.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	group, err := h.service.UpdateGroup(r.Context(), groupID, userID, service.UpdateGroupInput{
		Name:        req.Name,
		Category:    req.Category,
		TotalPrice:  req.TotalPrice,
		Credentials: req.Credentials,
	})
	if err != nil {
		h.respondError(w, err, "update group error", zap.Int64("groupID", groupID))
		return
	}

	h.respondJSON(w, toGroupResponse(group))
}

// DeleteGroup удаляет группу владельца без активных участников.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteGroup(r.Context(), groupID, userID); err != nil {
		h.respondError(w, err, "delete group error", zap.Int64("groupID", groupID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetGroupCredentials возвращает доступы группы владельцу или активному участнику.
func (h *Handler) GetGroupCredentials(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	credentials, err := h.service.GroupCredentials(r.Context(), groupID, userID)
	if err != nil {
		h.respondError(w, err, "get credentials error", zap.Int64("groupID", groupID))
		return
	}

	h.respondJSON(w, map[string]string{"credentials": credentials})
}

type joinRequest struct {
	MembershipType string `json:"membership_type"`
	Days           int    `json:"days"`
}

type membershipResponse struct {
	ID              int64   `json:"id"`
	GroupID         int64   `json:"group_id"`
	Type            string  `json:"type"`
	Share           float64 `json:"share"`
	Status          string  `json:"status"`
	JoinedAt        string  `json:"joined_at"`
	NextPaymentDate string  `json:"next_payment_date,omitempty"`
	EndDate         string  `json:"end_date,omitempty"`
}

func toMembershipResponse(m *model.Membership) membershipResponse {
	resp := membershipResponse{
		ID:       m.ID,
		GroupID:  m.GroupID,
		Type:     string(m.Type),
		Share:    float64(m.ShareCents) / 100,
		Status:   string(m.Status),
		JoinedAt: m.JoinedAt.Format(time.RFC3339),
	}
	if m.NextPaymentDate != nil {
		resp.NextPaymentDate = m.NextPaymentDate.Format(time.RFC3339)
	}
	if m.EndDate != nil {
		resp.EndDate = m.EndDate.Format(time.RFC3339)
	}
	return resp
}

// JoinGroup добавляет текущего пользователя в группу.
func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	membership, err := h.service.JoinGroup(r.Context(), userID, groupID, req.MembershipType, req.Days)
	if err != nil {
		h.respondError(w, err, "join group error",
			zap.Int64("userID", userID), zap.Int64("groupID", groupID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toMembershipResponse(membership)); err != nil {
		h.logger.Error("encode membership response", zap.Error(err))
	}
}

// LeaveGroup выводит текущего пользователя из группы.
func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	membershipID, err := strconv.ParseInt(chi.URLParam(r, "membershipID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	refund, err := h.service.LeaveGroup(r.Context(), userID, membershipID)
	if err != nil {
		h.respondError(w, err, "leave group error",
			zap.Int64("userID", userID), zap.Int64("membershipID", membershipID))
		return
	}

	h.respondJSON(w, map[string]float64{"refund": refund})
}

// MyMemberships возвращает участия текущего пользователя.
func (h *Handler) MyMemberships(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	memberships, err := h.service.ListMembershipsByUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "list memberships error", zap.Int64("userID", userID))
		return
	}

	if len(memberships) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]membershipResponse, 0, len(memberships))
	for i := range memberships {
		resp = append(resp, toMembershipResponse(&memberships[i]))
	}
	h.respondJSON(w, resp)
}
