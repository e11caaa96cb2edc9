package web

import (
	"net/http"

	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/service"
)

type createAvatarRequest struct {
	OwnerType string       `json:"owner_type" validate:"required,owner_type"`
	OwnerID   int64        `json:"owner_id" validate:"required,gt=0"`
	Slots     slotsRequest `json:"slots"`
}

func (s *Server) handleCreateAvatar(w http.ResponseWriter, r *http.Request) {
	var req createAvatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.ValidateStruct(req); err != nil {
		s.writeValidationError(w, err)
		return
	}

	owner := ownerRequest{OwnerType: req.OwnerType, OwnerID: req.OwnerID}.owner()
	a, err := s.service.CreateAvatar(r.Context(), owner, req.Slots.ids())
	if err != nil {
		s.writeServiceError(w, err, "create avatar")
		return
	}
	writeJSON(w, http.StatusCreated, toAvatarResponse(a), s.logger)
}

func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid avatar id")
		return
	}
	a, err := s.service.GetAvatar(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "get avatar")
		return
	}
	writeJSON(w, http.StatusOK, toAvatarResponse(a), s.logger)
}

func (s *Server) handleGetOwnerAvatar(w http.ResponseWriter, r *http.Request) {
	ownerType, err := domain.ParseOwnerType(r.PathValue("type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ownerID, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid owner id")
		return
	}
	a, err := s.service.GetAvatarByOwner(r.Context(), domain.Owner{Type: ownerType, ID: ownerID})
	if err != nil {
		s.writeServiceError(w, err, "get owner avatar")
		return
	}
	writeJSON(w, http.StatusOK, toAvatarResponse(a), s.logger)
}

// updateAvatarRequest sets the listed slots and empties those in clear.
// Slots that appear in neither keep their item.
type updateAvatarRequest struct {
	Set   slotsRequest `json:"set"`
	Clear []string     `json:"clear" validate:"dive,slot"`
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid avatar id")
		return
	}
	var req updateAvatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.ValidateStruct(req); err != nil {
		s.writeValidationError(w, err)
		return
	}

	u := service.AvatarUpdate{Set: req.Set.ids()}
	for _, raw := range req.Clear {
		slot, _ := domain.ParseSlot(raw)
		u.Clear = append(u.Clear, slot)
	}

	a, err := s.service.UpdateAvatar(r.Context(), id, u)
	if err != nil {
		s.writeServiceError(w, err, "update avatar")
		return
	}
	writeJSON(w, http.StatusOK, toAvatarResponse(a), s.logger)
}

func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid avatar id")
		return
	}
	if err := s.service.DeleteAvatar(r.Context(), id); err != nil {
		s.writeServiceError(w, err, "delete avatar")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
