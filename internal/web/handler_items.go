package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/render"
	"github.com/vbonduro/wardrobe/internal/service"
)

const maxArtworkSize = 10 * 1024 * 1024 // 10 MB

// allowedImageTypes is the set of sniffable MIME types accepted for artwork.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise. TGA has no signature, so
// it is only recognised by the uploaded file name.
func allowedImageMIME(data []byte, filename string) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	if strings.HasSuffix(strings.ToLower(filename), ".tga") && len(data) >= 18 {
		return "image/x-tga", true
	}
	return "", false
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var query service.ItemQuery

	if ot, oid := q.Get("owner_type"), q.Get("owner_id"); ot != "" || oid != "" {
		req := ownerRequest{OwnerType: ot}
		id, err := strconv.ParseInt(oid, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "owner_type and owner_id must be given together")
			return
		}
		req.OwnerID = id
		if err := s.validate.ValidateStruct(req); err != nil {
			s.writeValidationError(w, err)
			return
		}
		owner := req.owner()
		query.Owner = &owner
	}
	if raw := q.Get("slot"); raw != "" {
		slot, err := domain.ParseSlot(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		query.Slot = &slot
	}
	if raw := q.Get("approved"); raw != "" {
		approved, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "approved must be a boolean")
			return
		}
		query.ApprovedOnly = approved
	}

	items, err := s.service.ListItems(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, err, "list items")
		return
	}
	writeJSON(w, http.StatusOK, toItemList(items), s.logger)
}

// customItemForm mirrors the multipart fields of a custom upload.
type customItemForm struct {
	Name      string            `json:"name" validate:"required,max=200"`
	Slot      string            `json:"slot" validate:"required,slot"`
	OwnerType string            `json:"owner_type" validate:"required,owner_type"`
	OwnerID   int64             `json:"owner_id" validate:"required,gt=0"`
	Placement *placementRequest `json:"placement"`
}

type createItemResponse struct {
	Item   *itemResponse   `json:"item"`
	Review *reviewResponse `json:"review"`
}

func parseCustomItemForm(r *http.Request) (customItemForm, error) {
	form := customItemForm{
		Name: strings.TrimSpace(r.FormValue("name")),
		Slot: r.FormValue("slot"),
	}
	form.OwnerType = r.FormValue("owner_type")
	if raw := r.FormValue("owner_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return form, err
		}
		form.OwnerID = id
	}

	// Placement is optional; any of its fields being present enables it,
	// with scale defaulting to 1.
	scale, xOff, yOff := r.FormValue("scale"), r.FormValue("x_offset"), r.FormValue("y_offset")
	if scale == "" && xOff == "" && yOff == "" {
		return form, nil
	}
	p := &placementRequest{Scale: 1}
	var err error
	if scale != "" {
		if p.Scale, err = strconv.ParseFloat(scale, 64); err != nil {
			return form, err
		}
	}
	if xOff != "" {
		if p.XOffset, err = strconv.Atoi(xOff); err != nil {
			return form, err
		}
	}
	if yOff != "" {
		if p.YOffset, err = strconv.Atoi(yOff); err != nil {
			return form, err
		}
	}
	form.Placement = p
	return form, nil
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxArtworkSize+1<<20)
	if err := r.ParseMultipartForm(maxArtworkSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	form, err := parseCustomItemForm(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed numeric field")
		return
	}
	if err := s.validate.ValidateStruct(form); err != nil {
		s.writeValidationError(w, err)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	mimeType, ok := allowedImageMIME(imageData, header.Filename)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}
	if _, err := render.DecodeBounded(imageData, mimeType); err != nil {
		if errors.Is(err, render.ErrImageTooLarge) {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("image exceeds %dx%d", render.MaxArtworkSide, render.MaxArtworkSide))
			return
		}
		s.writeError(w, http.StatusBadRequest, "image could not be decoded")
		return
	}

	slot, _ := domain.ParseSlot(form.Slot)
	in := service.CustomItem{
		Name:     form.Name,
		Type:     slot,
		Owner:    ownerRequest{OwnerType: form.OwnerType, OwnerID: form.OwnerID}.owner(),
		Image:    imageData,
		MimeType: mimeType,
	}
	if form.Placement != nil {
		o := form.Placement.override()
		in.Placement = &o
	}

	item, verdict, err := s.service.CreateCustomItem(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, err, "create item")
		return
	}
	writeJSON(w, http.StatusCreated, createItemResponse{Item: toItemResponse(item), Review: toReviewResponse(verdict)}, s.logger)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := s.service.GetItem(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "get item")
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item), s.logger)
}

func (s *Server) handleGetArtwork(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := s.service.GetItem(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "get item")
		return
	}

	reader, mimeType, err := s.artStg.Get(r.Context(), item.Filepath)
	if err != nil {
		s.logger.Error("artwork missing for item", "item_id", id, "storage_key", item.Filepath, "error", err)
		s.writeError(w, http.StatusNotFound, "artwork not found")
		return
	}
	defer closeWithLog(reader, "artwork reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write artwork failed", "item_id", id, "error", err)
	}
}

type placementUpdateRequest struct {
	// A null placement clears the override.
	Placement *placementRequest `json:"placement"`
}

func (s *Server) handleUpdatePlacement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req placementUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.ValidateStruct(req); err != nil {
		s.writeValidationError(w, err)
		return
	}

	var item *domain.Item
	if req.Placement != nil {
		o := req.Placement.override()
		item, err = s.service.UpdatePlacement(r.Context(), id, &o)
	} else {
		item, err = s.service.UpdatePlacement(r.Context(), id, nil)
	}
	if err != nil {
		s.writeServiceError(w, err, "update placement")
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item), s.logger)
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func (s *Server) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req approvalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.ValidateStruct(req); err != nil {
		s.writeValidationError(w, err)
		return
	}

	item, err := s.service.SetApproval(r.Context(), id, *req.Approved)
	if err != nil {
		s.writeServiceError(w, err, "set approval")
		return
	}
	s.logger.Info("item approval set", "item_id", id, "approved", item.Approved)
	writeJSON(w, http.StatusOK, toItemResponse(item), s.logger)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	if err := s.service.DeleteItem(r.Context(), id); err != nil {
		s.writeServiceError(w, err, "delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
