package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/wardrobe/internal/avatar"
	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/render"
)

// parseCanvas reads w and h. Missing or zero dimensions fall back to the
// default canvas size.
func (s *Server) parseCanvas(r *http.Request) (avatar.Canvas, error) {
	var c avatar.Canvas
	for _, p := range []struct {
		key string
		dst *int
	}{{"w", &c.Width}, {"h", &c.Height}} {
		raw := r.URL.Query().Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return c, fmt.Errorf("%s must be an integer", p.key)
		}
		if err := s.validate.ValidateVar(v, fmt.Sprintf("gte=0,lte=%d", MaxCanvasSize)); err != nil {
			return c, fmt.Errorf("%s must be between 0 and %d", p.key, MaxCanvasSize)
		}
		*p.dst = v
	}
	return c, nil
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid avatar id")
		return
	}
	canvas, err := s.parseCanvas(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	layers, err := s.service.Layers(r.Context(), id, canvas)
	if err != nil {
		s.writeServiceError(w, err, "compose avatar")
		return
	}
	writeJSON(w, http.StatusOK, toLayersResponse(layers, canvas), s.logger)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid avatar id")
		return
	}
	canvas, err := s.parseCanvas(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.Render(r.Context(), id, canvas, format)
	if err != nil {
		s.writeServiceError(w, err, "render avatar")
		return
	}
	s.writeImage(w, data, format)
}

func (s *Server) writeImage(w http.ResponseWriter, data []byte, format render.Format) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write image failed", "error", err)
	}
}

type previewRequest struct {
	OwnerType string                      `json:"owner_type" validate:"required,owner_type"`
	OwnerID   int64                       `json:"owner_id" validate:"required,gt=0"`
	Slots     slotsRequest                `json:"slots"`
	Overrides map[string]placementRequest `json:"overrides" validate:"dive,keys,slot,endkeys"`
	Width     int                         `json:"width" validate:"gte=0,lte=2048"`
	Height    int                         `json:"height" validate:"gte=0,lte=2048"`
}

// handlePreview composes an unsaved selection. With a format query parameter
// it returns the rendered image instead of the draw list.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.ValidateStruct(req); err != nil {
		s.writeValidationError(w, err)
		return
	}

	overrides := make(map[domain.Slot]avatar.Override, len(req.Overrides))
	for raw, p := range req.Overrides {
		slot, _ := domain.ParseSlot(raw)
		overrides[slot] = p.override()
	}
	owner := ownerRequest{OwnerType: req.OwnerType, OwnerID: req.OwnerID}.owner()
	canvas := avatar.Canvas{Width: req.Width, Height: req.Height}

	layers, err := s.service.Preview(r.Context(), owner, req.Slots.ids(), overrides, canvas)
	if err != nil {
		s.writeServiceError(w, err, "preview avatar")
		return
	}

	rawFormat := r.URL.Query().Get("format")
	if rawFormat == "" {
		writeJSON(w, http.StatusOK, toLayersResponse(layers, canvas), s.logger)
		return
	}
	format, err := render.ParseFormat(rawFormat)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := s.service.RenderLayers(r.Context(), layers, canvas, format)
	if err != nil {
		s.writeServiceError(w, err, "render preview")
		return
	}
	s.writeImage(w, data, format)
}
