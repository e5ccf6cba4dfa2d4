package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/driver"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/logging"
	assets "github.com/VoidMesh/terrain/internal/render"
	"github.com/VoidMesh/terrain/internal/viewer"
)

const requestTimeout = 10 * time.Second

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// ChunkDetail describes a materialised chunk.
type ChunkDetail struct {
	chunk.Record
	AssetID       string           `json:"asset_id"`
	Location      [2]float64       `json:"location"`
	Vertices      int              `json:"vertices"`
	Triangles     int              `json:"triangles"`
	BlendedEdges  []grid.Direction `json:"blended_edges"`
	GeneratedInMs float64          `json:"generated_in_ms"`
}

type Handler struct {
	loop   *driver.Loop
	store  *assets.Store
	biomes BiomeSource
	hub    *assets.Hub
	logger *log.Logger
}

func NewHandler(loop *driver.Loop, store *assets.Store, biomes BiomeSource, hub *assets.Hub) *Handler {
	return &Handler{
		loop:   loop,
		store:  store,
		biomes: biomes,
		hub:    hub,
		logger: logging.WithComponent("api"),
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "voidmesh-terrain",
		"version":   "1.0.0",
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

func (h *Handler) ListChunks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var records []chunk.Record
	err := h.loop.Do(ctx, func(m *chunk.Manager, _ *viewer.Viewer) error {
		records = m.Records()
		return nil
	})
	if err != nil {
		h.renderError(w, r, statusFor(err), "failed to list chunks", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"count":  len(records),
		"chunks": records,
	})
}

func (h *Handler) GetChunk(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.parseCoord(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		rec   chunk.Record
		found bool
	)
	err := h.loop.Do(ctx, func(m *chunk.Manager, _ *viewer.Viewer) error {
		rec, found = m.Record(coord)
		return nil
	})
	if err != nil {
		h.renderError(w, r, statusFor(err), "failed to load chunk", err)
		return
	}
	if !found {
		h.renderError(w, r, http.StatusNotFound, "chunk not materialized", nil)
		return
	}

	detail := ChunkDetail{Record: rec}
	if a, err := h.store.ByCoord(coord); err == nil {
		detail.AssetID = a.ID.String()
		detail.Location = [2]float64{a.Location.X(), a.Location.Y()}
		detail.Vertices = a.VertexCount()
		detail.Triangles = a.TriangleCount()
		detail.BlendedEdges = a.Blended()
		detail.GeneratedInMs = float64(a.GeneratedIn().Microseconds()) / 1000
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, detail)
}

func (h *Handler) GetChunkMesh(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, "application/octet-stream", (*assets.Asset).EncodedMesh)
}

func (h *Handler) GetChunkTexture(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, "image/png", (*assets.Asset).TexturePNG)
}

func (h *Handler) GetChunkHeightmap(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, "image/png", (*assets.Asset).HeightmapPNG)
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, contentType string, encode func(*assets.Asset) ([]byte, error)) {
	coord, ok := h.parseCoord(w, r)
	if !ok {
		return
	}

	a, err := h.store.ByCoord(coord)
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "chunk not materialized", nil)
		return
	}

	data, err := encode(a)
	if err != nil {
		h.logger.Error("failed to encode asset", "error", err, "chunk_x", coord.X, "chunk_z", coord.Z)
		h.renderError(w, r, http.StatusInternalServerError, "failed to encode chunk", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Asset-ID", a.ID.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) RequestChunk(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.parseCoord(w, r)
	if !ok {
		return
	}

	var req struct {
		LOD *int `json:"lod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.LOD == nil {
		h.renderError(w, r, http.StatusBadRequest, "lod is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := h.loop.Do(ctx, func(m *chunk.Manager, _ *viewer.Viewer) error {
		return m.RequestChunk(coord, *req.LOD)
	})
	if err != nil {
		h.renderError(w, r, statusFor(err), "chunk request rejected", err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"coord": coord,
		"lod":   *req.LOD,
	})
}

func (h *Handler) MoveViewer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X *float64 `json:"x"`
		Z *float64 `json:"z"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.X == nil || req.Z == nil {
		h.renderError(w, r, http.StatusBadRequest, "x and z are required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pos := viewer.Position{*req.X, *req.Z}
	mapped, err := h.loop.MoveViewer(ctx, pos)
	if err != nil {
		h.renderError(w, r, statusFor(err), "viewer update rejected", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"x":      pos.X(),
		"z":      pos.Y(),
		"mapped": mapped,
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := h.loop.Stats(ctx)
	if err != nil {
		h.renderError(w, r, statusFor(err), "failed to read stats", err)
		return
	}

	response := map[string]interface{}{
		"loop":   stats,
		"assets": h.store.Len(),
	}
	if h.hub != nil {
		response["subscribers"] = h.hub.Subscribers()
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

func (h *Handler) parseCoord(w http.ResponseWriter, r *http.Request) (grid.ChunkCoord, bool) {
	x, err := strconv.Atoi(chi.URLParam(r, "x"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid chunk x coordinate", err)
		return grid.ChunkCoord{}, false
	}

	z, err := strconv.Atoi(chi.URLParam(r, "z"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid chunk z coordinate", err)
		return grid.ChunkCoord{}, false
	}

	return grid.ChunkCoord{X: x, Z: z}, true
}

// statusFor maps scheduler and loop errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chunk.ErrInvalidLOD):
		return http.StatusBadRequest
	case errors.Is(err, chunk.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, chunk.ErrClosed), errors.Is(err, chunk.ErrNotInitialized), errors.Is(err, driver.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	errorResponse := ErrorResponse{
		Error:   message,
		Code:    status,
		Message: message,
	}

	if err != nil {
		h.logger.Error("API error", "error", err, "message", message, "status", status)
		if status >= 500 {
			errorResponse.Error = "Internal server error"
		} else {
			errorResponse.Message = err.Error()
		}
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse)
}
