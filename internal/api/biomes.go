package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/grid"
	assets "github.com/VoidMesh/terrain/internal/render"
)

const (
	maxBiomeMapSpan = 256
	maxBiomeMapCell = 16
)

//go:generate go tool mockgen -source=biomes.go -destination=mocks/mock_biome_source.go -package=mocks

// BiomeSource resolves the active biome table and per-chunk biome indices.
// *chunk.Generator satisfies it.
type BiomeSource interface {
	Table() biome.Table
	BiomeAt(coord grid.ChunkCoord) int
}

type regionView struct {
	Name      string  `json:"name"`
	MaxHeight float64 `json:"max_height"`
	Color     string  `json:"color"`
}

type biomeView struct {
	Index            int               `json:"index"`
	Name             string            `json:"name"`
	Commonness       float64           `json:"commonness"`
	HeightMultiplier float64           `json:"height_multiplier"`
	HeightCurve      biome.HeightCurve `json:"height_curve"`
	Regions          []regionView      `json:"regions"`
}

func (h *Handler) ListBiomes(w http.ResponseWriter, r *http.Request) {
	table := h.biomes.Table()
	if table == nil {
		h.renderError(w, r, http.StatusServiceUnavailable, "biome table not configured", nil)
		return
	}

	views := make([]biomeView, 0, len(table))
	for i, d := range table {
		v := biomeView{
			Index:            i,
			Name:             d.Name,
			Commonness:       d.Commonness,
			HeightMultiplier: d.HeightMultiplier,
			HeightCurve:      d.HeightCurve,
			Regions:          make([]regionView, 0, len(d.Regions)),
		}
		for _, reg := range d.Regions {
			v.Regions = append(v.Regions, regionView{
				Name:      reg.Name,
				MaxHeight: reg.MaxHeight,
				Color:     reg.Color.Clamped().Hex(),
			})
		}
		views = append(views, v)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"count":  len(views),
		"biomes": views,
	})
}

// GetBiomeMap renders the biome index of a rectangle of chunks as PNG. The
// rectangle starts at (x, z) and spans width by height chunks; each chunk is
// drawn as a cell-sized square.
func (h *Handler) GetBiomeMap(w http.ResponseWriter, r *http.Request) {
	table := h.biomes.Table()
	if table == nil {
		h.renderError(w, r, http.StatusServiceUnavailable, "biome table not configured", nil)
		return
	}

	q := r.URL.Query()
	params := []struct {
		name     string
		def      int
		min, max int
	}{
		{name: "x", def: -32, min: -1 << 30, max: 1 << 30},
		{name: "z", def: -32, min: -1 << 30, max: 1 << 30},
		{name: "width", def: 64, min: 1, max: maxBiomeMapSpan},
		{name: "height", def: 64, min: 1, max: maxBiomeMapSpan},
		{name: "cell", def: 4, min: 1, max: maxBiomeMapCell},
	}
	values := make([]int, len(params))
	for i, p := range params {
		values[i] = p.def
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < p.min || v > p.max {
			h.renderError(w, r, http.StatusBadRequest, "invalid "+p.name+" parameter", err)
			return
		}
		values[i] = v
	}
	x0, z0, width, height, cell := values[0], values[1], values[2], values[3], values[4]

	indices := make([]int, width*height)
	for x := 0; x < width; x++ {
		for z := 0; z < height; z++ {
			indices[x*height+z] = h.biomes.BiomeAt(grid.ChunkCoord{X: x0 + x, Z: z0 + z})
		}
	}

	img, err := assets.BiomeMapTexture(indices, width, height, len(table), cell)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to render biome map", err)
		return
	}
	data, err := assets.EncodePNG(img)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to encode biome map", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
