package noise

import (
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/VoidMesh/terrain/internal/grid"
)

const (
	// HeightBoost counters the mean-value bias of summed octaves, which
	// otherwise keeps most samples well below 1.
	HeightBoost = 1.75

	// MinScale replaces non-positive scales.
	MinScale = 0.0001

	// biomeScaleDivisor makes biome regions much larger than height detail.
	biomeScaleDivisor = 8

	offsetRangeX = 100000
	offsetRangeY = 10000

	// basisBound is the largest magnitude a single 2D Perlin octave reaches.
	basisBound = math.Sqrt2 / 2
)

// basis is the shared single-octave lattice. Its tables are never written
// after construction, so concurrent generation tasks can read it freely.
var basis = perlin.NewPerlin(2, 2, 1, 0)

// valueNoise2D samples the basis and maps [-basisBound, basisBound] onto
// [0,1], so both ends of the unit range are reachable.
func valueNoise2D(x, y float64) float64 {
	v := (basis.Noise2D(x, y)/basisBound + 1) / 2
	return clamp01(v)
}

// HeightField is a square grid of samples in [0,1], indexed [x*Size+y].
type HeightField struct {
	Size    int
	Samples []float64
}

func NewHeightField(size int) HeightField {
	return HeightField{Size: size, Samples: make([]float64, size*size)}
}

func (h HeightField) At(x, y int) float64 {
	return h.Samples[x*h.Size+y]
}

func (h HeightField) Set(x, y int, v float64) {
	h.Samples[x*h.Size+y] = v
}

// Params bundles the process-wide noise settings.
type Params struct {
	Seed        int64
	Scale       float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
}

// Sampler is a convenience wrapper that carries Params.
type Sampler struct {
	params Params
}

func NewSampler(p Params) *Sampler {
	return &Sampler{params: p}
}

func (s *Sampler) Params() Params {
	return s.params
}

// HeightField generates the field for a chunk whose origin sits at offset.
func (s *Sampler) HeightField(size int, offset mgl64.Vec2) HeightField {
	p := s.params
	return GenerateHeightField(size, p.Seed, p.Scale, p.Octaves, p.Persistence, p.Lacunarity, offset)
}

// BiomeIndex picks a biome for coord from normalised weights.
func (s *Sampler) BiomeIndex(coord grid.ChunkCoord, weights []float64) int {
	return GenerateBiomeIndex(coord, weights, s.params.Seed, s.params.Scale)
}

// GenerateHeightField builds a fractal noise field of size×size samples.
// Output depends only on the arguments: the per-octave offsets come from a
// source seeded with seed, independent of the chunk offset.
func GenerateHeightField(size int, seed int64, scale float64, octaves int, persistence, lacunarity float64, offset mgl64.Vec2) HeightField {
	field := NewHeightField(size)
	if size <= 0 {
		return field
	}
	if octaves < 1 {
		octaves = 1
	}
	if scale <= 0 {
		scale = MinScale
	}

	rng := rand.New(rand.NewSource(seed))
	octaveOffsets := make([]mgl64.Vec2, octaves)
	maxValue := 1.0
	amplitude := 1.0
	for i := range octaveOffsets {
		octaveOffsets[i] = mgl64.Vec2{
			float64(rng.Intn(2*offsetRangeX)-offsetRangeX) + offset.X(),
			float64(rng.Intn(2*offsetRangeY)-offsetRangeY) + offset.Y(),
		}
		maxValue += amplitude
		amplitude *= persistence
	}

	half := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			amplitude = 1
			frequency := 1.0
			value := 0.0

			for _, o := range octaveOffsets {
				sampleX := (float64(x) - half + o.X()) * frequency / scale
				sampleY := (float64(y) - half + o.Y()) * frequency / scale
				value += valueNoise2D(sampleX, sampleY) * amplitude

				amplitude *= persistence
				frequency *= lacunarity
			}

			field.Set(x, y, clamp01(value/maxValue*HeightBoost))
		}
	}

	return field
}

// GenerateBiomeIndex draws one coarse sample for coord and selects a biome
// from weights. The offset is seeded from seed alone, so biome assignment
// does not follow the height-noise octave offsets.
func GenerateBiomeIndex(coord grid.ChunkCoord, weights []float64, seed int64, scale float64) int {
	if scale <= 0 {
		scale = MinScale
	}
	rng := rand.New(rand.NewSource(seed))
	ox := float64(rng.Intn(2*offsetRangeX)-offsetRangeX) + float64(coord.X)
	oy := float64(rng.Intn(2*offsetRangeY)-offsetRangeY) + float64(coord.Z)
	scale /= biomeScaleDivisor

	return SelectBiome(valueNoise2D(ox/scale, oy/scale), weights)
}

// SelectBiome walks weights in order and returns the first index whose
// cumulative sum reaches sample. Definition order matters. Index 0 is
// returned when rounding leaves no match.
func SelectBiome(sample float64, weights []float64) int {
	sum := 0.0
	for i, w := range weights {
		sum += w
		if sum >= sample {
			return i
		}
	}
	return 0
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
