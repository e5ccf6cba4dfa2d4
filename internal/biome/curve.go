package biome

import "sort"

// Keyframe is one control point of a HeightCurve.
type Keyframe struct {
	Time       float64 `yaml:"time" json:"time"`
	Value      float64 `yaml:"value" json:"value"`
	InTangent  float64 `yaml:"in_tangent" json:"in_tangent"`
	OutTangent float64 `yaml:"out_tangent" json:"out_tangent"`
}

// HeightCurve remaps a normalised height through cubic Hermite segments.
// It is plain data: hand a Clone to anything that runs on another goroutine
// and nothing can mutate the keys underneath it.
type HeightCurve struct {
	Keys []Keyframe `yaml:"keys" json:"keys"`
}

// LinearCurve returns the identity curve on [0,1].
func LinearCurve() HeightCurve {
	return HeightCurve{Keys: []Keyframe{
		{Time: 0, Value: 0, InTangent: 1, OutTangent: 1},
		{Time: 1, Value: 1, InTangent: 1, OutTangent: 1},
	}}
}

// Clone returns a deep copy with keys sorted by time.
func (c HeightCurve) Clone() HeightCurve {
	keys := make([]Keyframe, len(c.Keys))
	copy(keys, c.Keys)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
	return HeightCurve{Keys: keys}
}

// Evaluate returns the curve value at t. Without keys the curve is the
// identity; outside the key range the end values are held.
func (c HeightCurve) Evaluate(t float64) float64 {
	keys := c.Keys
	switch len(keys) {
	case 0:
		return t
	case 1:
		return keys[0].Value
	}

	if t <= keys[0].Time {
		return keys[0].Value
	}
	last := keys[len(keys)-1]
	if t >= last.Time {
		return last.Value
	}

	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t }) - 1
	k0, k1 := keys[i], keys[i+1]
	dt := k1.Time - k0.Time
	if dt <= 0 {
		return k1.Value
	}

	s := (t - k0.Time) / dt
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	return h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
}
