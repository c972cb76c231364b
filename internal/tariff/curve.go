package tariff

import (
	"fmt"
	"sort"
)

const (
	// HourlySamples is the length of an hourly curve. Index 24 mirrors the
	// closing boundary of index 0.
	HourlySamples = 25
	// MinutesPerDay is the length of a minute curve.
	MinutesPerDay = 1440
	// LastMinute is the last valid minute-of-day index.
	LastMinute = MinutesPerDay - 1
)

// Segment is a run of equal prices over the inclusive index range [Begin, End].
type Segment struct {
	Begin int     `json:"begin"`
	End   int     `json:"end"`
	Price float64 `json:"price"`
}

// HourlyCurve holds one price per hour of the day plus the mirrored closing
// sample. It is a value type; UpdateRange returns a modified copy.
type HourlyCurve [HourlySamples]float64

// NewHourlyCurve builds a curve from exactly 25 samples.
func NewHourlyCurve(samples []float64) (HourlyCurve, error) {
	var c HourlyCurve
	if len(samples) != HourlySamples {
		return c, fmt.Errorf("hourly curve needs %d samples, got %d", HourlySamples, len(samples))
	}
	copy(c[:], samples)
	return c, nil
}

// FlatHourlyCurve returns a curve with the same price at every hour.
func FlatHourlyCurve(price float64) HourlyCurve {
	var c HourlyCurve
	for i := range c {
		c[i] = price
	}
	return c
}

// UpdateRange returns a copy of c with indices begin..end (inclusive) set to price.
// Out of range bounds are clipped.
func (c HourlyCurve) UpdateRange(begin, end int, price float64) HourlyCurve {
	begin = max(begin, 0)
	end = min(end, HourlySamples-1)
	for i := begin; i <= end; i++ {
		c[i] = price
	}
	return c
}

// Copy returns an independent copy of the curve.
func (c HourlyCurve) Copy() HourlyCurve { return c }

// Samples returns the curve as a freshly allocated slice.
func (c HourlyCurve) Samples() []float64 {
	out := make([]float64, HourlySamples)
	copy(out, c[:])
	return out
}

// Compress returns the run-length compressed hourly curve.
func (c HourlyCurve) Compress() RateCurve {
	return Compress(c[:])
}

// MinuteCurve derives the minute-resolution curve. Each hourly segment
// covering hours [h0, h1) becomes minutes [h0*60, h1*60-1]; the mirrored
// sample at index 24 does not produce minutes.
func (c HourlyCurve) MinuteCurve() RateCurve {
	hourly := Compress(c[:HourlySamples-1])
	segs := make([]Segment, 0, len(hourly.segments))
	for _, s := range hourly.segments {
		segs = append(segs, Segment{Begin: s.Begin * 60, End: (s.End+1)*60 - 1, Price: s.Price})
	}
	return RateCurve{segments: segs}
}

// RateCurve is a compressed price curve: ordered segments that tile the
// index range starting at 0 without gaps.
type RateCurve struct {
	segments []Segment
}

// Compress merges adjacent equal samples into segments.
func Compress(samples []float64) RateCurve {
	if len(samples) == 0 {
		return RateCurve{}
	}
	segs := make([]Segment, 0, 8)
	cur := Segment{Begin: 0, Price: samples[0]}
	for i := 1; i < len(samples); i++ {
		if samples[i] != cur.Price {
			cur.End = i - 1
			segs = append(segs, cur)
			cur = Segment{Begin: i, Price: samples[i]}
		}
	}
	cur.End = len(samples) - 1
	segs = append(segs, cur)
	return RateCurve{segments: segs}
}

// NewRateCurve builds a curve from explicit segments. Segments must start at
// 0, be ordered and contiguous; the curve may end short of a full day.
func NewRateCurve(segments []Segment) (RateCurve, error) {
	next := 0
	for i, s := range segments {
		if s.Begin != next {
			return RateCurve{}, fmt.Errorf("segment %d begins at %d, want %d", i, s.Begin, next)
		}
		if s.End < s.Begin {
			return RateCurve{}, fmt.Errorf("segment %d ends before it begins (%d < %d)", i, s.End, s.Begin)
		}
		next = s.End + 1
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return RateCurve{segments: out}, nil
}

// Segments returns a copy of the curve's segments.
func (r RateCurve) Segments() []Segment {
	out := make([]Segment, len(r.segments))
	copy(out, r.segments)
	return out
}

// Len is the number of segments.
func (r RateCurve) Len() int { return len(r.segments) }

// MaxEnd returns the last covered index, or -1 for an empty curve.
func (r RateCurve) MaxEnd() int {
	end := -1
	for _, s := range r.segments {
		end = max(end, s.End)
	}
	return end
}

// Lookup returns the price of the segment with the greatest Begin <= i.
// Indices past the last segment resolve to the last segment. It panics
// when no segment begins at or before i.
func (r RateCurve) Lookup(i int) float64 {
	n := sort.Search(len(r.segments), func(k int) bool { return r.segments[k].Begin > i })
	if n == 0 {
		panic(fmt.Sprintf("tariff: no rate segment at or before index %d", i))
	}
	return r.segments[n-1].Price
}

// Expand decompresses the curve back into one sample per index.
func (r RateCurve) Expand() []float64 {
	out := make([]float64, 0, r.MaxEnd()+1)
	for _, s := range r.segments {
		for i := s.Begin; i <= s.End; i++ {
			out = append(out, s.Price)
		}
	}
	return out
}
