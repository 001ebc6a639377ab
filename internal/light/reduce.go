package light

import (
	"github.com/rs/zerolog"
)

// Engine reduces member device snapshots into one CompositeState. It is a
// pure function of its inputs plus the immutable membership; it performs no
// I/O and has no error path. Absent or malformed attributes simply do not
// contribute to their reduction.
type Engine struct {
	members Membership
	log     zerolog.Logger
}

// NewEngine creates a reduction engine for the given membership. The logger
// is the engine's only diagnostic sink.
func NewEngine(members Membership, log zerolog.Logger) *Engine {
	return &Engine{members: members, log: log}
}

// reduction describes how one attribute key is reduced. Values are gathered
// from the on-members or from all present members, normalized by parse, and
// combined by reduce when more than one value is found. A single value is
// returned unchanged to avoid needless rounding.
type reduction struct {
	key    string
	fromOn bool
	def    any
	parse  func(any) (any, bool)
	reduce func([]any) any
}

// Fixed reducer table, evaluated uniformly in one pass. Mireds bounds are
// gathered from present members rather than on-members and carry defaults.
var reductions = []reduction{
	{key: AttrBrightness, fromOn: true, parse: parseInt, reduce: meanInt},
	{key: AttrHSColor, fromOn: true, parse: parseHS, reduce: meanHS},
	{key: AttrColorTemp, fromOn: true, parse: parseInt, reduce: meanInt},
	{key: AttrWhiteValue, fromOn: true, parse: parseInt, reduce: meanInt},
	{key: AttrMinMireds, def: DefaultMinMireds, parse: parseInt, reduce: minInt},
	{key: AttrMaxMireds, def: DefaultMaxMireds, parse: parseInt, reduce: maxInt},
}

// Recompute derives a fresh CompositeState from the given snapshots. One
// snapshot per member is expected; members with no known state are absent
// from the input. The result is complete: the caller replaces its cached
// state wholesale.
func (e *Engine) Recompute(snapshots []DeviceState) CompositeState {
	present := snapshots
	var onStates []DeviceState
	for _, st := range present {
		if st.Power == PowerOn {
			onStates = append(onStates, st)
		}
	}

	state := NewCompositeState()
	state.IsOn = len(onStates) > 0

	for _, id := range OnIDs(present) {
		if e.members.IsPrimary(id) {
			state.PrimaryOn = true
			break
		}
	}

	for _, st := range present {
		if st.Power != PowerUnavailable {
			state.Available = true
			break
		}
	}

	for _, r := range reductions {
		src := present
		if r.fromOn {
			src = onStates
		}
		vals := e.collect(src, r.key, r.parse)
		var out any
		switch len(vals) {
		case 0:
			out = r.def
		case 1:
			out = vals[0]
		default:
			out = r.reduce(vals)
		}
		state.setReduced(r.key, out)
	}

	state.EffectList = unionEffectLists(e.collect(present, AttrEffectList, parseStringList))
	state.Effect = mostCommonEffect(e.collect(onStates, AttrEffect, parseString))

	for _, v := range e.collect(present, AttrSupportedFeatures, parseMask) {
		state.SupportedFeatures |= v.(uint32)
	}
	state.SupportedFeatures &= FeatureMask

	return state
}

// collect gathers the normalized values of one attribute across states.
// Missing keys and unparseable values are skipped.
func (e *Engine) collect(states []DeviceState, key string, parse func(any) (any, bool)) []any {
	var vals []any
	for _, st := range states {
		raw, ok := st.Attributes[key]
		if !ok || raw == nil {
			continue
		}
		v, ok := parse(raw)
		if !ok {
			e.log.Debug().Str("member", string(st.ID)).Str("attr", key).Msg("Skipping unparseable attribute value")
			continue
		}
		vals = append(vals, v)
	}
	return vals
}

// setReduced stores one reduced attribute value. A nil value leaves the
// attribute at its default.
func (s *CompositeState) setReduced(key string, v any) {
	if v == nil {
		return
	}
	switch key {
	case AttrBrightness:
		n := v.(int)
		s.Brightness = &n
	case AttrHSColor:
		hs := v.(HS)
		s.HSColor = &hs
	case AttrColorTemp:
		n := v.(int)
		s.ColorTemp = &n
	case AttrWhiteValue:
		n := v.(int)
		s.WhiteValue = &n
	case AttrMinMireds:
		s.MinMireds = v.(int)
	case AttrMaxMireds:
		s.MaxMireds = v.(int)
	}
}

// unionEffectLists merges effect lists into one deduplicated list,
// preserving first-encountered order. Nil when no member reports one.
func unionEffectLists(vals []any) []string {
	if len(vals) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var union []string
	for _, v := range vals {
		for _, effect := range v.([]string) {
			if _, ok := seen[effect]; ok {
				continue
			}
			seen[effect] = struct{}{}
			union = append(union, effect)
		}
	}
	return union
}

// mostCommonEffect returns the most frequently reported effect. Ties are
// broken by first encounter in input order. Empty when none are reported.
func mostCommonEffect(vals []any) string {
	if len(vals) == 0 {
		return ""
	}
	counts := make(map[string]int)
	var order []string
	for _, v := range vals {
		effect := v.(string)
		if counts[effect] == 0 {
			order = append(order, effect)
		}
		counts[effect]++
	}
	best, bestCount := "", 0
	for _, effect := range order {
		if counts[effect] > bestCount {
			best, bestCount = effect, counts[effect]
		}
	}
	return best
}

func meanInt(vals []any) any {
	sum := 0
	for _, v := range vals {
		sum += v.(int)
	}
	return sum / len(vals)
}

func minInt(vals []any) any {
	m := vals[0].(int)
	for _, v := range vals[1:] {
		if n := v.(int); n < m {
			m = n
		}
	}
	return m
}

func maxInt(vals []any) any {
	m := vals[0].(int)
	for _, v := range vals[1:] {
		if n := v.(int); n > m {
			m = n
		}
	}
	return m
}

func meanHS(vals []any) any {
	var hue, sat float64
	for _, v := range vals {
		hs := v.(HS)
		hue += hs.Hue
		sat += hs.Sat
	}
	n := float64(len(vals))
	return HS{Hue: hue / n, Sat: sat / n}
}

// parseInt accepts the integer shapes JSON decoding and native callers
// produce. Fractional floats are truncated.
func parseInt(raw any) (any, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return nil, false
	}
}

func parseFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func parseHS(raw any) (any, bool) {
	switch v := raw.(type) {
	case HS:
		return v, true
	case [2]float64:
		return HS{Hue: v[0], Sat: v[1]}, true
	case []float64:
		if len(v) < 2 {
			return nil, false
		}
		return HS{Hue: v[0], Sat: v[1]}, true
	case []any:
		if len(v) < 2 {
			return nil, false
		}
		hue, ok := parseFloat(v[0])
		if !ok {
			return nil, false
		}
		sat, ok := parseFloat(v[1])
		if !ok {
			return nil, false
		}
		return HS{Hue: hue, Sat: sat}, true
	default:
		return nil, false
	}
}

func parseString(raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil, false
	}
	return s, true
}

func parseStringList(raw any) (any, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			list = append(list, s)
		}
		return list, true
	default:
		return nil, false
	}
}

func parseMask(raw any) (any, bool) {
	switch v := raw.(type) {
	case uint32:
		return v, true
	case int:
		if v < 0 {
			return nil, false
		}
		return uint32(v), true
	case int64:
		if v < 0 {
			return nil, false
		}
		return uint32(v), true
	case float64:
		if v < 0 {
			return nil, false
		}
		return uint32(v), true
	default:
		return nil, false
	}
}
