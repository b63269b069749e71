package whiteboard

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Bounds applied to untrusted item payloads.
const (
	MaxItems          = 500
	MaxIDLength       = 80
	MaxContentLength  = 10000
	MaxColorLength    = 32
	MaxAuthorLength   = 60
	MaxCoordinate     = 200000
	MaxRotation       = 360
	MaxClientUpdateAt = 10_000_000_000_000
)

// Sanitize converts an arbitrary decoded JSON value into a bounded list of
// items. Input that is not an array yields an empty list; entries that fail
// validation are dropped individually. It never panics and has no side effects.
func Sanitize(raw any) []Item {
	entries, ok := asSlice(raw)
	if !ok {
		return []Item{}
	}
	if len(entries) > MaxItems {
		entries = entries[:MaxItems]
	}
	out := make([]Item, 0, len(entries))
	for _, e := range entries {
		if it, ok := sanitizeItem(e); ok {
			out = append(out, it)
		}
	}
	return out
}

// DecodeItems parses JSON bytes into the raw form Sanitize expects.
// Malformed input decodes to nil.
func DecodeItems(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	return v
}

func sanitizeItem(e any) (Item, bool) {
	obj, ok := asObject(e)
	if !ok {
		return Item{}, false
	}
	idRaw, ok := obj["id"].(string)
	if !ok {
		return Item{}, false
	}
	id := strings.TrimSpace(idRaw)
	if id == "" || utf8.RuneCountInString(id) > MaxIDLength {
		return Item{}, false
	}
	kindRaw, _ := obj["kind"].(string)
	kind := Kind(kindRaw)
	if !kind.Valid() {
		return Item{}, false
	}
	x, ok := toFinite(obj["x"])
	if !ok {
		return Item{}, false
	}
	y, ok := toFinite(obj["y"])
	if !ok {
		return Item{}, false
	}

	it := Item{
		ID:      id,
		Kind:    kind,
		X:       clamp(x, -MaxCoordinate, MaxCoordinate),
		Y:       clamp(y, -MaxCoordinate, MaxCoordinate),
		Content: truncate(toText(obj["content"]), MaxContentLength),
	}
	if s, ok := obj["color"].(string); ok {
		c := truncate(s, MaxColorLength)
		it.Color = &c
	}
	if s, ok := obj["author"].(string); ok {
		a := truncate(s, MaxAuthorLength)
		it.Author = &a
	}
	if v, ok := toFinite(obj["rotationDegrees"]); ok {
		r := clamp(v, -MaxRotation, MaxRotation)
		it.RotationDegrees = &r
	}
	if v, ok := toFinite(obj["clientUpdatedAt"]); ok {
		ts := clamp(v, 0, MaxClientUpdateAt)
		it.ClientUpdatedAt = &ts
	}
	if b, ok := obj["deleted"].(bool); ok {
		it.Deleted = &b
	}
	return it, true
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	}
	return nil, false
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toFinite(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncate cuts s to at most n characters (runes), never splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
