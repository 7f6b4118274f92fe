package transform

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// fields is a raw remote record decoded one level deep. Every accessor is
// total: a missing, null or mistyped value yields the zero value.
type fields map[string]json.RawMessage

func decode(raw json.RawMessage) fields {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return fields{}
	}
	return f
}

func isNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// scalar decodes a JSON string, number or bool, keeping numbers exact
func scalar(v json.RawMessage) interface{} {
	if isNull(v) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

func (f fields) str(key string) string {
	switch v := scalar(f[key]).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func (f fields) int64(key string) int64 {
	var s string
	switch v := scalar(f[key]).(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d.IntPart()
	}
	return 0
}

func (f fields) int(key string) int {
	return int(f.int64(key))
}

func (f fields) bool(key string) bool {
	b, _ := scalar(f[key]).(bool)
	return b
}

func (f fields) money(key string) decimal.Decimal {
	d, _ := parseMoney(f[key])
	return d
}

// time parses an RFC 3339 timestamp keeping its original offset
func (f fields) time(key string) *time.Time {
	s, ok := scalar(f[key]).(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func (f fields) object(key string) fields {
	return decode(f[key])
}

func (f fields) list(key string) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(f[key], &items); err != nil || items == nil {
		return []json.RawMessage{}
	}
	return items
}

func (f fields) strings(key string) []string {
	var items []string
	if err := json.Unmarshal(f[key], &items); err != nil || items == nil {
		return []string{}
	}
	return items
}

// parseMoney accepts a decimal string or a JSON number
func parseMoney(v json.RawMessage) (decimal.Decimal, bool) {
	var s string
	switch x := scalar(v).(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// splitTags accepts the platform's comma separated tag string or a JSON array
func splitTags(v json.RawMessage) []string {
	var raw []string
	switch x := scalar(v).(type) {
	case string:
		raw = strings.Split(x, ",")
	default:
		if err := json.Unmarshal(v, &raw); err != nil {
			return []string{}
		}
	}
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
