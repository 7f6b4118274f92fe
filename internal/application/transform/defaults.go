package transform

import (
	"bytes"
	"encoding/json"
)

// FieldKind selects how a nullable field is normalized
type FieldKind int

const (
	// KindMoney fields become a decimal string, "0" when absent or invalid
	KindMoney FieldKind = iota + 1
	// KindCollection fields become a JSON array, [] when absent
	KindCollection
	// KindObject fields become a JSON object, {} when absent
	KindObject
	// KindTags fields become a JSON array of trimmed strings, [] when absent
	KindTags
)

// FieldDefault is one row of a default table
type FieldDefault struct {
	Field string
	Kind  FieldKind
}

// DefaultTable lists the nullable fields of one wire shape
type DefaultTable []FieldDefault

var (
	OrderDefaults = DefaultTable{
		{"total_price", KindMoney},
		{"subtotal_price", KindMoney},
		{"total_tax", KindMoney},
		{"total_discounts", KindMoney},
		{"line_items", KindCollection},
		{"customer", KindObject},
		{"tags", KindTags},
	}
	LineItemDefaults = DefaultTable{
		{"price", KindMoney},
	}
	CustomerDefaults = DefaultTable{
		{"total_spent", KindMoney},
		{"addresses", KindCollection},
		{"default_address", KindObject},
		{"tags", KindTags},
	}
	ProductDefaults = DefaultTable{
		{"variants", KindCollection},
		{"options", KindCollection},
		{"images", KindCollection},
		{"image", KindObject},
		{"tags", KindTags},
	}
	VariantDefaults = DefaultTable{
		{"price", KindMoney},
		{"compare_at_price", KindMoney},
	}
	OptionDefaults = DefaultTable{
		{"values", KindCollection},
	}
)

var (
	emptyArray  = json.RawMessage("[]")
	emptyObject = json.RawMessage("{}")
)

// apply rewrites every listed field of f into its canonical form
func (t DefaultTable) apply(f fields) {
	for _, d := range t {
		v := f[d.Field]
		switch d.Kind {
		case KindMoney:
			amount, _ := parseMoney(v)
			f[d.Field] = mustMarshal(amount.String())
		case KindCollection:
			if !isJSONKind(v, '[') {
				f[d.Field] = emptyArray
			}
		case KindObject:
			if !isJSONKind(v, '{') {
				f[d.Field] = emptyObject
			}
		case KindTags:
			f[d.Field] = mustMarshal(splitTags(v))
		}
	}
}

func isJSONKind(v json.RawMessage, open byte) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == open && json.Valid(v)
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
