package builder

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"unicode"
)

// FieldKind selects the control used to edit a config value.
type FieldKind string

const (
	KindURL         FieldKind = "url"
	KindSecret      FieldKind = "secret"
	KindTextArea    FieldKind = "textarea"
	KindText        FieldKind = "text"
	KindNumber      FieldKind = "number"
	KindToggle      FieldKind = "toggle"
	KindSelect      FieldKind = "select"
	KindPlaceholder FieldKind = "placeholder"
)

// longTextThreshold is the string length above which a multi-line input is used.
const longTextThreshold = 50

// PlaceholderText is shown in place of config values the panel cannot edit.
const PlaceholderText = "Array configuration (advanced)"

// FieldSpec describes one editable config key.
type FieldSpec struct {
	Key     string    `json:"key"`
	Kind    FieldKind `json:"kind"`
	Label   string    `json:"label"`
	Step    float64   `json:"step,omitempty"`
	Options []string  `json:"options,omitempty"`
}

// ReadOnly reports whether the field is display-only.
func (f FieldSpec) ReadOnly() bool {
	return f.Kind == KindPlaceholder
}

var (
	sentimentModelOptions = []string{"default", "bert", "roberta", "custom"}
	webhookMethodOptions  = []string{"GET", "POST", "PUT", "PATCH"}
)

// InferFields derives a field list from the runtime shape of cfg. It is used
// for templates that do not declare a schema. Keys are visited in sorted order.
func InferFields(moduleType string, cfg map[string]any) []FieldSpec {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []FieldSpec
	for _, k := range keys {
		if f, ok := inferField(k, cfg[k]); ok {
			fields = append(fields, f)
		}
	}

	switch moduleType {
	case "sentiment-analysis":
		fields = append(fields, FieldSpec{Key: "model", Kind: KindSelect, Label: "Model type", Options: sentimentModelOptions})
	case "webhook":
		fields = append(fields, FieldSpec{Key: "method", Kind: KindSelect, Label: "Method", Options: webhookMethodOptions})
	}
	return fields
}

func inferField(key string, value any) (FieldSpec, bool) {
	f := FieldSpec{Key: key, Label: Label(key)}
	lower := strings.ToLower(key)

	switch v := value.(type) {
	case string:
		switch {
		case strings.Contains(lower, "url") || strings.Contains(lower, "endpoint"):
			f.Kind = KindURL
		case strings.Contains(lower, "key") || strings.Contains(lower, "token"):
			f.Kind = KindSecret
		case len(v) > longTextThreshold:
			f.Kind = KindTextArea
		default:
			f.Kind = KindText
		}
		return f, true
	case bool:
		f.Kind = KindToggle
		return f, true
	case nil:
		return f, false
	}

	if _, ok := toNumber(value); ok {
		f.Kind = KindNumber
		f.Step = 1
		if strings.Contains(lower, "threshold") || strings.Contains(lower, "score") {
			f.Step = 0.1
		}
		return f, true
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Slice, reflect.Array:
		f.Kind = KindPlaceholder
		return f, true
	}
	return f, false
}

// Label turns a camelCase config key into display text: maxKeywords becomes
// "Max keywords".
func Label(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
