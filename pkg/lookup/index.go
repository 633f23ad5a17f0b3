package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/metrics"
)

// ErrNoKeyField is returned when neither an explicit primary-key field is
// supplied nor any field of the sample record qualifies. Lookup data is UI
// sugar, so callers receive an empty index alongside this error rather than
// a hard failure.
var ErrNoKeyField = errors.New("lookup: no primary-key field candidate")

// Entry is the label for one primary-key value. Monolingual sources fill
// Label; sources with translation rows fill Labels keyed by language code.
type Entry struct {
	Label  string
	Labels map[string]string
}

// Index maps primary-key values (stringified) to their labels. It is built
// fresh on each call to Build; nothing mutates it incrementally.
type Index map[string]Entry

// Options override field inference. Zero values mean "infer from the first
// record's schema".
type Options struct {
	KeyField   string
	LabelField string
}

// Build converts lookup records into a label index.
//
// Field inference uses the first record as the schema sample: the primary
// key is the field literally named "id", else the first field whose name
// ends in "id" (case-sensitive). The label field is chosen among the first
// translation row's fields when translations are present, else among the
// top-level fields: the first field ending in "label" wins, otherwise the
// last field seen in declaration order.
//
// An empty input yields an empty index. A failed key inference yields an
// empty index and ErrNoKeyField.
func Build(records []Record, opts Options) (Index, error) {
	idx := make(Index)
	if len(records) == 0 {
		return idx, nil
	}

	sample := records[0]

	keyField := opts.KeyField
	if keyField == "" {
		keyField = inferKeyField(sample)
		if keyField == "" {
			logger.Warn("lookup index degraded, no primary-key candidate",
				"fields", sample.Fields())
			metrics.LookupInferenceFailure()
			return idx, ErrNoKeyField
		}
	}

	labelField := opts.LabelField
	if labelField == "" {
		labelField = inferLabelField(sample)
	}

	for _, rec := range records {
		keyVal, ok := rec.Get(keyField)
		if !ok {
			continue
		}
		key := keyString(keyVal)

		if trans := rec.Translations(); len(trans) > 0 {
			labels := make(map[string]string, len(trans))
			for _, t := range trans {
				code, _ := t.Get(LanguageCodeField)
				label, _ := t.Get(labelField)
				labels[valueString(code)] = valueString(label)
			}
			idx[key] = Entry{Labels: labels}
			continue
		}

		label, _ := rec.Get(labelField)
		idx[key] = Entry{Label: valueString(label)}
	}

	return idx, nil
}

// inferKeyField picks the primary-key field from the sample's schema.
func inferKeyField(sample Record) string {
	if sample.Has("id") {
		return "id"
	}
	for _, f := range sample.Fields() {
		if strings.HasSuffix(f, "id") {
			return f
		}
	}
	return ""
}

// inferLabelField picks the label field. When the sample carries translation
// rows the first row's schema is inspected instead of the top level.
func inferLabelField(sample Record) string {
	fields := sample.Fields()
	if trans := sample.Translations(); len(trans) > 0 {
		fields = trans[0].Fields()
	}

	last := ""
	for _, f := range fields {
		if strings.HasSuffix(f, "label") {
			return f
		}
		last = f
	}
	return last
}

// keyString normalizes a primary-key value into a map key. Integral floats
// drop their fraction so records decoded via encoding/json default mode and
// via UseNumber index identically.
func keyString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

func valueString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
