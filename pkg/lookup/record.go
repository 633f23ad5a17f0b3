// Package lookup reshapes raw lookup-table records (country lists, status
// codes, and similar reference data) into label indexes keyed by primary key,
// guessing the key and label fields from the record schema when they are not
// supplied.
package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TranslationsField is the record field holding per-language label rows.
const TranslationsField = "translations"

// LanguageCodeField is the translation field naming the language.
const LanguageCodeField = "language_code"

// Record is one row of a lookup table. Unlike a plain map it remembers the
// field order observed at decode time; field inference depends on schema
// declaration order and Go maps would lose it.
type Record struct {
	order        []string
	values       map[string]any
	translations []Record
}

// Pair is a named field value, used to build records in declaration order.
type Pair struct {
	Name  string
	Value any
}

// NewRecord builds a record from ordered field pairs. A pair named
// "translations" with a []Record value becomes the translation rows.
func NewRecord(pairs ...Pair) Record {
	r := Record{values: make(map[string]any, len(pairs))}
	for _, p := range pairs {
		if p.Name == TranslationsField {
			if trans, ok := p.Value.([]Record); ok {
				r.translations = trans
				continue
			}
		}
		r.order = append(r.order, p.Name)
		r.values[p.Name] = p.Value
	}
	return r
}

// Fields returns the field names in schema declaration order, excluding the
// translations field.
func (r Record) Fields() []string {
	return r.order
}

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether the record carries the named field.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Translations returns the nested translation rows, or nil.
func (r Record) Translations() []Record {
	return r.translations
}

// UnmarshalJSON decodes a JSON object preserving field order. Numbers decode
// as json.Number so integer primary keys survive without float rounding.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("lookup: record must be a JSON object, got %v", tok)
	}

	r.order = nil
	r.values = make(map[string]any)
	r.translations = nil

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("lookup: unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		if key == TranslationsField {
			var trans []Record
			if err := json.Unmarshal(raw, &trans); err != nil {
				return fmt.Errorf("lookup: bad translations field: %w", err)
			}
			r.translations = trans
			continue
		}

		val, err := decodeValue(raw)
		if err != nil {
			return err
		}
		r.order = append(r.order, key)
		r.values[key] = val
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// FromJSON decodes a JSON array of lookup records.
func FromJSON(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("lookup: decoding records: %w", err)
	}
	return records, nil
}
