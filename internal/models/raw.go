// Package models holds the record types that flow through the ETL.
package models

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
)

// Raw record decoding errors.
var (
	ErrNotAnObject   = errors.New("raw record must be a JSON object")
	ErrUnexpectedEnd = errors.New("unexpected end of JSON input")
	ErrTrailingData  = errors.New("unexpected data after JSON object")
)

// MarshalLiteral encodes v as compact JSON with <, > and & left as is.
func MarshalLiteral(v any) ([]byte, error) {
	return json.MarshalWithOption(v, json.DisableHTMLEscape())
}

// RawRecord is one source row: an open mapping from field name to value that
// remembers the order fields were first seen in. Values are whatever the
// source produced (string, json.Number, bool, nil, []any, map[string]any).
//
// The zero value is an empty record ready to use.
type RawRecord struct {
	keys   []string
	fields map[string]any
}

// FromMap builds a record from m with keys in sorted order.
func FromMap(m map[string]any) RawRecord {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var r RawRecord
	for _, k := range keys {
		r.Set(k, m[k])
	}

	return r
}

// ParseRawRecord decodes a JSON object into a record, keeping field order.
func ParseRawRecord(data []byte) (RawRecord, error) {
	var r RawRecord
	if err := r.UnmarshalJSON(data); err != nil {
		return RawRecord{}, err
	}

	return r, nil
}

// Set stores value under key. A key that already exists keeps its position.
func (r *RawRecord) Set(key string, value any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}

	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}

	r.fields[key] = value
}

// Get returns the value stored under key and whether the key exists.
// A present key may still hold nil.
func (r RawRecord) Get(key string) (any, bool) {
	v, ok := r.fields[key]

	return v, ok
}

// Keys returns field names in source order.
func (r RawRecord) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields.
func (r RawRecord) Len() int {
	return len(r.keys)
}

// Map returns a shallow copy of the fields as a plain map.
func (r RawRecord) Map() map[string]any {
	m := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		m[k] = v
	}

	return m
}

// MarshalJSON writes the fields in source order without HTML escaping.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := MarshalLiteral(k)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key %q: %w", k, err)
		}

		vb, err := MarshalLiteral(r.fields[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", k, err)
		}

		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object. Numbers are kept as json.Number so
// their literal text survives a round trip.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrUnexpectedEnd
		}

		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: got %v", ErrNotAnObject, tok)
	}

	*r = RawRecord{fields: make(map[string]any)}

	for {
		tok, err := nextToken(dec)
		if err != nil {
			return err
		}

		if d, ok := tok.(json.Delim); ok && d == '}' {
			return expectEnd(dec)
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: object key is %T", ErrNotAnObject, tok)
		}

		val, err := decodeValue(dec)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}

		r.Set(key, val)
	}
}

// expectEnd fails unless only whitespace follows the object.
func expectEnd(dec *json.Decoder) error {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrTrailingData, err)
	}

	return fmt.Errorf("%w: %v", ErrTrailingData, tok)
}

func nextToken(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, ErrUnexpectedEnd
	}

	return tok, err
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := nextToken(dec)
	if err != nil {
		return nil, err
	}

	return valueFrom(dec, tok)
}

// valueFrom builds the value that starts with tok. Nested objects become
// plain maps.
func valueFrom(dec *json.Decoder, tok any) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch d {
	case '{':
		m := make(map[string]any)

		for {
			t, err := nextToken(dec)
			if err != nil {
				return nil, err
			}

			if end, ok := t.(json.Delim); ok && end == '}' {
				return m, nil
			}

			key, ok := t.(string)
			if !ok {
				return nil, fmt.Errorf("%w: object key is %T", ErrNotAnObject, t)
			}

			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}

			m[key] = v
		}
	case '[':
		list := []any{}

		for {
			t, err := nextToken(dec)
			if err != nil {
				return nil, err
			}

			if end, ok := t.(json.Delim); ok && end == ']' {
				return list, nil
			}

			v, err := valueFrom(dec, t)
			if err != nil {
				return nil, err
			}

			list = append(list, v)
		}
	}

	return nil, fmt.Errorf("unexpected delimiter %q", rune(d))
}
