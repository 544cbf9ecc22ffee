// Package canonical provides RFC 8785 (JSON Canonicalization Scheme)
// serialization for deterministic hashing of trust receipts. Two records
// that are semantically identical encode to byte-identical output
// regardless of field insertion order, so their SHA-256 digests match
// across implementations.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gowebpki/jcs"
)

// EncodingError reports a value that cannot be canonically encoded,
// typically a field whose type falls outside the supported
// scalar/container set.
type EncodingError struct {
	Path string
	Type string
}

func (e *EncodingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("canonical: unsupported type %s", e.Type)
	}
	return fmt.Sprintf("canonical: unsupported type %s at %s", e.Type, e.Path)
}

// Marshal returns the RFC 8785 canonical JSON encoding of v.
//
// Map keys are sorted lexicographically by UTF-8 bytes at every nesting
// level, whitespace is elided, HTML escaping is disabled, and numbers use
// the ECMA-262 shortest round-trip serialization. Only JSON-expressible
// values are accepted: strings, booleans, nil, integer and floating point
// numerics, json.Number, string-keyed maps, slices/arrays, and structs
// composed of the same.
func Marshal(v interface{}) ([]byte, error) {
	if err := checkEncodable(v, "$"); err != nil {
		return nil, err
	}

	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: pre-marshal failed: %w", err)
	}

	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonical: jcs transform failed: %w", err)
	}
	return out, nil
}

// Hash returns the SHA-256 hex digest of the canonical encoding of v.
func Hash(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 hash of raw bytes as a lowercase hex string.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// checkEncodable walks v and rejects anything outside the supported set
// before the value reaches json.Marshal, so callers get a typed
// EncodingError with a JSONPath-style location instead of an opaque
// marshal failure.
func checkEncodable(v interface{}, path string) error {
	if v == nil {
		return nil
	}

	switch t := v.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	case map[string]interface{}:
		for k, elem := range t {
			if err := checkEncodable(elem, path+"."+k); err != nil {
				return err
			}
		}
		return nil
	case []interface{}:
		for i, elem := range t {
			if err := checkEncodable(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return checkEncodable(rv.Elem().Interface(), path)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return &EncodingError{Path: path, Type: rv.Type().String()}
		}
		iter := rv.MapRange()
		for iter.Next() {
			if err := checkEncodable(iter.Value().Interface(), path+"."+iter.Key().String()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := checkEncodable(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			if !rt.Field(i).IsExported() {
				continue
			}
			if err := checkEncodable(rv.Field(i).Interface(), path+"."+rt.Field(i).Name); err != nil {
				return err
			}
		}
		return nil
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	default:
		return &EncodingError{Path: path, Type: rv.Type().String()}
	}
}
