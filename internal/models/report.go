// internal/models/report.go
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ReportData is the user-entered report tree, as decoded from JSON.
type ReportData map[string]interface{}

// Lookup walks path through nested mappings.
func (r ReportData) Lookup(path ...string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(r)
	for _, key := range path {
		m, ok := AsMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Map returns the mapping at path, or nil.
func (r ReportData) Map(path ...string) map[string]interface{} {
	v, ok := r.Lookup(path...)
	if !ok {
		return nil
	}
	m, _ := AsMap(v)
	return m
}

// List returns the list at path, or nil.
func (r ReportData) List(path ...string) []interface{} {
	v, ok := r.Lookup(path...)
	if !ok {
		return nil
	}
	return AsList(v)
}

// String returns the scalar at path formatted as text, or "" when absent or not a scalar.
func (r ReportData) String(path ...string) string {
	v, ok := r.Lookup(path...)
	if !ok {
		return ""
	}
	return Scalar(v)
}

// StringOr is String with a default for empty values.
func (r ReportData) StringOr(def string, path ...string) string {
	if s := strings.TrimSpace(r.String(path...)); s != "" {
		return s
	}
	return def
}

// Title is metadonnees.titre or def.
func (r ReportData) Title(def string) string {
	return r.StringOr(def, "metadonnees", "titre")
}

// AsMap accepts both plain maps and ReportData.
func AsMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case ReportData:
		return map[string]interface{}(m), true
	}
	return nil, false
}

// AsList accepts decoded JSON arrays and slices of maps built in Go.
func AsList(v interface{}) []interface{} {
	switch l := v.(type) {
	case []interface{}:
		return l
	case []map[string]interface{}:
		out := make([]interface{}, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out
	case []string:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	}
	return nil
}

// Scalar renders strings, numbers and booleans; integral floats print without decimals.
func Scalar(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return Scalar(float64(s))
	case int, int32, int64, bool:
		return fmt.Sprint(s)
	}
	return ""
}
