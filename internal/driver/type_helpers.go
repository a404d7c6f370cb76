package driver

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Temporal properties are persisted as RFC3339 UTC strings; a live fact has an
// absent or empty invalid_at. The helpers below decode record values coming
// back from the engine, which may be strings or native driver temporals
// depending on the backend.

func RecordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func RecordInt(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func RecordFloat(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch f := v.(type) {
	case float64:
		return f
	case int64:
		return float64(f)
	}
	return 0
}

func RecordTime(rec *neo4j.Record, key string) time.Time {
	if t := RecordTimePtr(rec, key); t != nil {
		return *t
	}
	return time.Time{}
}

func RecordTimePtr(rec *neo4j.Record, key string) *time.Time {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return nil
		}
		return &parsed
	case time.Time:
		return &t
	}
	return nil
}

func RecordStringList(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// TimeParam encodes a timestamp for persistence.
func TimeParam(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// TimePtrParam encodes an optional timestamp; nil persists as "" so the
// live-fact predicates (IS NULL OR = "") hold on every backend.
func TimePtrParam(t *time.Time) string {
	if t == nil {
		return ""
	}
	return TimeParam(*t)
}
