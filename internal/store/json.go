// Package store implements CRUD for each entity directly over pgx, modeled
// on the teacher's sqlx repository idiom (internal/task/repository/sqlite/
// task.go) but adapted to pgx's $N placeholders and jsonb columns instead of
// sqlx's Rebind-based dialect switching, since persistence here targets
// Postgres only (spec.md's DATABASE_URL key names a single DSN).
package store

import "encoding/json"

// marshalMap serializes a scope/capabilities/payload/metadata map for a jsonb
// column; nil becomes an empty object so callers never see a bare null back.
func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func unmarshalMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
