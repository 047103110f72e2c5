package query

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Project reduces each record to the selected fields plus id. With no
// selection the records are returned unchanged.
func Project[T any](records []T, selected []Field) ([]any, error) {
	out := make([]any, len(records))
	if len(selected) == 0 {
		for i, r := range records {
			out[i] = r
		}
		return out, nil
	}

	keep := make(map[string]bool, len(selected)+1)
	keep["id"] = true
	for _, f := range selected {
		keep[f.Name] = true
	}

	for i, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("project: marshal: %w", err)
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("project: unmarshal: %w", err)
		}
		for k := range doc {
			if !keep[k] {
				delete(doc, k)
			}
		}
		out[i] = doc
	}
	return out, nil
}
