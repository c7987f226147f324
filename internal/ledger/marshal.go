package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/Quantumplation/daml-trace/internal/record"
)

// marshalBody converts a record body to canonical JSON TEXT for
// storage. Identical logical bodies always produce identical rows.
func marshalBody(body map[string]any) (string, error) {
	data, err := record.MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// marshalParties converts a party set to a canonical JSON array TEXT,
// preserving insertion order.
func marshalParties(set record.Set) (string, error) {
	list := make([]any, 0, set.Len())
	for _, p := range set.Members() {
		list = append(list, string(p))
	}
	data, err := record.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal parties: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses canonical JSON TEXT to a body map.
func unmarshalBody(data string) (map[string]any, error) {
	return record.UnmarshalBody([]byte(data))
}

// unmarshalParties parses a JSON array TEXT back to a party set.
func unmarshalParties(data string) (record.Set, error) {
	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return record.Set{}, fmt.Errorf("unmarshal parties: %w", err)
	}
	parties := make([]record.Party, len(list))
	for i, s := range list {
		parties[i] = record.Party(s)
	}
	set, err := record.NewSet(parties...)
	if err != nil {
		return record.Set{}, fmt.Errorf("unmarshal parties: %w", err)
	}
	return set, nil
}
