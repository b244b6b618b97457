package store

import (
	"encoding/json"
	"fmt"

	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// Triggers are persisted as a JSON document in both SQL backends.

func encodeTriggers(t *rules.Triggers) ([]byte, error) {
	if t == nil {
		t = &rules.Triggers{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode triggers: %w", err)
	}
	return b, nil
}

func decodeTriggers(b []byte) (*rules.Triggers, error) {
	t := &rules.Triggers{}
	if len(b) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("decode triggers: %w", err)
	}
	return t, nil
}
