package ledger

import "encoding/json"

// Record is the per-user usage entry. Counters only grow; timestamps
// are RFC 3339 strings. Unknown JSON fields read from the ledger file
// are preserved in extra and written back unchanged on the next store.
type Record struct {
	UserID        int64  `json:"user_id"`
	BasicCount    int    `json:"basic_count"`
	PremiumCount  int    `json:"premium_count"`
	LastBasicAt   string `json:"last_basic_at,omitempty"`
	LastPremiumAt string `json:"last_premium_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`

	// Unlimited is derived from the allow-list on every return; it is
	// never persisted.
	Unlimited bool `json:"-"`

	extra map[string]json.RawMessage
}

var knownRecordFields = map[string]bool{
	"user_id":         true,
	"basic_count":     true,
	"premium_count":   true,
	"last_basic_at":   true,
	"last_premium_at": true,
	"updated_at":      true,
}

// recordAlias drops the custom JSON methods to avoid recursion.
type recordAlias Record

// MarshalJSON emits the known fields plus any preserved unknown ones.
func (r Record) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(recordAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(r.extra)+len(knownRecordFields))
	for k, v := range r.extra {
		merged[k] = v
	}
	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, err
	}
	for k, v := range knownMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON fills the known fields and captures the rest.
func (r *Record) UnmarshalJSON(data []byte) error {
	var a recordAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownRecordFields[k] {
			delete(raw, k)
		}
	}

	*r = Record(a)
	if len(raw) > 0 {
		r.extra = raw
	} else {
		r.extra = nil
	}
	return nil
}
