package runtime

import "encoding/json"

// Outcome is the structured result of executing a node handler (spec §3).
type Outcome struct {
	Status           StageStatus    `json:"-"`
	PreferredLabel   string         `json:"-"`
	SuggestedNextIDs []string       `json:"-"`
	ContextUpdates   map[string]any `json:"-"`
	Notes            string         `json:"-"`
	FailureReason    string         `json:"-"`

	// Meta carries handler-specific metadata that is never consulted for
	// routing (e.g. tool-executor diagnostics).
	Meta map[string]any `json:"-"`
}

// outcomeJSON mirrors the wire shape documented in spec §6's status.json
// layout: {outcome, preferred_next_label, suggested_next_ids,
// context_updates, notes, failure_reason}.
type outcomeJSON struct {
	Outcome            string         `json:"outcome"`
	PreferredNextLabel string         `json:"preferred_next_label,omitempty"`
	SuggestedNextIDs   []string       `json:"suggested_next_ids,omitempty"`
	ContextUpdates     map[string]any `json:"context_updates,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	FailureReason      string         `json:"failure_reason,omitempty"`
	Meta               map[string]any `json:"meta,omitempty"`
}

// MarshalJSON writes the status.json shape from spec §6.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeJSON{
		Outcome:            string(o.Status),
		PreferredNextLabel: o.PreferredLabel,
		SuggestedNextIDs:   o.SuggestedNextIDs,
		ContextUpdates:     o.ContextUpdates,
		Notes:              o.Notes,
		FailureReason:      o.FailureReason,
		Meta:               o.Meta,
	})
}

// UnmarshalJSON reads the status.json shape from spec §6.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var j outcomeJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	o.Status = ParseStageStatus(j.Outcome)
	o.PreferredLabel = j.PreferredNextLabel
	o.SuggestedNextIDs = j.SuggestedNextIDs
	o.ContextUpdates = j.ContextUpdates
	o.Notes = j.Notes
	o.FailureReason = j.FailureReason
	o.Meta = j.Meta
	return nil
}
