package model

import "encoding/json"

// legacyKild mirrors the pre-multi-agent session file shape: a single
// process's fields sat directly on the kild rather than inside an
// Agents array (spec.md §6.1). kildAlias breaks the recursive
// UnmarshalJSON call that embedding Kild directly would cause.
type kildAlias Kild

type legacyKild struct {
	kildAlias

	LegacyProcessID        int          `json:"process_id,omitempty"`
	LegacyProcessName      string       `json:"process_name,omitempty"`
	LegacyProcessStartTime int64        `json:"process_start_time,omitempty"`
	LegacyTerminalType     TerminalType `json:"terminal_type,omitempty"`
	LegacyTerminalWindowID string       `json:"terminal_window_id,omitempty"`
	LegacyCommand          string       `json:"command,omitempty"`
	LegacyAgent            string       `json:"process_agent,omitempty"`
}

// UnmarshalJSON accepts both the current shape (Agents is a populated
// array) and the legacy shape (a single process's fields at the top
// level), folding the legacy fields into a single-entry Agents slice so
// every other component only ever deals with the current shape
// (spec.md §6.1: "Old sessions ... must be accepted and read as
// single-entry agents").
func (k *Kild) UnmarshalJSON(data []byte) error {
	var lk legacyKild
	if err := json.Unmarshal(data, &lk); err != nil {
		return err
	}

	*k = Kild(lk.kildAlias)

	if len(k.Agents) == 0 && (lk.LegacyProcessID != 0 || lk.LegacyTerminalWindowID != "" || lk.LegacyTerminalType != "") {
		agent := lk.LegacyAgent
		if agent == "" {
			agent = k.Agent
		}
		k.Agents = []AgentProcess{{
			Agent:            agent,
			SpawnID:          SpawnID(k.ID, 0),
			Command:          lk.LegacyCommand,
			CreatedAt:        k.CreatedAt,
			ProcessID:        lk.LegacyProcessID,
			ProcessName:      lk.LegacyProcessName,
			ProcessStartTime: lk.LegacyProcessStartTime,
			TerminalType:     lk.LegacyTerminalType,
			TerminalWindowID: lk.LegacyTerminalWindowID,
		}}
	}

	if k.Agents == nil {
		k.Agents = []AgentProcess{}
	}

	return nil
}

// MarshalJSON writes the current (non-legacy) shape: Agents always
// present as an array, the legacy top-level process fields never
// written.
func (k Kild) MarshalJSON() ([]byte, error) {
	agents := k.Agents
	if agents == nil {
		agents = []AgentProcess{}
	}
	type out struct {
		kildAlias
		Agents []AgentProcess `json:"agents"`
	}
	return json.Marshal(out{kildAlias: kildAlias(k), Agents: agents})
}
