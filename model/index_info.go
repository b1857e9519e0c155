package model

// IndexInfo describes one persisted index.
type IndexInfo struct {
	Identity   string `json:"identity"`
	Checkpoint uint64 `json:"checkpoint"` // last document change applied
	UpdateSeq  uint64 `json:"update_seq"` // latest document change
	Stale      bool   `json:"stale"`
}
