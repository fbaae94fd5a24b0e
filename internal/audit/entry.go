package audit

// Entry is one line in the hash-chained JSONL decision log. All fields are
// plain structs and strings so json.Marshal field order is deterministic,
// which keeps the hash chain reproducible.
type Entry struct {
	Timestamp string `json:"ts"`
	Caller    string `json:"caller"`
	Clearance string `json:"clearance"`
	Feature   string `json:"feature"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason"`
	Verdict   string `json:"verdict,omitempty"`
	PrevHash  string `json:"prev_hash"`
}

// Decisions recorded in the log.
const (
	DecisionGranted = "granted"
	DecisionDenied  = "denied"
	DecisionBlocked = "blocked"
	DecisionFailed  = "failed"
)
