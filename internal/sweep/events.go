package sweep

// Event topics published by the Sweep module.
const (
	TopicScanStarted   = "sweep.scan.started"
	TopicScanProgress  = "sweep.scan.progress"
	TopicInstanceFound = "sweep.scan.instance_found"
	TopicScanCompleted = "sweep.scan.completed"
	TopicScanError     = "sweep.scan.error"
)

// Match is one discovered instance. Label carries the 1-based discovery
// ordinal ("Instance 3"); within a batch the ordinal depends on probe
// completion order, not address order.
type Match struct {
	Address string `json:"address"`
	Label   string `json:"label"`
}

// ScanStartedEvent is the payload for TopicScanStarted.
type ScanStartedEvent struct {
	ScanID string `json:"scan_id"`
	IP     string `json:"ip"`
	Prefix int    `json:"prefix"`
	Total  int    `json:"total"`
}

// ScanProgressEvent is published after every completed probe.
type ScanProgressEvent struct {
	ScanID    string `json:"scan_id"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

// InstanceFoundEvent is published the moment a probe matches.
type InstanceFoundEvent struct {
	ScanID  string  `json:"scan_id"`
	Match   Match   `json:"match"`
	Matches []Match `json:"matches"`
}

// ScanCompletedEvent is the terminal payload for a finished scan. Found is
// zero for an empty (but still valid) result.
type ScanCompletedEvent struct {
	ScanID  string  `json:"scan_id"`
	Total   int     `json:"total"`
	Found   int     `json:"found"`
	Matches []Match `json:"matches"`
}

// ScanErrorEvent reports an unexpected orchestration failure.
type ScanErrorEvent struct {
	ScanID string `json:"scan_id"`
	Error  string `json:"error"`
}
