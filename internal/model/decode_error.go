package model

// DecodeError reports a recognized log that failed to decode. It carries the
// raw record so the operator can diagnose malformed payloads.
type DecodeError struct {
	Pool        string   `json:"pool"`
	BlockNumber uint64   `json:"block_number"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Reason      string   `json:"reason"`
}

func (e *DecodeError) Error() string {
	return "decode " + e.Pool + " log " + e.TxHash + ": " + e.Reason
}
