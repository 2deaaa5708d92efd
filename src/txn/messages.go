package txn

// TxnRequest is the body of txn and txn_ok.
type TxnRequest struct {
	Type string `json:"type"`
	Txn  []Op   `json:"txn"`
}

// SyncRequest carries the writes of a transaction to another node.
type SyncRequest struct {
	Type    string            `json:"type"`
	Changes map[uint64]uint64 `json:"changes"`
}

// OKResponse ...
type OKResponse struct {
	Type string `json:"type"`
}
