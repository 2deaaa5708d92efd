package kv

// ReadRequest ...
type ReadRequest struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// ReadResponse ...
type ReadResponse struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

// WriteRequest ...
type WriteRequest struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// CASRequest ...
type CASRequest struct {
	Type              string `json:"type"`
	Key               string `json:"key"`
	From              int64  `json:"from"`
	To                int64  `json:"to"`
	CreateIfNotExists bool   `json:"create_if_not_exists,omitempty"`
}

// OKResponse is the body of write_ok and cas_ok.
type OKResponse struct {
	Type string `json:"type"`
}
