package commitlog

// SendRequest ...
type SendRequest struct {
	Type string `json:"type"`
	Key  string `json:"key"`
	Msg  uint64 `json:"msg"`
}

// SendResponse ...
type SendResponse struct {
	Type   string `json:"type"`
	Offset uint64 `json:"offset"`
}

// OffsetsRequest is the body of poll and commit_offsets.
type OffsetsRequest struct {
	Type    string            `json:"type"`
	Offsets map[string]uint64 `json:"offsets"`
}

// PollResponse ...
type PollResponse struct {
	Type string             `json:"type"`
	Msgs map[string][]Entry `json:"msgs"`
}

// ListCommittedOffsetsRequest ...
type ListCommittedOffsetsRequest struct {
	Type string   `json:"type"`
	Keys []string `json:"keys"`
}

// OffsetsResponse is the body of list_committed_offsets_ok.
type OffsetsResponse struct {
	Type    string            `json:"type"`
	Offsets map[string]uint64 `json:"offsets"`
}

// OKResponse ...
type OKResponse struct {
	Type string `json:"type"`
}
