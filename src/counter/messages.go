package counter

// AddRequest ...
type AddRequest struct {
	Type  string `json:"type"`
	Delta uint64 `json:"delta"`
}

// ValueResponse is the body of read_ok and read_bucket_ok.
type ValueResponse struct {
	Type  string `json:"type"`
	Value uint64 `json:"value"`
}

// OKResponse ...
type OKResponse struct {
	Type string `json:"type"`
}
