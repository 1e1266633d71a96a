package model

// ObjectInfo is one entry from a bucket listing.
type ObjectInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ObjectHead is the header set of a single stored object.
type ObjectHead struct {
	Metadata      map[string]string `json:"metadata"`
	ContentType   string            `json:"content_type"`
	ContentLength int64             `json:"content_length"`
}
