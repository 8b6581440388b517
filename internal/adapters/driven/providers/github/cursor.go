package github

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor tracks fetch progress per repository, serialized as base64
// JSON so the state store can treat it as opaque.
type Cursor struct {
	// Repos maps "owner/name" to its per-repo state.
	Repos map[string]RepoCursor `json:"repos"`
}

// RepoCursor is the resume state for one repository.
type RepoCursor struct {
	// IssuesSince is the update timestamp of the newest issue seen.
	IssuesSince time.Time `json:"issues_since,omitempty"`

	// ReadmeSHA is the blob SHA of the last fetched readme.
	ReadmeSHA string `json:"readme_sha,omitempty"`
}

// NewCursor creates an empty cursor.
func NewCursor() *Cursor {
	return &Cursor{Repos: make(map[string]RepoCursor)}
}

// DecodeCursor parses an encoded cursor, returning an empty one for
// empty or malformed input.
func DecodeCursor(s string) *Cursor {
	if s == "" {
		return NewCursor()
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return NewCursor()
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil || c.Repos == nil {
		return NewCursor()
	}
	return &c
}

// Encode serializes the cursor.
func (c *Cursor) Encode() string {
	if c == nil || len(c.Repos) == 0 {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
