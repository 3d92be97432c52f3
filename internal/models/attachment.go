package models

// AttachedFile is a file embedded inline in a message as base64 text.
// Base64Content never carries the data URL prefix.
type AttachedFile struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	Type          string `json:"type"`
	Base64Content string `json:"base64Content"`
}
