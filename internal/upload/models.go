package upload

import "time"

// AuditRecord is the immutable fact that a client confirmed an upload.
type AuditRecord struct {
	ID        string    `json:"id" bson:"_id"`
	Token     string    `json:"token" bson:"token"`
	ClientID  string    `json:"client_id" bson:"client_id"`
	Filename  string    `json:"filename" bson:"filename"`
	Mimetype  string    `json:"mimetype" bson:"mimetype"`
	FileURL   string    `json:"file_url" bson:"file_url"`
	Key       string    `json:"key" bson:"key"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Confirmation is the caller-supplied payload of a confirm request.
type Confirmation struct {
	Token       string
	Filename    string
	ContentType string
	Key         string
	Receipt     string
}
