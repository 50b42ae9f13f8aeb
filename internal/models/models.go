package models

import "time"

// VideoStatus is the lifecycle state of a video owned by the catalog.
type VideoStatus string

const (
	VideoStatusDraft      VideoStatus = "draft"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusBlocked    VideoStatus = "blocked"
	VideoStatusArchived   VideoStatus = "archived"
)

// Video is the subset of a catalog video the ingestion service reads and mirrors status onto.
type Video struct {
	ID          string
	Status      VideoStatus
	PublishedAt *time.Time
}

// AccountType classifies callers for upload authorization.
type AccountType string

const (
	AccountTypeViewer  AccountType = "viewer"
	AccountTypeCreator AccountType = "creator"
	AccountTypeAdmin   AccountType = "admin"
)

// Privileged reports whether the account may manage video uploads.
func (t AccountType) Privileged() bool {
	return t == AccountTypeCreator || t == AccountTypeAdmin
}
