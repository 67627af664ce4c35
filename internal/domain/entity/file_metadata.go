package entity

import "time"

// FileMetadata records an uploaded chat attachment.
type FileMetadata struct {
	ID         string    `json:"id" firestore:"id"`
	URL        string    `json:"url" firestore:"url"`
	Filename   string    `json:"filename" firestore:"filename"`
	Size       int64     `json:"size" firestore:"size"`
	MimeType   string    `json:"mime_type" firestore:"mimeType"`
	UploadedBy string    `json:"uploaded_by" firestore:"uploadedBy"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
