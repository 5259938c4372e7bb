package domain

import "time"

// Comment is a note left on a task.
type Comment struct {
	ID             int64     `json:"id"`
	Text           string    `json:"text"`
	Author         string    `json:"author,omitempty"`
	AuthorUsername string    `json:"authorUsername"`
	CreatedAt      time.Time `json:"createdAt"`
	TaskID         int64     `json:"taskId"`
}

// Attachment is a file uploaded to a task.
type Attachment struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	URL              string    `json:"url,omitempty"`
	ContentType      string    `json:"contentType,omitempty"`
	Size             int64     `json:"size"`
	Uploader         string    `json:"uploader,omitempty"`
	UploaderUsername string    `json:"uploaderUsername"`
	UploadedAt       time.Time `json:"uploadedAt"`
	TaskID           int64     `json:"taskId"`
}
