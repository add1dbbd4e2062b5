package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document holds the structure for the documents collection in mongo
type Document struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Title        string             `json:"title" bson:"title"`
	Content      string             `json:"content" bson:"content"`
	Status       string             `json:"status" bson:"status"` // draft, in_review, final, archived
	OwnerID      string             `json:"ownerId" bson:"ownerId"`
	TemplateID   string             `json:"templateId,omitempty" bson:"templateId,omitempty"`
	MatterNumber string             `json:"matterNumber" bson:"matterNumber"`
	Tags         []string           `json:"tags" bson:"tags"`
	SharedWith   []DocumentShare    `json:"sharedWith" bson:"sharedWith"`
	Attachments  []Attachment       `json:"attachments" bson:"attachments"`
	Version      int64              `json:"version" bson:"version"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt    primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// DocumentShare grants another user access to a document
type DocumentShare struct {
	UserID     string             `json:"userId" bson:"userId"`
	Permission string             `json:"permission" bson:"permission"` // view, comment, edit
	SharedAt   primitive.DateTime `json:"sharedAt" bson:"sharedAt"`
}

// Attachment is an uploaded file associated with a document
type Attachment struct {
	PublicID   string             `json:"publicId" bson:"publicId"`
	URL        string             `json:"url" bson:"url"`
	FileName   string             `json:"fileName" bson:"fileName"`
	Format     string             `json:"format" bson:"format"`
	Bytes      int64              `json:"bytes" bson:"bytes"`
	UploadedBy string             `json:"uploadedBy" bson:"uploadedBy"`
	UploadedAt primitive.DateTime `json:"uploadedAt" bson:"uploadedAt"`
}
