package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification holds the structure for the notifications collection in mongo
type Notification struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	UserID     string             `json:"userId" bson:"userId"`
	Type       string             `json:"type" bson:"type"` // document_shared, analysis_ready, mention
	Message    string             `json:"message" bson:"message"`
	DocumentID string             `json:"documentId,omitempty" bson:"documentId,omitempty"`
	SentFromID string             `json:"sentFromId,omitempty" bson:"sentFromId,omitempty"`
	Read       bool               `json:"read" bson:"read"`
	CreatedAt  primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
