package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template represents a reusable legal document template
type Template struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Category    string             `json:"category" bson:"category"` // e.g., "contract", "motion", "letter", "nda"
	Body        string             `json:"body" bson:"body"`         // template body with {{placeholder}} variables
	ClauseIDs   []string           `json:"clauseIds" bson:"clauseIds"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	UsageCount  int64              `json:"usageCount" bson:"usageCount"`
	CreatedBy   string             `json:"createdBy" bson:"createdBy"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Clause is a reusable clause library entry referenced by templates
type Clause struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Category     string             `json:"category" bson:"category"`
	Text         string             `json:"text" bson:"text"`
	Jurisdiction string             `json:"jurisdiction" bson:"jurisdiction"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt    primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
