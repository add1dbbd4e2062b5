package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Analysis holds a stored AI analysis result for a document
type Analysis struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	DocumentID  string             `json:"documentId" bson:"documentId"`
	RequestedBy string             `json:"requestedBy" bson:"requestedBy"`
	Status      string             `json:"status" bson:"status"` // completed, failed
	Summary     string             `json:"summary" bson:"summary"`
	RiskScore   float64            `json:"riskScore" bson:"riskScore"`
	Findings    []AnalysisFinding  `json:"findings" bson:"findings"`
	Model       string             `json:"model" bson:"model"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// AnalysisFinding is a single issue the analysis service flagged
type AnalysisFinding struct {
	Severity string `json:"severity" bson:"severity"` // info, warning, critical
	Clause   string `json:"clause" bson:"clause"`
	Message  string `json:"message" bson:"message"`
}
