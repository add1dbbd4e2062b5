package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id"`
	Details UserDetails `json:"user" bson:"user"`
	Version int32       `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo
type UserDetails struct {
	Name                 string             `json:"name" bson:"name"`
	Email                string             `json:"email" bson:"email"`
	Password             string             `json:"password" bson:"password"`
	Firm                 string             `json:"firm" bson:"firm"`
	Role                 string             `json:"role" bson:"role"` // attorney, paralegal, admin
	Plan                 string             `json:"plan" bson:"plan"` // free, pro, firm
	ProfilePicture       string             `json:"profilePicture" bson:"profilePicture"`
	StripeCustomerID     string             `json:"stripeCustomerId" bson:"stripeCustomerId"`
	StripeSubscriptionID string             `json:"stripeSubscriptionId" bson:"stripeSubscriptionId"`
	ResetPasswordToken   string             `json:"resetPasswordToken" bson:"resetPasswordToken"`
	CreatedAt            primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt            primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}
