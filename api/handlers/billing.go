package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
)

// Billing exported for testing purposes
type Billing struct {
	DB     databases.UserDatabase
	Config config.Config
}

// CreateCheckoutSessionHandler starts a Stripe checkout for a subscription
// plan
func (b Billing) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var body struct {
		UserID  string `json:"userId"`
		PriceID string `json:"priceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.UserID == "" || body.PriceID == "" {
		config.ErrorStatus("userId and priceId are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(body.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(body.UserID),
		SuccessURL:        stripe.String(b.Config.BaseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(b.Config.BaseURL + "/billing/cancel"),
	}

	s, err := session.New(params)
	if err != nil {
		config.ErrorStatus("failed to create checkout session", http.StatusInternalServerError, w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"id":  s.ID,
		"url": s.URL,
	})
}

// VerifySubscriptionHandler confirms a completed checkout and upgrades the
// user's plan
func (b Billing) VerifySubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var body struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.UserID == "" || body.SessionID == "" {
		config.ErrorStatus("userId and sessionId are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	uID, err := primitive.ObjectIDFromHex(body.UserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	s, err := session.Get(body.SessionID, nil)
	if err != nil {
		config.ErrorStatus("failed to fetch checkout session", http.StatusBadGateway, w, err)
		return
	}
	if s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid || s.Subscription == nil {
		config.ErrorStatus("checkout session is not paid", http.StatusPaymentRequired, w, fmt.Errorf("payment status %s", s.PaymentStatus))
		return
	}

	update := bson.M{
		"user.plan":                 "pro",
		"user.stripeSubscriptionId": s.Subscription.ID,
		"user.updatedAt":            primitive.NewDateTimeFromTime(time.Now()),
	}
	if s.Customer != nil {
		update["user.stripeCustomerId"] = s.Customer.ID
	}

	_, err = b.DB.UpdateOne(context.Background(), bson.M{"_id": uID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update user plan", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("subscription verified", "userId", body.UserID, "subscriptionId", s.Subscription.ID)

	json.NewEncoder(w).Encode(map[string]string{
		"message": "Subscription active",
		"plan":    "pro",
	})
}

// UnsubscribeHandler cancels the user's Stripe subscription and reverts them
// to the free plan
func (b Billing) UnsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	uID, err := primitive.ObjectIDFromHex(body.UserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	user, err := b.DB.FindOne(context.Background(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}
	if user.Details.StripeSubscriptionID == "" {
		config.ErrorStatus("user has no active subscription", http.StatusBadRequest, w, fmt.Errorf("nothing to cancel"))
		return
	}

	if _, err := subscription.Cancel(user.Details.StripeSubscriptionID, nil); err != nil {
		config.ErrorStatus("failed to cancel subscription", http.StatusBadGateway, w, err)
		return
	}

	_, err = b.DB.UpdateOne(context.Background(), bson.M{"_id": uID}, bson.M{
		"$set": bson.M{
			"user.plan":                 "free",
			"user.stripeSubscriptionId": "",
			"user.updatedAt":            primitive.NewDateTimeFromTime(time.Now()),
		},
	})
	if err != nil {
		config.ErrorStatus("failed to update user plan", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("subscription cancelled", "userId", body.UserID)

	json.NewEncoder(w).Encode(map[string]string{
		"message": "Subscription cancelled",
		"plan":    "free",
	})
}
