package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/models"
	templates "github.com/docketly/docketly-api/templates/html"
)

// resetTokenTTL is how long a password reset link stays usable
const resetTokenTTL = time.Hour

// User exported for testing purposes
type User struct {
	DB      databases.UserDatabase
	TokenDB databases.TokenDatabase
	Config  config.Config
}

// UserHandler returns a user by ID
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	zap.S().Debugf("user_id: %v", userID)

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := u.DB.FindOne(context.Background(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}
	// never hand the password hash back out
	dbResp.Details.Password = ""

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UserCreateHandler creates a user
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var user models.UserDetails
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if user.Email == "" || user.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, fmt.Errorf("missing credentials"))
		return
	}

	// check if the user already exists
	existingUser, _ := u.DB.FindOne(context.Background(), bson.M{"user.email": user.Email})
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	// hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	user.Password = string(hashedPassword)

	if user.Role == "" {
		user.Role = "attorney"
	}
	if user.Plan == "" {
		user.Plan = "free"
	}
	user.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	user.UpdatedAt = user.CreatedAt

	_, err = u.DB.InsertOne(context.Background(), user)
	if err != nil {
		config.ErrorStatus("failed to insert user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// UserCheckEmailHandler checks if an email exists using POST
func (u User) UserCheckEmailHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var user models.UserDetails
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	// check if the user already exists
	existingUser, _ := u.DB.FindOne(context.Background(), bson.M{"user.email": user.Email})
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// UpdateUserByIDHandler updates the allowed user profile fields
func (u User) UpdateUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var updatedFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updatedFields); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	// credentials and billing identifiers have their own flows
	delete(updatedFields, "password")
	delete(updatedFields, "email")
	delete(updatedFields, "stripeCustomerId")
	delete(updatedFields, "stripeSubscriptionId")

	update := bson.M{}
	for key, value := range updatedFields {
		update["user."+key] = value
	}
	update["user.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	_, err = u.DB.UpdateOne(context.Background(), bson.M{"_id": uID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User updated successfully",
	})
}

// ForgotPasswordHandler issues a password reset token and emails it. The
// response does not reveal whether the email exists.
func (u User) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	existingUser, err := u.DB.FindOne(context.Background(), bson.M{"user.email": body.Email})
	if err != nil || existingUser == nil {
		zap.S().Debugw("password reset requested for unknown email", "email", body.Email)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{"message": "If the email exists, a reset link has been sent"})
		return
	}

	token := uuid.New().String()
	now := time.Now()
	_, err = u.TokenDB.InsertOne(context.Background(), models.ResetToken{
		ID:        primitive.NewObjectID(),
		Token:     token,
		Email:     body.Email,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		config.ErrorStatus("failed to create reset token", http.StatusInternalServerError, w, err)
		return
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", u.Config.BaseURL, token)
	go u.sendResetEmail(body.Email, existingUser.Details.Name, resetLink)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "If the email exists, a reset link has been sent"})
}

// ResetPasswordHandler consumes a reset token and sets a new password
func (u User) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" || body.Password == "" {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	resetToken, err := u.TokenDB.FindOne(context.Background(), bson.M{"token": body.Token})
	if err != nil {
		config.ErrorStatus("invalid reset token", http.StatusUnauthorized, w, err)
		return
	}
	if time.Now().After(resetToken.ExpiresAt) {
		_, _ = u.TokenDB.DeleteOne(context.Background(), bson.M{"token": body.Token})
		config.ErrorStatus("reset token expired", http.StatusUnauthorized, w, fmt.Errorf("token expired"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	_, err = u.DB.UpdateOne(context.Background(), bson.M{"user.email": resetToken.Email}, bson.M{
		"$set": bson.M{
			"user.password":  string(hashedPassword),
			"user.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
		},
	})
	if err != nil {
		config.ErrorStatus("failed to update password", http.StatusInternalServerError, w, err)
		return
	}

	// token is single-use
	_, _ = u.TokenDB.DeleteOne(context.Background(), bson.M{"token": body.Token})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Password updated successfully"})
}

func (u User) sendResetEmail(toEmail, toName, resetLink string) {
	subject := "Reset your Docketly password"
	bodyText := fmt.Sprintf("Hi %s,\n\nWe received a request to reset your password. Use the link below within the next hour:\n\n%s\n\nIf you did not request this, you can safely ignore this email.", toName, resetLink)

	from := mail.NewEmail("Docketly", "no-reply@docketly.io")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, bodyText, templates.RenderGenericEmail(subject, bodyText))
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send password reset email", "error", err)
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
}
