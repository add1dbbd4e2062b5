package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/models"
	templates "github.com/docketly/docketly-api/templates/html"
)

var (
	// Page denotes the starting Page for pagination results
	Page = 0
)

// Document exported for testing purposes
type Document struct {
	DB     databases.DocumentDatabase
	UDB    databases.UserDatabase
	NDB    databases.NotificationDatabase
	Hub    *NotificationHub
	Config config.Config
}

// CreateDocumentHandler creates a document
func (d Document) CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if doc.Title == "" || doc.OwnerID == "" {
		config.ErrorStatus("title and ownerId are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	doc.ID = primitive.NewObjectID()
	if doc.Status == "" {
		doc.Status = "draft"
	}
	doc.Version = 1
	doc.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	doc.UpdatedAt = doc.CreatedAt

	_, err := d.DB.InsertOne(context.Background(), doc)
	if err != nil {
		config.ErrorStatus("failed to create document", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Document created successfully",
		"id":      doc.ID.Hex(),
	})
}

// DocumentsHandler returns documents visible to the given owner, paginated,
// with an optional status filter
func (d Document) DocumentsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	status := r.URL.Query().Get("status")
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", Limit|10, err))
	}
	limit64 := int64(Limit)
	Page = getPage(Page, r)
	skip64 := int64(Page * Limit)

	zap.S().Debugf("owner_id: '%v', status: '%v'", ownerID, status)

	// owners see their own documents plus anything shared with them
	filter := bson.M{}
	if ownerID != "" {
		filter["$or"] = []bson.M{
			{"ownerId": ownerID},
			{"sharedWith.userId": ownerID},
		}
	}
	if status != "" {
		filter["status"] = status
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	dbResp, err := d.DB.Find(ctx, filter, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get documents", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the data elements exist, if
	// len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.Document{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DocumentByIDHandler returns a document by ID
func (d Document) DocumentByIDHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	zap.S().Debugf("document_id: %v", docID)

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := d.DB.FindOne(context.Background(), bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to get document by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateDocumentHandler updates the provided document fields and bumps the
// version counter
func (d Document) UpdateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var updatedFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updatedFields); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	// these change through their own endpoints
	delete(updatedFields, "_id")
	delete(updatedFields, "ownerId")
	delete(updatedFields, "sharedWith")
	delete(updatedFields, "version")
	updatedFields["updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	_, err = d.DB.UpdateOne(context.Background(), bson.M{"_id": dID}, bson.M{
		"$set": updatedFields,
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		config.ErrorStatus("failed to update document", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Document updated successfully",
	})
}

// DeleteDocumentHandler deletes a document by ID
func (d Document) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	_, err = d.DB.DeleteOne(context.Background(), bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to delete document", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Document deleted successfully",
	})
}

// DocumentSearchHandler returns a paginated list of documents matching the
// given query across title, tags and matter number
func (d Document) DocumentSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	ownerID := r.URL.Query().Get("owner_id")
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v", Limit|10))
	}
	limit64 := int64(Limit)
	Page = getPage(Page, r)
	skip64 := int64(Page * Limit)

	zap.S().Debugf("q: '%v', owner_id: '%v'", query, ownerID)

	filter := bson.M{}
	if query != "" {
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": query, "$options": "i"}},
			{"tags": bson.M{"$regex": query, "$options": "i"}},
			{"matterNumber": bson.M{"$regex": query, "$options": "i"}},
		}
	}
	if ownerID != "" {
		filter["ownerId"] = ownerID
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	dbResp, err := d.DB.Find(ctx, filter, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get document search", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Document{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ShareDocumentHandler grants another user access to a document, notifies them
// over the push channel and sends an invite email
func (d Document) ShareDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var share models.DocumentShare
	if err := json.NewDecoder(r.Body).Decode(&share); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if share.UserID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, fmt.Errorf("missing userId"))
		return
	}
	switch share.Permission {
	case "view", "comment", "edit":
	default:
		config.ErrorStatus("permission must be view, comment or edit", http.StatusBadRequest, w, fmt.Errorf("invalid permission %q", share.Permission))
		return
	}

	doc, err := d.DB.FindOne(context.Background(), bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to get document by ID", http.StatusNotFound, w, err)
		return
	}

	share.SharedAt = primitive.NewDateTimeFromTime(time.Now())

	// re-sharing with the same user replaces the previous grant
	_, err = d.DB.UpdateOne(context.Background(), bson.M{"_id": dID}, bson.M{
		"$pull": bson.M{"sharedWith": bson.M{"userId": share.UserID}},
	})
	if err != nil {
		config.ErrorStatus("failed to update document shares", http.StatusInternalServerError, w, err)
		return
	}
	_, err = d.DB.UpdateOne(context.Background(), bson.M{"_id": dID}, bson.M{
		"$push": bson.M{"sharedWith": share},
		"$set":  bson.M{"updatedAt": primitive.NewDateTimeFromTime(time.Now())},
	})
	if err != nil {
		config.ErrorStatus("failed to add document share", http.StatusInternalServerError, w, err)
		return
	}

	notification := models.Notification{
		ID:         primitive.NewObjectID(),
		UserID:     share.UserID,
		Type:       "document_shared",
		Message:    fmt.Sprintf("%q has been shared with you (%s access)", doc.Title, share.Permission),
		DocumentID: docID,
		SentFromID: doc.OwnerID,
		Read:       false,
		CreatedAt:  primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := d.NDB.InsertOne(context.Background(), notification); err != nil {
		zap.S().Errorw("failed to persist share notification", "error", err, "documentId", docID)
	} else if d.Hub != nil {
		d.Hub.PushNotification(share.UserID, notification)
		d.pushUnreadCount(share.UserID)
	}

	go d.sendShareEmail(share.UserID, doc.Title, share.Permission)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Document shared successfully",
	})
}

// DuplicateDocumentHandler copies a document into a fresh draft owned by the
// requesting user
func (d Document) DuplicateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	doc, err := d.DB.FindOne(context.Background(), bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to get document by ID", http.StatusNotFound, w, err)
		return
	}

	var body struct {
		OwnerID string `json:"ownerId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	copyDoc := *doc
	copyDoc.ID = primitive.NewObjectID()
	copyDoc.Title = doc.Title + " (Copy)"
	copyDoc.Status = "draft"
	copyDoc.SharedWith = nil
	copyDoc.Attachments = nil
	copyDoc.Version = 1
	copyDoc.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	copyDoc.UpdatedAt = copyDoc.CreatedAt
	if body.OwnerID != "" {
		copyDoc.OwnerID = body.OwnerID
	}

	_, err = d.DB.InsertOne(context.Background(), copyDoc)
	if err != nil {
		config.ErrorStatus("failed to duplicate document", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Document duplicated successfully",
		"id":      copyDoc.ID.Hex(),
	})
}

// ExportDocumentHandler renders a document as html, plain text or json
func (d Document) ExportDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	doc, err := d.DB.FindOne(context.Background(), bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to get document by ID", http.StatusNotFound, w, err)
		return
	}

	switch format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		body := strings.ReplaceAll(html.EscapeString(doc.Content), "\n", "<br>\n")
		fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head><title>%s</title></head>\n<body>\n<h1>%s</h1>\n<p>%s</p>\n</body>\n</html>\n",
			html.EscapeString(doc.Title), html.EscapeString(doc.Title), body)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "%s\n\n%s\n", doc.Title, doc.Content)
	case "json":
		b, err := json.Marshal(doc)
		if err != nil {
			config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	default:
		config.ErrorStatus("format must be html, text or json", http.StatusBadRequest, w, fmt.Errorf("unsupported format %q", format))
	}
}

func (d Document) pushUnreadCount(userID string) {
	count, err := d.NDB.CountDocuments(context.Background(), bson.M{"userId": userID, "read": false})
	if err != nil {
		zap.S().Debugw("failed to count unread notifications", "error", err, "userId", userID)
		return
	}
	d.Hub.PushUnreadCount(userID, count)
}

func (d Document) sendShareEmail(userID, title, permission string) {
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		zap.S().Debugw("share email skipped, invalid user id", "userId", userID)
		return
	}
	user, err := d.UDB.FindOne(context.Background(), bson.M{"_id": uID})
	if err != nil || user.Details.Email == "" {
		zap.S().Debugw("share email skipped, no recipient", "userId", userID)
		return
	}

	subject := "A document was shared with you on Docketly"
	bodyText := fmt.Sprintf("Hi %s,\n\n%q has been shared with you with %s access.\n\nOpen Docketly to view it.", user.Details.Name, title, permission)

	from := mail.NewEmail("Docketly", "no-reply@docketly.io")
	to := mail.NewEmail(user.Details.Name, user.Details.Email)
	message := mail.NewSingleEmail(from, subject, to, bodyText, templates.RenderGenericEmail(subject, bodyText))
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send share email", "error", err, "userId", userID)
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
}

func getPage(Page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", Page)
	} else {
		var err error
		Page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if Page < 0 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", Page))
			return 0
		}
	}
	return Page
}
