package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/models"
)

// Template exported for testing purposes
type Template struct {
	DB       databases.TemplateDatabase
	ClauseDB databases.ClauseDatabase
	DocDB    databases.DocumentDatabase
}

// CreateTemplateHandler creates a template
func (t Template) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var template models.Template
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if template.Name == "" || template.Body == "" {
		config.ErrorStatus("name and body are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	template.ID = primitive.NewObjectID()
	template.IsActive = true
	template.UsageCount = 0
	template.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	template.UpdatedAt = template.CreatedAt

	_, err := t.DB.InsertOne(context.Background(), template)
	if err != nil {
		config.ErrorStatus("failed to create template", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Template created successfully",
		"id":      template.ID.Hex(),
	})
}

// TemplatesHandler returns active templates, paginated, with an optional
// category filter
func (t Template) TemplatesHandler(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v", Limit|10))
	}
	limit64 := int64(Limit)
	Page = getPage(Page, r)
	skip64 := int64(Page * Limit)

	zap.S().Debugf("category: '%v'", category)

	filter := bson.M{"isActive": true}
	if category != "" {
		filter["category"] = category
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	dbResp, err := t.DB.Find(ctx, filter, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get templates", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Template{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// TemplateByIDHandler returns a template by ID
func (t Template) TemplateByIDHandler(w http.ResponseWriter, r *http.Request) {
	templateID := mux.Vars(r)["template_id"]

	tID, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := t.DB.FindOne(context.Background(), bson.M{"_id": tID})
	if err != nil {
		config.ErrorStatus("failed to get template by ID", http.StatusNotFound, w, err)
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

// UpdateTemplateHandler updates a template's details
func (t Template) UpdateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	templateID := mux.Vars(r)["template_id"]

	tID, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var updatedFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updatedFields); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	delete(updatedFields, "_id")
	delete(updatedFields, "usageCount")
	updatedFields["updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	_, err = t.DB.UpdateOne(context.Background(), bson.M{"_id": tID}, bson.M{"$set": updatedFields})
	if err != nil {
		config.ErrorStatus("failed to update template", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Template updated successfully",
	})
}

// DeleteTemplateHandler deletes a template by ID
func (t Template) DeleteTemplateHandler(w http.ResponseWriter, r *http.Request) {
	templateID := mux.Vars(r)["template_id"]

	tID, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	_, err = t.DB.DeleteOne(context.Background(), bson.M{"_id": tID})
	if err != nil {
		config.ErrorStatus("failed to delete template", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Template deleted successfully",
	})
}

// InstantiateTemplateHandler fills a template's placeholders, appends its
// clause library entries and creates a draft document from the result
func (t Template) InstantiateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	templateID := mux.Vars(r)["template_id"]

	tID, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var body struct {
		Title        string            `json:"title"`
		OwnerID      string            `json:"ownerId"`
		MatterNumber string            `json:"matterNumber"`
		Variables    map[string]string `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.OwnerID == "" {
		config.ErrorStatus("ownerId is required", http.StatusBadRequest, w, fmt.Errorf("missing ownerId"))
		return
	}

	template, err := t.DB.FindOne(context.Background(), bson.M{"_id": tID})
	if err != nil {
		config.ErrorStatus("failed to get template by ID", http.StatusNotFound, w, err)
		return
	}

	content := fillPlaceholders(template.Body, body.Variables)
	content += t.renderClauses(template.ClauseIDs)

	title := body.Title
	if title == "" {
		title = template.Name
	}

	doc := models.Document{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Content:      content,
		Status:       "draft",
		OwnerID:      body.OwnerID,
		TemplateID:   templateID,
		MatterNumber: body.MatterNumber,
		Version:      1,
		CreatedAt:    primitive.NewDateTimeFromTime(time.Now()),
	}
	doc.UpdatedAt = doc.CreatedAt

	_, err = t.DocDB.InsertOne(context.Background(), doc)
	if err != nil {
		config.ErrorStatus("failed to create document from template", http.StatusInternalServerError, w, err)
		return
	}

	_, err = t.DB.UpdateOne(context.Background(), bson.M{"_id": tID}, bson.M{"$inc": bson.M{"usageCount": 1}})
	if err != nil {
		zap.S().Warnw("failed to bump template usage count", "error", err, "templateId", templateID)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Document created from template",
		"id":      doc.ID.Hex(),
	})
}

// CreateClauseHandler creates a clause library entry
func (t Template) CreateClauseHandler(w http.ResponseWriter, r *http.Request) {
	var clause models.Clause
	if err := json.NewDecoder(r.Body).Decode(&clause); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if clause.Name == "" || clause.Text == "" {
		config.ErrorStatus("name and text are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	clause.ID = primitive.NewObjectID()
	clause.IsActive = true
	clause.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	clause.UpdatedAt = clause.CreatedAt

	_, err := t.ClauseDB.InsertOne(context.Background(), clause)
	if err != nil {
		config.ErrorStatus("failed to create clause", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Clause created successfully",
		"id":      clause.ID.Hex(),
	})
}

// ClausesHandler returns active clauses with optional category and
// jurisdiction filters
func (t Template) ClausesHandler(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	jurisdiction := r.URL.Query().Get("jurisdiction")

	filter := bson.M{"isActive": true}
	if category != "" {
		filter["category"] = category
	}
	if jurisdiction != "" {
		filter["jurisdiction"] = jurisdiction
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	dbResp, err := t.ClauseDB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get clauses", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Clause{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// fillPlaceholders substitutes {{name}} markers with the supplied values.
// Unmatched markers are left in place so the drafter can spot them.
func fillPlaceholders(body string, variables map[string]string) string {
	for key, value := range variables {
		body = strings.ReplaceAll(body, "{{"+key+"}}", value)
	}
	return body
}

func (t Template) renderClauses(clauseIDs []string) string {
	if len(clauseIDs) == 0 {
		return ""
	}

	ids := make([]primitive.ObjectID, 0, len(clauseIDs))
	for _, raw := range clauseIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			zap.S().Warnw("skipping invalid clause id", "clauseId", raw)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ""
	}

	clauses, err := t.ClauseDB.Find(context.Background(), bson.M{"_id": bson.M{"$in": ids}, "isActive": true})
	if err != nil {
		zap.S().Warnw("failed to load template clauses", "error", err)
		return ""
	}

	var sb strings.Builder
	for _, clause := range clauses {
		sb.WriteString("\n\n")
		sb.WriteString(clause.Name)
		sb.WriteString("\n")
		sb.WriteString(clause.Text)
	}
	return sb.String()
}
