package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/models"
)

// aiAnalyzeTimeout bounds one AI service round trip, retries included
const aiAnalyzeTimeout = 60 * time.Second

// Analysis exported for testing purposes
type Analysis struct {
	DB     databases.AnalysisDatabase
	DocDB  databases.DocumentDatabase
	NDB    databases.NotificationDatabase
	Hub    *NotificationHub
	Config config.Config

	// HTTPClient overrides the client used to reach the AI service, used by tests
	HTTPClient *http.Client
}

type aiAnalyzeRequest struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

type aiAnalyzeResponse struct {
	Summary   string                   `json:"summary"`
	RiskScore float64                  `json:"riskScore"`
	Findings  []models.AnalysisFinding `json:"findings"`
	Model     string                   `json:"model"`
}

// AnalyzeDocumentHandler submits a document to the AI analysis service and
// persists the result. The AI call is an opaque HTTP request with a bounded
// retry; a service that stays down produces a failed Analysis record, not a
// handler crash.
func (a Analysis) AnalyzeDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var body struct {
		RequestedBy string `json:"requestedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	doc, err := a.DocDB.FindOne(context.Background(), bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to get document by ID", http.StatusNotFound, w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), aiAnalyzeTimeout)
	defer cancel()

	result, aiErr := a.callAnalysisService(ctx, aiAnalyzeRequest{
		DocumentID: docID,
		Title:      doc.Title,
		Content:    doc.Content,
	})

	analysis := models.Analysis{
		ID:          primitive.NewObjectID(),
		DocumentID:  docID,
		RequestedBy: body.RequestedBy,
		CreatedAt:   primitive.NewDateTimeFromTime(time.Now()),
	}
	if aiErr != nil {
		zap.S().Errorw("analysis service call failed", "error", aiErr, "documentId", docID)
		analysis.Status = "failed"
		analysis.Summary = "The analysis service could not be reached"
	} else {
		analysis.Status = "completed"
		analysis.Summary = result.Summary
		analysis.RiskScore = result.RiskScore
		analysis.Findings = result.Findings
		analysis.Model = result.Model
	}

	if _, err := a.DB.InsertOne(context.Background(), analysis); err != nil {
		config.ErrorStatus("failed to persist analysis", http.StatusInternalServerError, w, err)
		return
	}

	if analysis.Status == "completed" && body.RequestedBy != "" {
		a.notifyAnalysisReady(body.RequestedBy, doc.OwnerID, docID, doc.Title)
	}

	status := http.StatusOK
	if aiErr != nil {
		status = http.StatusBadGateway
	}
	b, err := json.Marshal(analysis)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(status)
	w.Write(b)
}

// AnalysesByDocumentIDHandler returns all stored analyses for a document
func (a Analysis) AnalysesByDocumentIDHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	dbResp, err := a.DB.Find(ctx, bson.M{"documentId": docID})
	if err != nil {
		config.ErrorStatus("failed to get analyses", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Analysis{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// callAnalysisService posts the document to the AI facade. Transient failures
// are retried with exponential backoff, capped at three attempts.
func (a Analysis) callAnalysisService(ctx context.Context, reqBody aiAnalyzeRequest) (*aiAnalyzeResponse, error) {
	if a.Config.AIServiceURL == "" {
		return nil, fmt.Errorf("ai service url is not configured")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	var result aiAnalyzeResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Config.AIServiceURL+"/v1/analyze", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.Config.AIServiceKey)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("analysis service returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			// client errors will not improve on retry
			return backoff.Permanent(fmt.Errorf("analysis service returned %d", resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a Analysis) notifyAnalysisReady(userID, ownerID, docID, title string) {
	notification := models.Notification{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		Type:       "analysis_ready",
		Message:    fmt.Sprintf("Analysis of %q is ready", title),
		DocumentID: docID,
		SentFromID: ownerID,
		Read:       false,
		CreatedAt:  primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := a.NDB.InsertOne(context.Background(), notification); err != nil {
		zap.S().Errorw("failed to persist analysis notification", "error", err, "documentId", docID)
		return
	}
	if a.Hub != nil {
		a.Hub.PushNotification(userID, notification)
	}
}
