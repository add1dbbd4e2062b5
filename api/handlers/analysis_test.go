package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docketly/docketly-api/api/handlers"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/databases/mocks"
	"github.com/docketly/docketly-api/models"
)

func newAnalysisMocks(t *testing.T) (databases.DatabaseHelper, *mocks.CollectionHelper, *mocks.CollectionHelper) {
	t.Helper()

	db := &MockDatabaseHelper{}
	docConn := &mocks.CollectionHelper{}
	analysisConn := &mocks.CollectionHelper{}

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Document)
		(*arg).Title = "Service Agreement"
		(*arg).Content = "The vendor shall indemnify the client."
		(*arg).OwnerID = "u1"
	})
	docConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)

	insertResultHelper := &mocks.InsertOneResultHelper{}
	insertResultHelper.On("Decode").Return(nil)
	analysisConn.On("InsertOne", mock.Anything, mock.Anything).Return(insertResultHelper, nil)

	db.On("Collection", "documents").Return(docConn)
	db.On("Collection", "analyses").Return(analysisConn)
	return db, docConn, analysisConn
}

func TestAnalysis_AnalyzeDocumentHandler(t *testing.T) {
	aiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyze", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"summary":   "Low risk indemnification clause",
			"riskScore": 0.2,
			"model":     "contracts-v1",
		})
	}))
	defer aiSrv.Close()

	db, _, analysisConn := newAnalysisMocks(t)

	a := handlers.Analysis{
		DB:     databases.NewAnalysisDatabase(db),
		DocDB:  databases.NewDocumentDatabase(db),
		Config: config.Config{AIServiceURL: aiSrv.URL, AIServiceKey: "test-key"},
	}

	req, err := http.NewRequest("POST", "/api/v1/document/608cafe595eb9dc05379b7f4/analyze", strings.NewReader(`{"requestedBy": ""}`))
	require.NoError(t, err)
	req = mux.SetURLVars(req, map[string]string{"document_id": "608cafe595eb9dc05379b7f4"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.AnalyzeDocumentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Low risk indemnification clause")
	assert.Contains(t, rr.Body.String(), `"status":"completed"`)
	analysisConn.AssertCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestAnalysis_AnalyzeDocumentHandlerServiceDown(t *testing.T) {
	aiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer aiSrv.Close()

	db, _, analysisConn := newAnalysisMocks(t)

	a := handlers.Analysis{
		DB:     databases.NewAnalysisDatabase(db),
		DocDB:  databases.NewDocumentDatabase(db),
		Config: config.Config{AIServiceURL: aiSrv.URL, AIServiceKey: "test-key"},
	}

	req, err := http.NewRequest("POST", "/api/v1/document/608cafe595eb9dc05379b7f4/analyze", strings.NewReader(`{}`))
	require.NoError(t, err)
	req = mux.SetURLVars(req, map[string]string{"document_id": "608cafe595eb9dc05379b7f4"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.AnalyzeDocumentHandler).ServeHTTP(rr, req)

	// a failed call still produces a persisted failure record
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"failed"`)
	analysisConn.AssertCalled(t, "InsertOne", mock.Anything, mock.Anything)
}
