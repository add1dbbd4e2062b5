package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docketly/docketly-api/api/handlers"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/databases/mocks"
	"github.com/docketly/docketly-api/models"
)

func TestDocument_DocumentByIDHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/document/1234", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"document_id": "1234"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{}

	d := handlers.Document{
		DB: databases.NewDocumentDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(d.DocumentByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "failed to get objectID from Hex, the provided hex string is not a valid ObjectID"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestDocument_DocumentByIDHandlerSuccess(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/document/608cafe595eb9dc05379b7f4", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"document_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Document)
		(*arg).Title = "Merger Agreement"
		(*arg).OwnerID = "u1"
		(*arg).Status = "draft"
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*MockDatabaseHelper).On("Collection", "documents").Return(conn)

	d := handlers.Document{
		DB: databases.NewDocumentDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(d.DocumentByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "Merger Agreement") {
		t.Errorf("handler returned unexpected body: %v", rr.Body.String())
	}
}

func TestDocument_DocumentsHandlerFindError(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/documents?owner_id=u1&limit=10&page=0", nil)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}

	conn.(*mocks.CollectionHelper).On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	db.(*MockDatabaseHelper).On("Collection", "documents").Return(conn)

	d := handlers.Document{
		DB: databases.NewDocumentDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(d.DocumentsHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}

	expected := `{"response": "failed to get documents, mocked-error"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestDocument_CreateDocumentHandlerMissingFields(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/document", strings.NewReader(`{"title": "Merger Agreement"}`))
	if err != nil {
		t.Fatal(err)
	}

	d := handlers.Document{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(d.CreateDocumentHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "title and ownerId are required, missing required fields"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestDocument_UpdateDocumentHandlerStripsProtectedFields(t *testing.T) {
	body := `{"content": "new body", "ownerId": "intruder", "version": 99}`
	req, err := http.NewRequest("PUT", "/api/v1/document/608cafe595eb9dc05379b7f4", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"document_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}

	var captured bson.M
	conn.(*mocks.CollectionHelper).On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{ModifiedCount: 1}, nil).Run(func(args mock.Arguments) {
		captured = args.Get(2).(bson.M)
	})
	db.(*MockDatabaseHelper).On("Collection", "documents").Return(conn)

	d := handlers.Document{
		DB: databases.NewDocumentDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(d.UpdateDocumentHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	set := captured["$set"].(map[string]interface{})
	if _, ok := set["ownerId"]; ok {
		t.Errorf("ownerId must not be updatable, got $set: %v", set)
	}
	if _, ok := set["version"]; ok {
		t.Errorf("version must not be directly updatable, got $set: %v", set)
	}
	if set["content"] != "new body" {
		t.Errorf("expected content to be updated, got $set: %v", set)
	}
	inc := captured["$inc"].(bson.M)
	if inc["version"] != 1 {
		t.Errorf("expected the version counter to be bumped, got $inc: %v", inc)
	}
}

func TestDocument_ExportDocumentHandlerText(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/document/608cafe595eb9dc05379b7f4/export?format=text", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"document_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Document)
		(*arg).Title = "Engagement Letter"
		(*arg).Content = "Dear Client,\nThank you."
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*MockDatabaseHelper).On("Collection", "documents").Return(conn)

	d := handlers.Document{
		DB: databases.NewDocumentDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(d.ExportDocumentHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected a text/plain export, got %v", ct)
	}
	if !strings.Contains(rr.Body.String(), "Engagement Letter") || !strings.Contains(rr.Body.String(), "Thank you.") {
		t.Errorf("export is missing document content: %v", rr.Body.String())
	}
}

func TestDocument_ShareDocumentHandlerInvalidPermission(t *testing.T) {
	body := `{"userId": "608cafe595eb9dc05379b7f5", "permission": "owner"}`
	req, err := http.NewRequest("POST", "/api/v1/document/608cafe595eb9dc05379b7f4/share", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"document_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	d := handlers.Document{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(d.ShareDocumentHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "permission must be view, comment or edit, invalid permission "owner""}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}
