package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docketly/docketly-api/api/handlers"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/databases/mocks"
	"github.com/docketly/docketly-api/models"
)

func TestTemplate_TemplateByIDHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/template/1234", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"template_id": "1234"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{}

	tmpl := handlers.Template{
		DB: databases.NewTemplateDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(tmpl.TemplateByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "failed to get objectID from Hex, the provided hex string is not a valid ObjectID"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestTemplate_InstantiateTemplateHandler(t *testing.T) {
	body := `{"title": "Acme NDA", "ownerId": "u1", "variables": {"clientName": "Acme Corp"}}`
	req, err := http.NewRequest("POST", "/api/v1/template/608cafe595eb9dc05379b7f4/instantiate", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"template_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var templateConn databases.CollectionHelper
	var docConn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper
	var insertResultHelper databases.InsertOneResultHelper

	db = &MockDatabaseHelper{}
	templateConn = &mocks.CollectionHelper{}
	docConn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}
	insertResultHelper = &mocks.InsertOneResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Template)
		(*arg).Name = "Mutual NDA"
		(*arg).Body = "THIS AGREEMENT is between {{clientName}} and {{firmName}}."
	})
	templateConn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	templateConn.(*mocks.CollectionHelper).On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	var inserted models.Document
	insertResultHelper.(*mocks.InsertOneResultHelper).On("Decode").Return(nil)
	docConn.(*mocks.CollectionHelper).On("InsertOne", mock.Anything, mock.Anything).Return(insertResultHelper, nil).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(models.Document)
	})

	db.(*MockDatabaseHelper).On("Collection", "templates").Return(templateConn)
	db.(*MockDatabaseHelper).On("Collection", "documents").Return(docConn)

	tmpl := handlers.Template{
		DB:    databases.NewTemplateDatabase(db),
		DocDB: databases.NewDocumentDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(tmpl.InstantiateTemplateHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}

	// matched placeholders are filled, unmatched ones stay visible
	if inserted.Content != "THIS AGREEMENT is between Acme Corp and {{firmName}}." {
		t.Errorf("unexpected instantiated content: %v", inserted.Content)
	}
	if inserted.Title != "Acme NDA" {
		t.Errorf("unexpected instantiated title: %v", inserted.Title)
	}
	if inserted.Status != "draft" {
		t.Errorf("expected a draft document, got status: %v", inserted.Status)
	}
	if inserted.TemplateID != "608cafe595eb9dc05379b7f4" {
		t.Errorf("expected the document to reference its template, got: %v", inserted.TemplateID)
	}

	// instantiation bumps the usage counter
	templateConn.(*mocks.CollectionHelper).AssertCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestTemplate_InstantiateTemplateHandlerMissingOwner(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/template/608cafe595eb9dc05379b7f4/instantiate", strings.NewReader(`{"title": "Acme NDA"}`))
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"template_id": "608cafe595eb9dc05379b7f4"})
	req.Header.Set("Authorization", "Bearer abc123")

	tmpl := handlers.Template{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(tmpl.InstantiateTemplateHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "ownerId is required, missing ownerId"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestTemplate_CreateClauseHandlerMissingFields(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/clause", strings.NewReader(`{"name": "Indemnification"}`))
	if err != nil {
		t.Fatal(err)
	}

	tmpl := handlers.Template{}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(tmpl.CreateClauseHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "name and text are required, missing required fields"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestTemplate_ClausesHandlerFindError(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/clauses?category=liability", nil)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}

	conn.(*mocks.CollectionHelper).On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	db.(*MockDatabaseHelper).On("Collection", "clauses").Return(conn)

	tmpl := handlers.Template{
		ClauseDB: databases.NewClauseDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(tmpl.ClausesHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}

	expected := `{"response": "failed to get clauses, mocked-error"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}
