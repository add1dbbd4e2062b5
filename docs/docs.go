// Package docs Docketly API.
//
// Documentation of the Docketly legal document management API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://api.docketly.io
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/docketly/docketly-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/v1/document/{document_id} document documentByID
// Gets a single document by ID.
// responses:
//   200: documentByIDResponse

// Shows a single document by the given {ID}
// swagger:response documentByIDResponse
type documentByIDResponseWrapper struct {
	// in:body
	Body models.Document
}

// swagger:route GET /api/v1/template/{template_id} template templateByID
// Gets a single template by ID.
// responses:
//   200: templateByIDResponse

// Shows a single template by the given {ID}
// swagger:response templateByIDResponse
type templateByIDResponseWrapper struct {
	// in:body
	Body models.Template
}

// swagger:route GET /api/v1/document/{document_id}/analyses analysis analysesByDocumentID
// Lists the AI analyses recorded for a document.
// responses:
//   200: analysesByDocumentIDResponse

// Shows the analyses recorded for the given document, newest first.
// swagger:response analysesByDocumentIDResponse
type analysesByDocumentIDResponseWrapper struct {
	// in:body
	Body []models.Analysis
}
