package databases

// go generate: mockery --name AnalysisDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docketly/docketly-api/models"
)

const analysisCollection = "analyses"

// AnalysisDatabase contains the methods to use with the analysis database
type AnalysisDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Analysis, error)
	InsertOne(ctx context.Context, analysis models.Analysis) (interface{}, error)
}

type analysisDatabase struct {
	db DatabaseHelper
}

// NewAnalysisDatabase initializes a new instance of analysis database with the provided db connection
func NewAnalysisDatabase(db DatabaseHelper) AnalysisDatabase {
	return &analysisDatabase{
		db: db,
	}
}

func (a *analysisDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Analysis, error) {
	cursor, err := a.db.Collection(analysisCollection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var analyses []models.Analysis
	if err := cursor.Decode(&analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

func (a *analysisDatabase) InsertOne(ctx context.Context, analysis models.Analysis) (interface{}, error) {
	res, err := a.db.Collection(analysisCollection).InsertOne(ctx, analysis)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}
