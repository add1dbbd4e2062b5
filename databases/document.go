package databases

// go generate: mockery --name DocumentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docketly/docketly-api/models"
)

const documentCollection = "documents"

// DocumentDatabase contains the methods to use with the document database
type DocumentDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Document, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Document, error)
	InsertOne(ctx context.Context, document models.Document) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type documentDatabase struct {
	db DatabaseHelper
}

// NewDocumentDatabase initializes a new instance of document database with the provided db connection
func NewDocumentDatabase(db DatabaseHelper) DocumentDatabase {
	return &documentDatabase{
		db: db,
	}
}

func (d *documentDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Document, error) {
	document := &models.Document{}
	err := d.db.Collection(documentCollection).FindOne(ctx, filter).Decode(&document)
	if err != nil {
		return nil, err
	}
	return document, nil
}

func (d *documentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Document, error) {
	cursor, err := d.db.Collection(documentCollection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var documents []models.Document
	if err := cursor.Decode(&documents); err != nil {
		return nil, err
	}
	return documents, nil
}

func (d *documentDatabase) InsertOne(ctx context.Context, document models.Document) (interface{}, error) {
	res, err := d.db.Collection(documentCollection).InsertOne(ctx, document)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (d *documentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return d.db.Collection(documentCollection).UpdateOne(ctx, filter, update, opts...)
}

func (d *documentDatabase) DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error) {
	return d.db.Collection(documentCollection).DeleteOne(ctx, filter)
}

func (d *documentDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return d.db.Collection(documentCollection).CountDocuments(ctx, filter, opts...)
}
