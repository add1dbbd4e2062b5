package databases

// go generate: mockery --name TemplateDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docketly/docketly-api/models"
)

const templateCollection = "templates"

// TemplateDatabase contains the methods to use with the template database
type TemplateDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Template, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Template, error)
	InsertOne(ctx context.Context, template models.Template) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type templateDatabase struct {
	db DatabaseHelper
}

// NewTemplateDatabase initializes a new instance of template database with the provided db connection
func NewTemplateDatabase(db DatabaseHelper) TemplateDatabase {
	return &templateDatabase{
		db: db,
	}
}

func (t *templateDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Template, error) {
	template := &models.Template{}
	err := t.db.Collection(templateCollection).FindOne(ctx, filter).Decode(&template)
	if err != nil {
		return nil, err
	}
	return template, nil
}

func (t *templateDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Template, error) {
	cursor, err := t.db.Collection(templateCollection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var templates []models.Template
	if err := cursor.Decode(&templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (t *templateDatabase) InsertOne(ctx context.Context, template models.Template) (interface{}, error) {
	res, err := t.db.Collection(templateCollection).InsertOne(ctx, template)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (t *templateDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return t.db.Collection(templateCollection).UpdateOne(ctx, filter, update, opts...)
}

func (t *templateDatabase) DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error) {
	return t.db.Collection(templateCollection).DeleteOne(ctx, filter)
}

func (t *templateDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return t.db.Collection(templateCollection).CountDocuments(ctx, filter, opts...)
}
