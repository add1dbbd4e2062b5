package databases

// go generate: mockery --name TokenDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docketly/docketly-api/models"
)

const tokenCollection = "resetTokens"

// TokenDatabase contains the methods to use with the password reset token database
type TokenDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.ResetToken, error)
	InsertOne(ctx context.Context, token models.ResetToken) (interface{}, error)
	DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
}

type tokenDatabase struct {
	db DatabaseHelper
}

// NewTokenDatabase initializes a new instance of token database with the provided db connection
func NewTokenDatabase(db DatabaseHelper) TokenDatabase {
	return &tokenDatabase{
		db: db,
	}
}

func (t *tokenDatabase) FindOne(ctx context.Context, filter interface{}) (*models.ResetToken, error) {
	token := &models.ResetToken{}
	err := t.db.Collection(tokenCollection).FindOne(ctx, filter).Decode(&token)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (t *tokenDatabase) InsertOne(ctx context.Context, token models.ResetToken) (interface{}, error) {
	res, err := t.db.Collection(tokenCollection).InsertOne(ctx, token)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (t *tokenDatabase) DeleteOne(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error) {
	return t.db.Collection(tokenCollection).DeleteOne(ctx, filter)
}

func (t *tokenDatabase) DeleteMany(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error) {
	return t.db.Collection(tokenCollection).DeleteMany(ctx, filter)
}
