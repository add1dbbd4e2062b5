package databases

// go generate: mockery --name ClauseDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docketly/docketly-api/models"
)

const clauseCollection = "clauses"

// ClauseDatabase contains the methods to use with the clause library database
type ClauseDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Clause, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Clause, error)
	InsertOne(ctx context.Context, clause models.Clause) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type clauseDatabase struct {
	db DatabaseHelper
}

// NewClauseDatabase initializes a new instance of clause database with the provided db connection
func NewClauseDatabase(db DatabaseHelper) ClauseDatabase {
	return &clauseDatabase{
		db: db,
	}
}

func (c *clauseDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Clause, error) {
	clause := &models.Clause{}
	err := c.db.Collection(clauseCollection).FindOne(ctx, filter).Decode(&clause)
	if err != nil {
		return nil, err
	}
	return clause, nil
}

func (c *clauseDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Clause, error) {
	cursor, err := c.db.Collection(clauseCollection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var clauses []models.Clause
	if err := cursor.Decode(&clauses); err != nil {
		return nil, err
	}
	return clauses, nil
}

func (c *clauseDatabase) InsertOne(ctx context.Context, clause models.Clause) (interface{}, error) {
	res, err := c.db.Collection(clauseCollection).InsertOne(ctx, clause)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (c *clauseDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(clauseCollection).UpdateOne(ctx, filter, update, opts...)
}
