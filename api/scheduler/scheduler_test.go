package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/databases/mocks"
)

func TestScheduler_PurgeReadNotifications(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("DeleteMany", mock.Anything, mock.Anything).Return(&mongo.DeleteResult{DeletedCount: 3}, nil)
	db.On("Collection", "notifications").Return(conn)

	s := NewScheduler(databases.NewNotificationDatabase(db), nil, nil)
	s.purgeReadNotifications()

	conn.AssertCalled(t, "DeleteMany", mock.Anything, mock.Anything)
}

func TestScheduler_PurgeExpiredResetTokens(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("DeleteMany", mock.Anything, mock.Anything).Return(&mongo.DeleteResult{DeletedCount: 1}, nil)
	db.On("Collection", "resetTokens").Return(conn)

	s := NewScheduler(nil, databases.NewTokenDatabase(db), nil)
	s.purgeExpiredResetTokens()

	conn.AssertCalled(t, "DeleteMany", mock.Anything, mock.Anything)
}

func TestScheduler_SweepWithoutHubIsNoop(t *testing.T) {
	s := NewScheduler(nil, nil, nil)
	s.sweepIdleCollabRooms()
}

func TestScheduler_StartStop(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	s := NewScheduler(databases.NewNotificationDatabase(db), databases.NewTokenDatabase(db), nil)

	s.Start()
	assert.NotNil(t, s.cron)
	s.Stop()
}
