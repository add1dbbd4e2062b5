package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api/handlers"
	"github.com/docketly/docketly-api/databases"
)

// readNotificationRetention is how long read notifications are kept
const readNotificationRetention = 30 * 24 * time.Hour

// collabRoomMaxIdle is how long a silent collab room may linger before it is
// force-closed
const collabRoomMaxIdle = 10 * time.Minute

// Scheduler handles periodic background maintenance jobs
type Scheduler struct {
	cron      *cron.Cron
	NDB       databases.NotificationDatabase
	TokenDB   databases.TokenDatabase
	CollabHub *handlers.CollabHub
}

// NewScheduler creates a new scheduler instance
func NewScheduler(nDB databases.NotificationDatabase, tokenDB databases.TokenDatabase, hub *handlers.CollabHub) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		NDB:       nDB,
		TokenDB:   tokenDB,
		CollabHub: hub,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Purge old read notifications hourly
	_, err := s.cron.AddFunc("0 * * * *", s.purgeReadNotifications)
	if err != nil {
		zap.S().Errorw("failed to register notification purge job", "error", err)
	}

	// Purge expired password reset tokens hourly, offset from the above
	_, err = s.cron.AddFunc("30 * * * *", s.purgeExpiredResetTokens)
	if err != nil {
		zap.S().Errorw("failed to register reset token purge job", "error", err)
	}

	// Sweep collab rooms whose close frames never arrived
	_, err = s.cron.AddFunc("*/10 * * * *", s.sweepIdleCollabRooms)
	if err != nil {
		zap.S().Errorw("failed to register collab sweep job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Maintenance scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Maintenance scheduler stopped")
}

// purgeReadNotifications deletes read notifications older than the retention
// window
func (s *Scheduler) purgeReadNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-readNotificationRetention)
	res, err := s.NDB.DeleteMany(ctx, bson.M{
		"read":      true,
		"createdAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	})
	if err != nil {
		zap.S().Errorw("failed to purge read notifications", "error", err)
		return
	}
	if res.DeletedCount > 0 {
		zap.S().Infow("purged read notifications", "deleted", res.DeletedCount)
	}
}

// purgeExpiredResetTokens deletes password reset tokens past their expiry
func (s *Scheduler) purgeExpiredResetTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := s.TokenDB.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		zap.S().Errorw("failed to purge expired reset tokens", "error", err)
		return
	}
	if res.DeletedCount > 0 {
		zap.S().Infow("purged expired reset tokens", "deleted", res.DeletedCount)
	}
}

func (s *Scheduler) sweepIdleCollabRooms() {
	if s.CollabHub == nil {
		return
	}
	if swept := s.CollabHub.SweepIdleRooms(collabRoomMaxIdle); swept > 0 {
		zap.S().Infow("swept idle collab rooms", "rooms", swept)
	}
}
