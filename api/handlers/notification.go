package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

// NotificationHub tracks one push connection per user (userId -> client)
type NotificationHub struct {
	mutex   sync.Mutex
	clients map[string]*notificationClient
}

// notificationClient wraps one user's push connection. writeMu serializes
// frames to the connection; gorilla allows a single concurrent writer.
type notificationClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (c *notificationClient) write(payload interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(payload)
}

// NewNotificationHub returns an empty hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients: make(map[string]*notificationClient),
	}
}

// ServeWS upgrades the request and registers the user's push channel
func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		conn.Close()
		return
	}

	h.mutex.Lock()
	// a reconnect replaces any lingering channel for the same user
	if old, ok := h.clients[userID]; ok {
		old.conn.Close()
	}
	h.clients[userID] = &notificationClient{conn: conn}
	h.mutex.Unlock()
	zap.S().Infow("user connected to notifications channel", "userId", userID)

	conn.SetCloseHandler(func(code int, text string) error {
		h.remove(userID, conn)
		zap.S().Infow("user disconnected from notifications channel", "userId", userID)
		return nil
	})

	// the push channel is one-way; drain frames to observe disconnects
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.remove(userID, conn)
			conn.Close()
			break
		}
	}
}

// PushNotification delivers a new_notification event if the user is connected
func (h *NotificationHub) PushNotification(userID string, notification models.Notification) {
	h.push(userID, "new_notification", notification)
}

// PushUnreadCount delivers an unread_count_updated event if the user is connected
func (h *NotificationHub) PushUnreadCount(userID string, count int64) {
	h.push(userID, "unread_count_updated", map[string]int64{"unreadCount": count})
}

func (h *NotificationHub) push(userID, event string, data interface{}) {
	h.mutex.Lock()
	client, exists := h.clients[userID]
	h.mutex.Unlock()
	if !exists {
		return
	}

	err := client.write(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		zap.S().Warnw("failed to push event, evicting connection", "event", event, "userId", userID, "error", err)
		h.remove(userID, client.conn)
		client.conn.Close()
	}
}

func (h *NotificationHub) remove(userID string, conn *websocket.Conn) {
	h.mutex.Lock()
	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
	}
	h.mutex.Unlock()
}

// Notification exported for testing purposes
type Notification struct {
	DB  databases.NotificationDatabase
	Hub *NotificationHub
}

// GetUserNotificationsHandler returns a user's notifications, newest first,
// along with the unread count
func (n Notification) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sort := bson.D{{Key: "createdAt", Value: -1}}
	dbResp, err := n.DB.Find(ctx, bson.M{"userId": userID}, &options.FindOptions{Sort: sort})
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Notification{}
	}

	unread, err := n.DB.CountDocuments(ctx, bson.M{"userId": userID, "read": false})
	if err != nil {
		config.ErrorStatus("failed to count unread notifications", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(map[string]interface{}{
		"notifications": dbResp,
		"unreadCount":   unread,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkNotificationAsReadHandler marks one notification as read and pushes the
// refreshed unread count
func (n Notification) MarkNotificationAsReadHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	notificationID := mux.Vars(r)["notification_id"]

	nID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	_, err = n.DB.UpdateOne(context.Background(), bson.M{"_id": nID, "userId": userID}, bson.M{
		"$set": bson.M{"read": true},
	})
	if err != nil {
		config.ErrorStatus("failed to mark notification as read", http.StatusInternalServerError, w, err)
		return
	}

	n.pushUnreadCount(userID)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Notification marked as read",
	})
}

// DeleteNotificationHandler deletes a notification by ID
func (n Notification) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	notificationID := mux.Vars(r)["notification_id"]

	nID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	_, err = n.DB.DeleteOne(context.Background(), bson.M{"_id": nID, "userId": userID})
	if err != nil {
		config.ErrorStatus("failed to delete notification", http.StatusInternalServerError, w, err)
		return
	}

	n.pushUnreadCount(userID)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Notification deleted successfully",
	})
}

func (n Notification) pushUnreadCount(userID string) {
	if n.Hub == nil {
		return
	}
	count, err := n.DB.CountDocuments(context.Background(), bson.M{"userId": userID, "read": false})
	if err != nil {
		zap.S().Debugw("failed to count unread notifications", "error", err, "userId", userID)
		return
	}
	n.Hub.PushUnreadCount(userID, count)
}
