package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router          *mux.Router
	DB              databases.CollectionHelper
	Config          config.Config
	CollabHub       *CollabHub
	NotificationHub *NotificationHub
	dbHelper        databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	if a.NotificationHub == nil {
		a.NotificationHub = NewNotificationHub()
	}
	if a.CollabHub == nil {
		a.CollabHub = NewCollabHub(a.Config.JWTSecret)
	}

	u := User{DB: databases.NewUserDatabase(a.dbHelper), TokenDB: databases.NewTokenDatabase(a.dbHelper), Config: a.Config}
	d := Document{
		DB:     databases.NewDocumentDatabase(a.dbHelper),
		UDB:    databases.NewUserDatabase(a.dbHelper),
		NDB:    databases.NewNotificationDatabase(a.dbHelper),
		Hub:    a.NotificationHub,
		Config: a.Config,
	}
	tmpl := Template{DB: databases.NewTemplateDatabase(a.dbHelper), ClauseDB: databases.NewClauseDatabase(a.dbHelper), DocDB: databases.NewDocumentDatabase(a.dbHelper)}
	an := Analysis{
		DB:     databases.NewAnalysisDatabase(a.dbHelper),
		DocDB:  databases.NewDocumentDatabase(a.dbHelper),
		NDB:    databases.NewNotificationDatabase(a.dbHelper),
		Hub:    a.NotificationHub,
		Config: a.Config,
	}
	n := Notification{DB: databases.NewNotificationDatabase(a.dbHelper), Hub: a.NotificationHub}
	up := Upload{DocDB: databases.NewDocumentDatabase(a.dbHelper)}
	b := Billing{DB: databases.NewUserDatabase(a.dbHelper), Config: a.Config}
	ct := CollabToken{Config: a.Config}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// websocket channels authenticate inside the handler, not via go-guardian
	r.HandleFunc("/ws/collab/{document_id}", a.CollabHub.ServeWS)
	r.HandleFunc("/ws/notifications", a.NotificationHub.ServeWS)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/check-user", http.HandlerFunc(u.UserCheckEmailHandler)).Methods("POST")
	apiCreate.Handle("/user/forgot-password", http.HandlerFunc(u.ForgotPasswordHandler)).Methods("POST")
	apiCreate.Handle("/user/reset-password", http.HandlerFunc(u.ResetPasswordHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UpdateUserByIDHandler))).Methods("PUT")

	apiCreate.Handle("/collab/token", api.Middleware(http.HandlerFunc(ct.CreateCollabTokenHandler))).Methods("POST")

	apiCreate.Handle("/document", api.Middleware(http.HandlerFunc(d.CreateDocumentHandler))).Methods("POST")
	apiCreate.Handle("/documents", api.Middleware(http.HandlerFunc(d.DocumentsHandler))).Methods("GET")
	apiCreate.Handle("/documents/search", api.Middleware(http.HandlerFunc(d.DocumentSearchHandler))).Methods("GET")
	apiCreate.Handle("/document/{document_id}", api.Middleware(http.HandlerFunc(d.DocumentByIDHandler))).Methods("GET")
	apiCreate.Handle("/document/{document_id}", api.Middleware(http.HandlerFunc(d.UpdateDocumentHandler))).Methods("PUT")
	apiCreate.Handle("/document/{document_id}", api.Middleware(http.HandlerFunc(d.DeleteDocumentHandler))).Methods("DELETE")
	apiCreate.Handle("/document/{document_id}/share", api.Middleware(http.HandlerFunc(d.ShareDocumentHandler))).Methods("POST")
	apiCreate.Handle("/document/{document_id}/duplicate", api.Middleware(http.HandlerFunc(d.DuplicateDocumentHandler))).Methods("POST")
	apiCreate.Handle("/document/{document_id}/export", api.Middleware(http.HandlerFunc(d.ExportDocumentHandler))).Methods("GET")
	apiCreate.Handle("/document/{document_id}/analyze", api.Middleware(http.HandlerFunc(an.AnalyzeDocumentHandler))).Methods("POST")
	apiCreate.Handle("/document/{document_id}/analyses", api.Middleware(http.HandlerFunc(an.AnalysesByDocumentIDHandler))).Methods("GET")
	apiCreate.Handle("/document/{document_id}/attachments", api.Middleware(http.HandlerFunc(up.UploadAttachmentHandler))).Methods("POST")

	apiCreate.Handle("/template", api.Middleware(http.HandlerFunc(tmpl.CreateTemplateHandler))).Methods("POST")
	apiCreate.Handle("/templates", api.Middleware(http.HandlerFunc(tmpl.TemplatesHandler))).Methods("GET")
	apiCreate.Handle("/template/{template_id}", api.Middleware(http.HandlerFunc(tmpl.TemplateByIDHandler))).Methods("GET")
	apiCreate.Handle("/template/{template_id}", api.Middleware(http.HandlerFunc(tmpl.UpdateTemplateHandler))).Methods("PUT")
	apiCreate.Handle("/template/{template_id}", api.Middleware(http.HandlerFunc(tmpl.DeleteTemplateHandler))).Methods("DELETE")
	apiCreate.Handle("/template/{template_id}/instantiate", api.Middleware(http.HandlerFunc(tmpl.InstantiateTemplateHandler))).Methods("POST")

	apiCreate.Handle("/clause", api.Middleware(http.HandlerFunc(tmpl.CreateClauseHandler))).Methods("POST")
	apiCreate.Handle("/clauses", api.Middleware(http.HandlerFunc(tmpl.ClausesHandler))).Methods("GET")

	apiCreate.Handle("/users/{user_id}/notifications", api.Middleware(http.HandlerFunc(n.GetUserNotificationsHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}/notifications/{notification_id}/read", api.Middleware(http.HandlerFunc(n.MarkNotificationAsReadHandler))).Methods("PUT")
	apiCreate.Handle("/user/{user_id}/notifications/{notification_id}", api.Middleware(http.HandlerFunc(n.DeleteNotificationHandler))).Methods("DELETE")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(up.GenerateSignature))).Methods("POST")

	apiCreate.Handle("/billing/create-checkout-session", api.Middleware(http.HandlerFunc(b.CreateCheckoutSessionHandler))).Methods("POST")
	apiCreate.Handle("/billing/verify-subscription", api.Middleware(http.HandlerFunc(b.VerifySubscriptionHandler))).Methods("POST")
	apiCreate.Handle("/billing/unsubscribe", api.Middleware(http.HandlerFunc(b.UnsubscribeHandler))).Methods("POST")

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/"))))
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("docketly-api has connected to the database")

	// initialize stripe
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		return fmt.Errorf("stripe secret key is not set")
	}
	stripe.Key = stripeKey

	// initialize api router
	a.initializeRoutes()
	return nil

}

// DBHelper exposes the database layer for background jobs started from main
func (a *App) DBHelper() databases.DatabaseHelper {
	return a.dbHelper
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
