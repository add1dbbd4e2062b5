package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/docketly/docketly-api/api/handlers"
	"github.com/docketly/docketly-api/api/scheduler"
	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	err := a.Initialize() //initialize database and router
	if err != nil {
		log.Fatal(err)
	}

	s := scheduler.NewScheduler(
		databases.NewNotificationDatabase(a.DBHelper()),
		databases.NewTokenDatabase(a.DBHelper()),
		a.CollabHub,
	)
	s.Start()
	defer s.Stop()

	port := os.Getenv("PORT")
	baseURL := os.Getenv("BASE_URL")
	zap.S().Infow("docketly-api is up and running",
		"port", port,
		"url", baseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), a.Router))
}
