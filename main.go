package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/estateplan/apiv1/auth"
	"github.com/estateplan/apiv1/notifier"
	"github.com/estateplan/apiv1/routes"
	"github.com/estateplan/apiv1/store"
	"github.com/estateplan/apiv1/utils"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// .env is optional; deployments usually inject the environment directly
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	userStore, err := store.OpenGormStore()
	if err != nil {
		slog.Error("database open failed", "error", err)
		os.Exit(1)
	}
	smtpNotifier, err := notifier.NewSMTPNotifier()
	if err != nil {
		slog.Error("notifier setup failed", "error", err)
		os.Exit(1)
	}
	svc := auth.NewService(userStore, smtpNotifier)

	r := mux.NewRouter()
	r.StrictSlash(true)
	routes.CreateRoutes(r, svc)

	port := os.Getenv(utils.PORT)
	if port == "" {
		port = "5005"
	}
	slog.Info("listening", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
