package main

import (
	"propdash/pkg/app"
	"propdash/pkg/config"
)

const ServiceName = "listings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Listings service")
	serverApp := app.NewApplication(cfg)
	if err := serverApp.SetApp(); err != nil {
		cfg.Log.Fatal("Failed to initialize application", "error", err)
	}
	serverApp.Run()
}
