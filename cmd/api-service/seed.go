package main

import (
	"log/slog"
	"time"

	"github.com/cuongbtq/appointment-service/internal/api/auth"
	"github.com/cuongbtq/appointment-service/internal/api/storage"
	"github.com/cuongbtq/appointment-service/internal/config"
	"github.com/cuongbtq/appointment-service/internal/model"
)

var demoUsers = []model.User{
	{ID: "7d3f2b10-1c2d-4e5f-8a9b-0c1d2e3f4a5b", Name: "Carlos Barbeiro", Email: "carlos@gobarber.com", Provider: true},
	{ID: "9b8e7d6c-5a4b-4c3d-8e2f-1a0b9c8d7e6f", Name: "Bruna Cabeleireira", Email: "bruna@gobarber.com", Provider: true},
	{ID: "5f0a6c1e-9a53-4b8e-9f0a-6c1e9a534b8e", Name: "Ana Cliente", Email: "ana@example.com"},
}

// seedDemo fills the in-memory store and logs a bearer token per user
func seedDemo(store *storage.Memory, cfg config.AuthConfig, logger *slog.Logger) error {
	now := time.Now()
	for _, u := range demoUsers {
		u.CreatedAt = now
		store.SeedUser(u)

		token, err := auth.MakeToken(u.ID, cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return err
		}
		logger.Info("Demo user",
			slog.String("id", u.ID),
			slog.String("name", u.Name),
			slog.Bool("provider", u.Provider),
			slog.String("token", token),
		)
	}
	return nil
}
