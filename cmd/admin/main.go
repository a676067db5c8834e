package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"wastetrack/backend/internal/audit"
	"wastetrack/backend/internal/config"
	"wastetrack/backend/internal/directory"
	"wastetrack/backend/internal/logger"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/stats"
	"wastetrack/backend/internal/storage"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	storageSvc := storage.NewStorageService(db) // no redis or file store needed for the admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <activate|deactivate|logs|stats> [args]")
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "activate", "deactivate":
		if len(os.Args) != 3 {
			fmt.Printf("Usage: admin %s <user_id>\n", command)
			os.Exit(1)
		}
		userID := os.Args[2]
		if err := directory.NewService(storageSvc).SetActive(ctx, userID, command == "activate"); err != nil {
			log.Fatal().Err(err).Str("user_id", userID).Msg("failed to change user")
		}
		fmt.Printf("User %s has been %sd.\n", userID, command)
	case "logs":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin logs <complaint_id>")
			os.Exit(1)
		}
		if err := printLogs(ctx, storageSvc, os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("failed to read history")
		}
	case "stats":
		if err := printStats(ctx, storageSvc); err != nil {
			log.Fatal().Err(err).Msg("failed to compute stats")
		}
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

// printLogs prints a complaint's history oldest first and checks that it is a
// valid lifecycle walk.
func printLogs(ctx context.Context, s storage.Storage, complaintID string) error {
	if _, err := s.GetComplaintByID(ctx, complaintID); err != nil {
		return err
	}
	history, err := audit.NewLog(s).ForComplaint(ctx, complaintID)
	if err != nil {
		return err
	}
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		fmt.Printf("%s  %-9s  %s  (%s)\n", e.CreatedAt.Format("2006-01-02 15:04:05.000000"), e.Action, e.Details, e.UserID)
	}

	walk, err := audit.Replay(history)
	if err != nil {
		fmt.Printf("History is NOT a valid lifecycle walk: %v\n", err)
		return nil
	}
	names := make([]string, len(walk))
	for i, st := range walk {
		names[i] = string(st)
	}
	fmt.Printf("Walk: %s\n", strings.Join(names, " -> "))
	return nil
}

func printStats(ctx context.Context, s storage.Storage) error {
	out, err := stats.NewAggregator(s).For(ctx, &models.User{Role: models.RoleAgent})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
