package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"deskhub/internal/database"
	"deskhub/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type seedsFile struct {
	Users []models.User `yaml:"users"`
	Tags  []models.Tag  `yaml:"tags"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedsPath = flag.String("seeds", "configs/seeds.yaml", "path to seeds.yaml")
		dbPath    = flag.String("db", "./data/deskhub.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*seedsPath)
	if err != nil {
		return fmt.Errorf("read seeds: %w", err)
	}

	var seeds seedsFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parse seeds: %w", err)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := range seeds.Users {
		if err := db.CreateOrUpdateUser(ctx, &seeds.Users[i]); err != nil {
			return fmt.Errorf("seed user %q: %w", seeds.Users[i].Email, err)
		}
		logger.Info().Int64("id", seeds.Users[i].ID).Str("email", seeds.Users[i].Email).Msg("user seeded")
	}
	for i := range seeds.Tags {
		if err := db.UpsertTag(ctx, &seeds.Tags[i]); err != nil {
			return fmt.Errorf("seed tag %q: %w", seeds.Tags[i].Name, err)
		}
	}
	logger.Info().Int("users", len(seeds.Users)).Int("tags", len(seeds.Tags)).Msg("seeding complete")

	return nil
}
