package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type seedItem struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Available   bool   `yaml:"available"`
}

type seedUser struct {
	Name  string     `yaml:"name"`
	Email string     `yaml:"email"`
	Items []seedItem `yaml:"items"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
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
		seedPath   = flag.String("seed", "configs/seed.yaml", "path to seed.yaml")
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
	)
	flag.Parse()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed seedFile
	if err = yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	if len(seed.Users) == 0 {
		return fmt.Errorf("no users in seed")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewDB(ctx, cfg.Database, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	users := service.NewUserService(db, &logger)
	items := service.NewItemService(db, db, db, db, &logger)

	existing, err := users.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	byEmail := make(map[string]*models.User, len(existing))
	for _, u := range existing {
		byEmail[strings.ToLower(u.Email)] = u
	}

	createdUsers, createdItems, skipped := 0, 0, 0
	for _, su := range seed.Users {
		user, ok := byEmail[strings.ToLower(su.Email)]
		if ok {
			skipped++
		} else {
			user = &models.User{Name: su.Name, Email: su.Email}
			if err := users.CreateUser(ctx, user); err != nil {
				if errors.Is(err, domain.ErrInvalidInput) {
					logger.Warn().Err(err).Str("email", su.Email).Msg("skip invalid user")
					continue
				}
				return fmt.Errorf("create user %s: %w", su.Email, err)
			}
			createdUsers++
		}

		// Items are only seeded for users this run created.
		if ok {
			continue
		}
		for _, si := range su.Items {
			item := &models.Item{Name: si.Name, Description: si.Description, Available: si.Available}
			if err := items.CreateItem(ctx, user.ID, item); err != nil {
				return fmt.Errorf("create item %s: %w", si.Name, err)
			}
			createdItems++
		}
	}

	fmt.Printf("done: users=%d items=%d skipped=%d\n", createdUsers, createdItems, skipped)
	return nil
}
