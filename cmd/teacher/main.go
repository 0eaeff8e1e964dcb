// Command teacher drives the EcoQuest API from a terminal: sign in, review
// submissions, manage the roster and print ID cards.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"ecoquest/internal/api"
	"ecoquest/internal/config"
	"ecoquest/internal/database"
	"ecoquest/internal/logging"
	"ecoquest/internal/repository"
	"ecoquest/internal/service"
	"ecoquest/internal/session"
)

const cardPNGSize = 512

// readPasswordFunc reads the password without echo; replaced in tests
var readPasswordFunc = func() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(b), err
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	cfg := config.Load()
	logger := logging.New(cfg)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stateRepo := repository.NewStateRepository(db)
	sessions, err := session.NewStore(stateRepo, cfg.SessionSecret, cfg.SessionDuration)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}

	client := api.New(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout)
	email, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	a := &app{
		auth:         client,
		identity:     sessions.Scope(""),
		dashboard:    service.NewDashboardService(client, email, logger),
		classroom:    service.NewClassroomService(client),
		students:     service.NewStudentService(client),
		cards:        service.NewCardService(cardPNGSize),
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		readPassword: readPasswordFunc,
		scanTimeout:  2 * time.Minute,
	}

	if err := run(ctx, a, os.Args[1:]); err != nil {
		if err != errUsage {
			fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		}
		stop()
		db.Close()
		os.Exit(1)
	}
}
