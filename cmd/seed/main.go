// Seeds the database with sample profiles and parties for the current
// weekend. Development convenience only; refuses to run in production.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/templeparties/backend/internal/domain/identity"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/infrastructure/config"
	"github.com/templeparties/backend/internal/infrastructure/logger"
	"github.com/templeparties/backend/internal/infrastructure/persistence"
)

type seedParty struct {
	title       string
	host        string
	category    string
	location    string
	description string
	day         string
	doorsOpen   string
	going       int
	approve     bool
}

var sampleParties = []seedParty{
	{
		title:       "Diamond Street Basement Show",
		host:        "The Attic Crew",
		category:    "House Show",
		location:    "2100 N 17th St",
		description: "Three local bands, byob, small cover for the touring act.",
		day:         "friday",
		doorsOpen:   "10pm",
		going:       23,
		approve:     true,
	},
	{
		title:       "Rooftop Sunset Social",
		host:        "Kappa Sig",
		category:    "Rooftop",
		location:    "1810 Liacouras Walk",
		description: "Chill start to the weekend, music until midnight.",
		day:         "friday",
		doorsOpen:   "8pm",
		going:       11,
		approve:     true,
	},
	{
		title:       "Norris Street Rager",
		host:        "The Brothers",
		category:    "House Party",
		location:    "1600 block of Norris St",
		day:         "saturday",
		doorsOpen:   "11pm",
		going:       41,
		approve:     true,
	},
	{
		title:       "Game Day Pregame",
		host:        "Club Rugby",
		category:    "Darty",
		location:    "Backyard off Montgomery Ave",
		day:         "saturday",
		doorsOpen:   "12pm",
		going:       7,
		approve:     true,
	},
	{
		title:       "Mystery Warehouse Party",
		host:        "Anonymous",
		category:    "Warehouse",
		location:    "DM for address",
		day:         "saturday",
		doorsOpen:   "midnight",
		approve:     false, // left pending so the admin queue has content
	},
}

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.App.Env == "production" {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	profileRepo := persistence.NewGormProfileRepository(db.DB)
	partyRepo := persistence.NewGormPartyRepository(db.DB)

	host, err := identity.NewProfile("seedhost@"+cfg.Auth.AllowedEmailDomain, cfg.Auth.AllowedEmailDomain)
	if err != nil {
		log.Fatal("Failed to build seed profile", zap.Error(err))
	}
	if err := host.SetUsername("seedhost"); err != nil {
		log.Fatal("Failed to set seed username", zap.Error(err))
	}
	host.ClearDomainEvents()
	if err := profileRepo.Save(ctx, host); err != nil {
		log.Fatal("Failed to save seed profile (already seeded?)", zap.Error(err))
	}

	now := time.Now()
	created := 0
	for _, s := range sampleParties {
		p, err := party.NewParty(party.NewPartyInput{
			Title:       s.title,
			Host:        s.host,
			Category:    s.category,
			Location:    s.location,
			Description: s.description,
			Day:         s.day,
			DoorsOpen:   s.doorsOpen,
		}, host.ID, now)
		if err != nil {
			log.Fatal("Failed to build seed party", zap.String("title", s.title), zap.Error(err))
		}
		if s.approve {
			if err := p.Approve(); err != nil {
				log.Fatal("Failed to approve seed party", zap.Error(err))
			}
			p.GoingCount = s.going
		}
		p.ClearDomainEvents()

		if err := partyRepo.Save(ctx, p); err != nil {
			log.Fatal("Failed to save seed party", zap.String("title", s.title), zap.Error(err))
		}
		created++
	}

	log.Info("Seed complete",
		zap.Int("parties", created),
		zap.String("weekend_of", party.WeekendOf(now).Format("2006-01-02")),
		zap.String("host_profile", host.ID.String()))
}
