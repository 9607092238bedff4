// cmd/tools/data-refresher/main.go
//
// Runs the same refresh routines the running server schedules, but once and
// from the command line. Useful for seeding data/ before first start and for
// cron-driven refreshes on hosts where the server is not running.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"acu-chatbot/internal/cache"
	"acu-chatbot/internal/common/config"
	"acu-chatbot/internal/common/database"
	httpclient "acu-chatbot/internal/common/http"
	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/devices"
	"acu-chatbot/internal/intent"
	"acu-chatbot/internal/scrape"
)

func main() {
	webOnly := flag.Bool("web-only", false, "refresh web sources and calendars, skip the device catalog")
	devicesOnly := flag.Bool("devices-only", false, "refresh only the device catalog")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the refresh run")
	flag.Parse()

	if *webOnly && *devicesOnly {
		fmt.Fprintln(os.Stderr, "Error: -web-only and -devices-only are mutually exclusive.")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, "console")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	registry, err := intent.NewRegistry(cfg.Classifier.IntentsPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "intent registry load failed: %v\n", err)
		os.Exit(1)
	}

	deviceRegistry := devices.NewRegistry(cfg.Classifier.DevicesPath, log)
	if err := deviceRegistry.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "device registry load failed: %v\n", err)
		os.Exit(1)
	}

	// Refreshed answers go to Redis when it is reachable so the running
	// server picks them up; otherwise the writes are local no-ops and only
	// the files on disk matter.
	var store cache.Store
	if cfg.Database.Redis.Address != "" {
		if redisClient, err := database.NewRedis(cfg.Database.Redis); err == nil {
			defer redisClient.Close()
			store = cache.New(redisClient.Client, log)
		}
	}
	if store == nil {
		store = cache.New(nil, log)
	}

	scrapeClient := httpclient.NewClient(config.GetDuration(cfg.Scrapers.Timeout))
	fetchers := []scrape.Fetcher{
		scrape.NewFoodScraper(scrapeClient, cfg.Scrapers.BaseURL+"/tr/yemek", log),
		scrape.NewAnnouncementScraper(scrapeClient, cfg.Scrapers.BaseURL, log),
		scrape.NewLibraryScraper(scrapeClient, cfg.Scrapers.LibraryURL, log),
		scrape.NewWeatherScraper(scrapeClient, cfg.Weather.APIKey, cfg.Weather.City, log),
	}
	calendarScraper := scrape.NewCalendarScraper(scrapeClient, cfg.Scrapers.BaseURL+"/akademik-takvim", log)
	labScraper := scrape.NewLabScraper(scrapeClient, cfg.Scrapers.BaseURL+"/laboratuvar-cihazlari", log)

	manager := scrape.NewManager(
		fetchers,
		store,
		registry,
		calendarScraper,
		deviceRegistry,
		labScraper,
		cfg.Classifier.IntentsPath,
		log,
	)

	failed := false

	if !*devicesOnly {
		if err := manager.RefreshWeb(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "web refresh failed: %v\n", err)
			failed = true
		} else {
			fmt.Println("web sources refreshed")
		}
	}

	if !*webOnly {
		if err := manager.RefreshDevices(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "device refresh failed: %v\n", err)
			failed = true
		} else {
			fmt.Printf("device catalog refreshed: %d devices\n", deviceRegistry.Len())
		}
	}

	if failed {
		os.Exit(1)
	}
}
