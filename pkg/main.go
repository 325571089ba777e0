package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	pkg "github.com/banterhq/banter/pkg/internal"
	"github.com/banterhq/banter/pkg/internal/cache"
	"github.com/banterhq/banter/pkg/internal/database"
	"github.com/banterhq/banter/pkg/internal/gateway"
	"github.com/banterhq/banter/pkg/internal/http"
	"github.com/banterhq/banter/pkg/internal/http/api"
	"github.com/banterhq/banter/pkg/internal/services"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	color.New(color.FgHiCyan, color.Bold).Printf("Banter v%s\n", pkg.AppVersion)

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := cache.NewCache(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Wire up services around the realtime gateway. The gateway handle is
	// built once here and handed to everything that emits packets.
	gw := gateway.New()
	events := services.NewEventService(gw)
	calls := services.NewCallService(gw, events)
	presence := services.NewPresenceService(cache.Rd, gw)
	relay := services.NewRelayService(gw)

	surface := &api.API{
		Gateway:  gw,
		Presence: presence,
		Events:   events,
		Calls:    calls,
		Relay:    relay,
	}

	// Server
	app := http.NewServer(surface)
	go http.Listen(app)

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.AddFunc("@every 1m", services.FlushReadingAnchor)
	quartz.AddFunc("@every 1m", calls.SweepStaleCalls)
	quartz.Start()

	log.Info().Msgf("Banter v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Banter v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
	services.FlushReadingAnchor()
}
