package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DavidGamba/go-getoptions"
	"github.com/sirupsen/logrus"

	"taskboard-api/config"
	"taskboard-api/services"
)

type commandLineOptionValues struct {
	DryRun  bool
	Timeout time.Duration
}

func parseCommandLine() *commandLineOptionValues {
	optionValues := &commandLineOptionValues{}
	opt := getoptions.New()

	opt.Bool("help", false, opt.Alias("h", "?"))
	opt.BoolVar(&optionValues.DryRun, "dry-run", false,
		opt.Alias("n"),
		opt.Description("list the users a digest would go to and exit"))
	opt.DurationVar(&optionValues.Timeout, "timeout", 10*time.Minute,
		opt.Description("give up on the pass after this long"))

	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		fmt.Fprint(os.Stderr, opt.Help(getoptions.HelpSynopsis))
		os.Exit(2)
	}

	return optionValues
}

func main() {
	optionValues := parseCommandLine()

	settings := config.Load()
	if logFile := config.InitLogging(settings); logFile != nil {
		defer logFile.Close()
	}
	config.InitDB(settings)
	sqlDB, err := config.DB.DB()
	if err != nil {
		logrus.Fatalf("Failed to get database handle: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, optionValues.Timeout)
	defer cancel()

	var locker services.Locker = services.NewMySQLLocker(sqlDB)
	if rdb := config.InitRedis(settings); rdb != nil {
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb, 10*time.Minute)
	}

	directory := services.NewGormDirectory(config.DB)
	scheduler := services.NewDigestScheduler(
		services.NewGormNotificationStore(config.DB),
		services.NewGormPreferenceStore(config.DB),
		directory,
		services.NewEmailChannel(config.NewSMTPMailer(settings), settings.AppBaseURL),
		locker,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if optionValues.DryRun {
		due, err := scheduler.DueUsers(ctx)
		if err != nil {
			logrus.Fatalf("Dry run failed: %v", err)
		}
		if err := enc.Encode(due); err != nil {
			logrus.Fatal(err)
		}
		return
	}

	summary, err := scheduler.RunOnce(ctx)
	if err != nil {
		logrus.Fatalf("Digest pass failed: %v", err)
	}
	if err := enc.Encode(summary); err != nil {
		logrus.Fatal(err)
	}
}
