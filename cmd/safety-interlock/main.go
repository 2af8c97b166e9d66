// Command safety-interlock supervises the light-curtain safety inputs and
// pauses/resumes the robot arms when a trip is latched or cleared.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/safety-interlock/internal/alert"
	"github.com/sweeney/safety-interlock/internal/channelio"
	"github.com/sweeney/safety-interlock/internal/config"
	"github.com/sweeney/safety-interlock/internal/interlock"
	"github.com/sweeney/safety-interlock/internal/robot"
	"github.com/sweeney/safety-interlock/internal/web"
)

func main() {
	poll := flag.Duration("poll", 50*time.Millisecond, "Channel polling interval")
	confirm := flag.Duration("confirm-wait", interlock.DefaultConfirmWait, "Wait before confirming a pause/resume by re-reading run status")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address for operator alerts")
	controller := flag.String("controller", "http://192.168.1.10:6001", "Motion controller base URL")
	robots := flag.String("robots", "1,2", "Comma-separated ids of the supervised robots")
	configDir := flag.String("config-dir", "interlock_config", "Directory holding the channel configuration file")
	chip := flag.String("chip", "gpiochip0", "GPIO chip providing the safety input channels")
	httpAddr := flag.String("http", ":80", "HTTP control/status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print the configured channels' current values and exit")

	flag.Parse()

	ids, err := parseRobotIDs(*robots)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(*poll, *confirm, *broker, *controller, ids, *configDir, *chip, *httpAddr, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(poll, confirm time.Duration, broker, controllerURL string, robotIDs []int, configDir, chip, httpAddr string, printState bool) error {
	store := config.NewStore(configDir)

	reader, err := channelio.NewRealReader(chip)
	if err != nil {
		return fmt.Errorf("init channel input: %w", err)
	}
	defer reader.Close()

	// Print state mode
	if printState {
		cfg, err := store.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		for _, e := range cfg.Channels {
			v, err := reader.Read(e.Channel)
			if err != nil {
				return fmt.Errorf("read channel %d: %w", e.Channel, err)
			}
			fmt.Printf("channel %d (%s): %s\n", e.Channel, e.Description, valueString(v))
		}
		return nil
	}

	reporter := alert.NewRealReporter(broker)
	defer reporter.Close()

	controller := robot.NewRealController(controllerURL)
	defer controller.Close()

	sup := interlock.New(interlock.Options{
		Channels:    reader,
		Robots:      controller,
		Alerts:      reporter,
		Store:       store,
		RobotIDs:    robotIDs,
		ConfirmWait: confirm,
	})

	if err := sup.LoadConfig(); err != nil {
		// The supervisor keeps running with an empty table; a later
		// configuration update can still establish one.
		log.Printf("config load failed, continuing unconfigured: %v", err)
	}

	if httpAddr != "" {
		srv := web.New(httpAddr, sup)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http control server listening on %s", httpAddr)
	}

	if err := reporter.Report(alert.SeverityInfo, "safety interlock service started"); err != nil {
		log.Printf("failed to report startup: %v", err)
	}

	log.Printf("started: poll=%v confirm=%v broker=%s controller=%s robots=%v",
		poll, confirm, broker, controllerURL, robotIDs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Blocks until a signal arrives; the loop exits at the next tick
	// boundary, never mid-actuation.
	sup.Run(ctx, poll)

	if err := reporter.Report(alert.SeverityInfo, "safety interlock service stopping"); err != nil {
		log.Printf("failed to report shutdown: %v", err)
	}
	log.Printf("shut down")
	return nil
}

// parseRobotIDs parses a comma-separated id list like "1,2".
func parseRobotIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid robot id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no robot ids in %q", s)
	}
	return ids, nil
}

func valueString(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
