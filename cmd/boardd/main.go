package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vincent99/chessboard/internal/boarderr"
	"github.com/vincent99/chessboard/internal/orchestrator"
)

func main() {
	var (
		resume           = flag.Bool("resume", false, "force resuming an unterminated game record")
		noResume         = flag.Bool("no-resume", false, "force starting at the menu, ignoring any unterminated game")
		noBT             = flag.Bool("no-bt", false, "disable Bluetooth transports (local play only)")
		simulatedDisplay = flag.Bool("simulated-display", false, "use the in-memory simulated display driver instead of real e-paper hardware")
		configPath       = flag.String("config", "/etc/boardd/boardd.ini", "path to the user configuration override")
		logLevel         = flag.String("log-level", "info", "log verbosity: debug, info, warn, error")
		defaultsPath     = flag.String("defaults", "/etc/boardd/defaults.ini", "path to the built-in defaults file")
		dbPath           = flag.String("db", "/var/lib/boardd/games.db", "path to the games database")
		linkPort         = flag.String("link-port", "/dev/ttyAMA0", "serial port to the board micro-controller")
		linkBaud         = flag.Int("link-baud", 115200, "serial baud rate")
	)
	flag.Parse()

	configureLogging(*logLevel)

	if *resume && *noResume {
		log.Fatal("boardd: --resume and --no-resume are mutually exclusive")
	}

	opts := orchestrator.Options{
		ConfigDefaultsPath: *defaultsPath,
		ConfigUserPath:     *configPath,
		DBPath:             *dbPath,
		LinkPort:           *linkPort,
		LinkBaud:           *linkBaud,
		NoBluetooth:        *noBT,
		SimulatedDisplay:   *simulatedDisplay,
	}
	if *resume || *noResume {
		opts.ResumeSet = true
		opts.Resume = *resume
	}

	daemon, err := orchestrator.Boot(opts)
	if err != nil {
		log.Printf("boardd: boot failed: %v", err)
		os.Exit(boarderr.ExitCode(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("boardd: running, state=%v", daemon.State())
	daemon.Run(ctx)
	log.Println("boardd: shut down cleanly")
}

func configureLogging(level string) {
	switch level {
	case "debug":
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	default:
		log.SetFlags(log.LstdFlags)
	}
}
