package main

import (
	"chat-rooms/contract"
	"chat-rooms/moderation"
	"chat-rooms/repositories"
	"chat-rooms/runtime"
	"chat-rooms/runtime/workers"
	"chat-rooms/tcp"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until SIGINT/SIGTERM.
// Deferred cleanups (transcripts, badger) run before the exit code is chosen.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Transcript backend
	transcript, closeTranscript, err := openTranscript(config, log)
	if err != nil {
		return err
	}
	defer closeTranscript()

	// 3. Moderation, only when words are configured
	var censor contract.Censor
	if words := moderation.ParseWords(config.CensoredWords); len(words) > 0 {
		char, _ := config.CharacterRune()
		moderator, err := moderation.NewModerator(words, char, log)
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
		censor = moderator
	}

	// 4. Core runtime
	registry := runtime.NewRegistry(log)
	directory := runtime.NewDirectory(log, transcript)
	router := runtime.NewRouter(log, registry, directory, transcript, censor)

	// 5. Listener: the only runtime failure that stops the process
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}

	server := tcp.NewServer(log, listener, registry, directory, router,
		runtime.SessionConfig{MaxLineLength: config.MaxLineLength, DuplicatePolicy: config.Policy()},
		config.SinkBufferSize, config.WriteTimeout)

	stats := workers.NewStatsWorker(log, config.StatsInterval, func() map[string]any {
		return map[string]any{
			"sessions": registry.Len(),
			"rooms":    directory.Len(),
		}
	})

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Supervision, blocks until every worker is done
	log.Info("Starting chat server", "address", listener.Addr().String(), "transcript", config.TranscriptBackend)
	workers.NewSupervisor(log, config.RestartInterval).
		Add(server, stats).
		Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

func openTranscript(config Config, log *slog.Logger) (contract.TranscriptSink, func(), error) {
	switch config.TranscriptBackend {
	case "badger":
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		return repositories.NewBadgerTranscript(db, log), func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}, nil
	default:
		transcript, err := repositories.NewFileTranscript(config.TranscriptDir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("transcript directory unusable: %w", err)
		}
		return transcript, func() {
			log.Info("Closing transcripts...")
			_ = transcript.CloseAll()
		}, nil
	}
}
