package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"quiz-live-backend/internal/apiclient"
	"quiz-live-backend/internal/cli"
	"quiz-live-backend/internal/live"
)

func main() {
	server := flag.String("server", "http://127.0.0.1:8080", "quiz server base URL")
	pin := flag.String("pin", "", "join code shown by the host (required)")
	nickname := flag.String("nickname", "", "name shown on the leaderboard (required)")
	poll := flag.Duration("poll", 5*time.Second, "how often to re-read the session besides the change stream")
	flag.Parse()

	if *pin == "" || *nickname == "" {
		fmt.Fprintln(os.Stderr, "error: --pin and --nickname are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(*server, nil)
	player, err := live.JoinGame(ctx, client, client, live.SystemClock(), doubtfulStore(),
		live.Options{PollInterval: *poll}, live.JoinParams{Pin: *pin, Nickname: *nickname})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := cli.Run(ctx, os.Stdin, os.Stdout, player); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// doubtfulStore keeps "not sure" marks on disk so they survive a restart of
// the client. It falls back to memory when there is no home directory.
func doubtfulStore() live.DoubtfulStore {
	home, err := os.UserHomeDir()
	if err != nil {
		return live.NewMemoryDoubtfulStore()
	}
	return live.NewFileDoubtfulStore(filepath.Join(home, ".quiz-cli", "doubtful"))
}
