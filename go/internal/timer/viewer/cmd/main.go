package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mcdev12/courtclock/go/internal/models"
	"github.com/mcdev12/courtclock/go/internal/timer/events"
	"github.com/mcdev12/courtclock/go/internal/timer/viewer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var viewerCmd = &cobra.Command{
	Use:   "courtclock-viewer",
	Args:  cobra.ExactArgs(0),
	Short: "Follow a courtclock session from the terminal",
	Long: `courtclock-viewer connects to a courtclock server and prints the shared
session countdown, extrapolated locally between server snapshots.

Credentials are optional; without them the viewer connects read-only.
The password may also be supplied in COURTCLOCK_PASSWORD.
`,
}

func main() {
	p := viewerCmd.Flags()
	url := p.StringP(
		"url", "u", "ws://localhost:8080/ws",
		"server websocket url")
	username := p.String(
		"username", "",
		"operator or admin username")
	password := p.String(
		"password", "",
		"password (ignored if COURTCLOCK_PASSWORD env is present)")
	interval := p.Duration(
		"interval", time.Second,
		"render interval")
	verbose := p.BoolP(
		"verbose", "v", false,
		"log every event")

	viewerCmd.RunE = func(cmd *cobra.Command, _args []string) error {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isatty.IsTerminal(os.Stderr.Fd())})
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if *verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}

		pass := *password
		if env := os.Getenv("COURTCLOCK_PASSWORD"); env != "" {
			pass = env
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		out := cmd.OutOrStdout()
		client := viewer.NewClient(viewer.Options{
			URL:            *url,
			Username:       *username,
			Password:       pass,
			RenderInterval: *interval,
			Render: func(s models.TimerSnapshot) {
				fmt.Fprintln(out, formatSnapshot(s))
			},
			OnEvent: func(ev events.Event) {
				switch e := ev.(type) {
				case events.AuthSuccess:
					log.Info().Str("role", string(e.Role)).Str("username", e.Username).Msg("authenticated")
				case events.AuthFailed:
					log.Warn().Str("message", e.Message).Msg("authentication failed, continuing as viewer")
				case events.Error:
					log.Warn().Str("message", e.Message).Msg("server error")
				case events.Sync:
				default:
					log.Debug().Str("event", string(ev.EventName())).Msg("event")
				}
			},
		}, nil)

		if err := client.Run(ctx); err != nil {
			return fmt.Errorf("giving up: %w", err)
		}
		return nil
	}

	if err := viewerCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func formatSnapshot(s models.TimerSnapshot) string {
	return fmt.Sprintf("%-8s round %d/%d  game %s  break %s",
		s.Status, s.CurrentRound, s.NumRounds, clockFace(s.MainRemaining), clockFace(s.BreakRemaining))
}

// clockFace renders milliseconds as mm:ss, rounding up so 0:00 means done.
func clockFace(ms int64) string {
	secs := (ms + 999) / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
