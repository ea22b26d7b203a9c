package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"securequiz/internal/logging"
	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/scoring"
	"securequiz/internal/server/bootstrap"
	"securequiz/internal/utils/id"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// NewRootCommand creates the quiz-server command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "quiz-server",
		Short: "Personality archetype quiz backend",
		Long: fmt.Sprintf(`%s

Scores quiz answers against the archetype weight table, stores one
submission per email and serves the public and admin HTTP APIs.

%s
  quiz-server serve --config quiz.yaml
  quiz-server seed-admin --username root --password '...'
  quiz-server score --answers '{"1":"Leader","2":"Scholar"}'`,
			bold("Quiz Server "+Version),
			bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.RunServer(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newSeedAdminCommand(&configPath))
	rootCmd.AddCommand(newScoreCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.RunServer(*configPath)
		},
	}
}

func newSeedAdminCommand(configPath *string) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or rotate an admin account in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return errors.New("--username and --password (or ADMIN_PASSWORD) are required")
			}
			cfg, err := bootstrap.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return seedAdmin(ctx, cmd.OutOrStdout(), cfg, username, email, password)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Admin email, also accepted at login")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (defaults to $ADMIN_PASSWORD)")
	return cmd
}

func seedAdmin(ctx context.Context, out io.Writer, cfg bootstrap.Config, username, email, password string) error {
	logger := logging.NewComponentLogger("SeedAdmin")
	id.SetStrategy(cfg.IDStrategy)
	store, err := bootstrap.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := bootstrap.NewService(cfg, store, bootstrap.Telemetry{}, logger)
	if err != nil {
		return err
	}
	admin, err := svc.SeedAdmin(ctx, username, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s admin %s (id %s) in %s store\n", green("Seeded"), bold(admin.Username), admin.ID, cfg.Store.Backend)
	return nil
}

func newScoreCommand() *cobra.Command {
	var answersJSON string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answer set locally without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := answersJSON
			if raw == "" || raw == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read answers: %w", err)
				}
				raw = string(data)
			}
			var answers domain.AnswerSet
			if err := json.Unmarshal([]byte(raw), &answers); err != nil {
				return fmt.Errorf("parse answers: %w", err)
			}
			if answers == nil {
				answers = domain.AnswerSet{}
			}
			return printScore(cmd.OutOrStdout(), scoring.NewDefault(), answers, asJSON)
		},
	}
	cmd.Flags().StringVarP(&answersJSON, "answers", "a", "", `Answers as JSON, e.g. {"1":"Leader"}; read from stdin when empty`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printScore(out io.Writer, engine *scoring.Engine, answers domain.AnswerSet, asJSON bool) error {
	result := engine.Score(answers)
	ranking := engine.Rank(answers)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Result  domain.ScoreResult      `json:"result"`
			Ranking []domain.ArchetypeScore `json:"ranking"`
		}{result, ranking})
	}

	fmt.Fprintf(out, "%s %s (%s confidence)\n", bold("Archetype:"), cyan(string(result.Archetype)), confidenceColor(result.Confidence))
	if result.Description != "" {
		fmt.Fprintf(out, "%s\n", gray(result.Description))
	}
	fmt.Fprintln(out)
	for i, row := range ranking {
		fmt.Fprintf(out, "%2d. %-12s %3d%%  %s\n", i+1, row.Archetype, row.Percentage, gray(fmt.Sprintf("(%d/%d)", row.Raw, row.MaxPossible)))
	}
	return nil
}

func confidenceColor(c domain.Confidence) string {
	switch c {
	case domain.ConfidenceHigh:
		return green(string(c))
	case domain.ConfidenceMedium:
		return yellow(string(c))
	default:
		return red(string(c))
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", Version)
		},
	}
}
