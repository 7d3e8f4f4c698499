package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/agent"
	"github.com/sagebot/sage/internal/brain"
	"github.com/sagebot/sage/internal/capability"
	"github.com/sagebot/sage/internal/config"
	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/hands"
	"github.com/sagebot/sage/internal/health"
	"github.com/sagebot/sage/internal/llm"
	"github.com/sagebot/sage/internal/logging"
	"github.com/sagebot/sage/internal/observer"
	"github.com/sagebot/sage/internal/policy"
	"github.com/sagebot/sage/internal/state"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
	"github.com/sagebot/sage/internal/tools"
)

const defaultModel = "moonshotai/kimi-k2.5"

// app holds the wired components shared by all subcommands.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *store.DB
	orch  *agent.Orchestrator
	loop  *agent.Loop
	hands *hands.Hands
}

func newApp(configDir string, debug bool) (*app, error) {
	cfg := config.New(configDir)
	if debug {
		cfg.Debug = true
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	db, err := store.Open(context.Background(), cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	clock := timeutil.RealClock{}
	client := llm.NewClient(cfg.OpenRouterAPIKey, cfg.Model)
	caps := capability.NewLLMProvider(client)
	obs := observer.New(db, log, clock)
	updater := state.NewUpdater(db, obs, log, clock)
	pol := policy.NewEngine(db, log, clock)
	br := brain.New(client, db, log, clock)
	h := hands.New(db, caps, obs, pol, log, clock)
	exec := tools.NewExecutor(db, caps, obs, log, clock)

	return &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		orch:  agent.NewOrchestrator(db, updater, pol, br, h, log, clock),
		loop:  agent.NewLoop(client, exec, log),
		hands: h,
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
	_ = a.db.Close()
}

func main() {
	var configDir string
	var debug bool
	var a *app

	root := &cobra.Command{
		Use:           "sage",
		Short:         "Sage is a proactive assistant for the learning dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(configDir, debug)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "config and database directory")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		serveCmd(&a),
		cycleCmd(&a),
		chatCmd(&a),
		registerCmd(&a),
		rollbackCmd(&a),
		feedbackCmd(&a),
		statusCmd(&a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled intervention pipeline until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := agent.NewRunner((*a).orch, (*a).cfg.CycleInterval, (*a).log)
			runner.Start()
			defer runner.Stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
}

func cycleCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle [email]",
		Short: "Run one intervention cycle, for all eligible users or one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				return (*a).orch.RunAll(ctx)
			}
			user, err := (*a).db.GetUser(ctx, args[0])
			if err != nil {
				return err
			}
			(*a).orch.RunCycle(ctx, user)
			return nil
		},
	}
}

func chatCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <email> <message>",
		Short: "Send one message through the interactive tool loop",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := (*a).db.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			reply := (*a).loop.Run(cmd.Context(), user, args[1])
			fmt.Println(reply)
			return nil
		},
	}
}

func registerCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "register <email> <name> <tier>",
		Short: "Create or update a user (tier: free, plus, pro)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return (*a).db.UpsertUser(cmd.Context(), args[0], args[1], core.ParseTier(args[2]))
		},
	}
}

func rollbackCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <log-id>",
		Short: "Undo an automatic action by its intervention log id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := (*a).hands.Rollback(cmd.Context(), args[0])
			if !res.Success {
				return fmt.Errorf("%s", res.Error)
			}
			fmt.Println("rolled back", args[0])
			return nil
		},
	}
}

func statusCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database and model credential health",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := health.Check(cmd.Context(), (*a).db, (*a).cfg.OpenRouterAPIKey)
			for _, c := range report.Components {
				line := c.Name + ": " + c.Status
				if c.Message != "" {
					line += " (" + c.Message + ")"
				}
				fmt.Println(line)
			}
			if report.Status() != "ok" {
				return fmt.Errorf("status: %s", report.Status())
			}
			return nil
		},
	}
}

func feedbackCmd(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <log-id> <helpful|not_helpful>",
		Short: "Record feedback on an intervention",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[1] != "helpful" && args[1] != "not_helpful" {
				return fmt.Errorf("feedback must be helpful or not_helpful")
			}
			return (*a).hands.UpdateFeedback(cmd.Context(), args[0], args[1])
		},
	}
}
