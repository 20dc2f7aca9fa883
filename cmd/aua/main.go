package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aua/internal/agent"
	"aua/internal/config"
	"aua/internal/logging"
	"aua/internal/memory"
)

var (
	// Global flags
	configPath string
	verbose    bool
	workspace  string
	remoteURL  string

	cfg     *config.Config
	logger  *zap.Logger
	mem     *memory.Service
	aua     *agent.Agent
	watcher *config.Watcher
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aua",
	Short: "Autonomous user agent with persistent workspace memory",
	Long: `aua routes natural-language instructions to typed operations
(file I/O, system introspection, version control, HTTP) and remembers
every interaction in a local store. Its workspace knowledge graph is
kept in sync with a remote memory server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if workspace != "" {
			cfg.Agent.WorkspaceRoot = workspace
		}
		if remoteURL != "" {
			cfg.Memory.RemoteURL = remoteURL
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		mem, err = memory.NewService(cfg.Memory, logger)
		if err != nil {
			return err
		}
		mem.SetRemoteURL(cfg.EffectiveRemoteURL())
		aua = agent.New(cfg, mem, logger)

		// Pick up remote endpoint changes without a restart.
		if configPath != "" {
			watcher, err = config.NewWatcher(configPath, func(updated *config.Config) {
				mem.SetRemoteURL(updated.EffectiveRemoteURL())
			}, logger)
			if err != nil {
				logger.Warn("config watcher disabled", zap.Error(err))
			} else if err := watcher.Start(cmd.Context()); err != nil {
				logger.Warn("config watcher failed to start", zap.Error(err))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if watcher != nil {
			_ = watcher.Close()
		}
		if mem != nil {
			_ = mem.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd executes one free-text instruction
var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Resolve and execute a natural-language instruction",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := aua.Run(cmd.Context(), strings.Join(args, " "))
		if res.Output != "" {
			fmt.Println(res.Output)
		}
		return res.Err
	},
}

// actionCmd executes a structured operation directly
var actionCmd = &cobra.Command{
	Use:   "action [operation] [key=value ...]",
	Short: "Execute an operation by name with explicit parameters",
	Long: `Bypasses the natural-language resolver. Parameters are key=value
pairs, e.g.:

  aua action create_file path=notes.txt content='hello'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := make(map[string]string, len(args)-1)
		for _, kv := range args[1:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("parameter %q is not key=value", kv)
			}
			params[key] = value
		}
		res := aua.RunAction(cmd.Context(), args[0], params)
		if res.Output != "" {
			fmt.Println(res.Output)
		}
		return res.Err
	},
}

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List available operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range aua.Operations() {
			fmt.Println(name)
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the workspace graph with the remote memory server",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := aua.RunAction(cmd.Context(), "sync_graph", nil)
		if res.Output != "" {
			fmt.Println(res.Output)
		}
		return res.Err
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarize what the workspace graph knows",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := aua.RunAction(cmd.Context(), "workspace_overview", nil)
		if res.Err != nil {
			return res.Err
		}
		fmt.Println(res.Output)
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context [project]",
	Short: "Show graph edges and history for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := aua.RunAction(cmd.Context(), "project_context", map[string]string{"project": args[0]})
		if res.Err != nil {
			return res.Err
		}
		fmt.Println(res.Output)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetString("limit")
		params := map[string]string{}
		if limit != "" {
			params["limit"] = limit
		}
		res := aua.RunAction(cmd.Context(), "recent_history", params)
		if res.Err != nil {
			return res.Err
		}
		fmt.Println(res.Output)
		return nil
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [remote-url]",
	Short: "Check remote memory reachability and store health",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]string{}
		if len(args) > 0 {
			params["remote_memory_url"] = args[0]
		}
		res := aua.RunAction(cmd.Context(), "self_diagnose", params)
		if res.Err != nil {
			return res.Err
		}
		fmt.Println(res.Output)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "override workspace root")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote-url", "", "override remote memory server URL")

	historyCmd.Flags().String("limit", "", "maximum interactions to show")

	rootCmd.AddCommand(runCmd, actionCmd, opsCmd, syncCmd, overviewCmd, contextCmd, historyCmd, diagnoseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
