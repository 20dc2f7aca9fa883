package ops

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// SelfDiagnoseOperation probes the remote memory endpoint and reports the
// local store's health. An optional remote_memory_url parameter overrides
// the configured endpoint for this probe only; stored configuration is
// never mutated.
func SelfDiagnoseOperation() *Operation {
	return &Operation{
		Name:        "self_diagnose",
		Description: "Check remote memory reachability and local store health",
		Category:    CategoryDiagnostic,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			var b strings.Builder

			endpoint := params["remote_memory_url"]
			shown := endpoint
			if shown == "" {
				shown = env.Memory.RemoteURL()
			}
			latency, err := env.Memory.ProbeRemote(ctx, endpoint)
			if err != nil {
				fmt.Fprintf(&b, "remote memory: unreachable (%s): %v\n", shown, err)
			} else {
				fmt.Fprintf(&b, "remote memory: reachable (%s), rtt %s\n", shown, latency.Round(time.Microsecond))
			}

			stats, err := env.Memory.Stats()
			if err != nil {
				fmt.Fprintf(&b, "local store: error: %v\n", err)
			} else {
				fmt.Fprintf(&b, "local store: %s (%d interactions, %d edges, %d facts)\n",
					env.Memory.StorePath(), stats["interactions"], stats["graph_edges"], stats["knowledge"])
			}

			if info, err := os.Stat(env.Agent.WorkspaceRoot); err != nil {
				fmt.Fprintf(&b, "workspace root: missing (%s)\n", env.Agent.WorkspaceRoot)
			} else if !info.IsDir() {
				fmt.Fprintf(&b, "workspace root: not a directory (%s)\n", env.Agent.WorkspaceRoot)
			} else {
				fmt.Fprintf(&b, "workspace root: ok (%s)\n", env.Agent.WorkspaceRoot)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}
