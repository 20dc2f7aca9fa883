package ops

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const redactedValue = "<redacted>"

// SystemInfoOperation reports host platform and memory usage. Read-only.
func SystemInfoOperation() *Operation {
	return &Operation{
		Name:        "system_info",
		Description: "Report host platform, uptime and memory usage",
		Category:    CategorySystem,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			info, err := host.InfoWithContext(ctx)
			if err != nil {
				return "", fmt.Errorf("failed to read host info: %w", err)
			}
			vm, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return "", fmt.Errorf("failed to read memory info: %w", err)
			}
			return fmt.Sprintf(
				"host: %s (%s %s)\nuptime: %ds\nmemory: %.1f%% used (%d MiB of %d MiB)",
				info.Hostname, info.Platform, info.KernelArch,
				info.Uptime,
				vm.UsedPercent, vm.Used>>20, vm.Total>>20,
			), nil
		},
	}
}

// DiskSpaceOperation reports usage of the filesystem holding the
// workspace root.
func DiskSpaceOperation() *Operation {
	return &Operation{
		Name:        "disk_space",
		Description: "Report disk usage for the workspace filesystem",
		Category:    CategorySystem,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			target := env.Agent.WorkspaceRoot
			if target == "" {
				target = "/"
			}
			usage, err := disk.UsageWithContext(ctx, target)
			if err != nil {
				return "", fmt.Errorf("failed to read disk usage: %w", err)
			}
			return fmt.Sprintf("%s: %.1f%% used, %d GiB free of %d GiB",
				usage.Path, usage.UsedPercent,
				usage.Free>>30, usage.Total>>30), nil
		},
	}
}

// ListProcessesOperation lists running processes by pid and name.
func ListProcessesOperation() *Operation {
	return &Operation{
		Name:        "list_processes",
		Description: "List running processes",
		Category:    CategorySystem,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			procs, err := process.ProcessesWithContext(ctx)
			if err != nil {
				return "", fmt.Errorf("failed to list processes: %w", err)
			}
			var lines []string
			for _, p := range procs {
				name, err := p.NameWithContext(ctx)
				if err != nil {
					continue // process may have exited
				}
				lines = append(lines, fmt.Sprintf("%6d  %s", p.Pid, name))
			}
			sort.Strings(lines)
			return fmt.Sprintf("%d processes\n%s", len(lines), strings.Join(lines, "\n")), nil
		},
	}
}

// ListEnvOperation lists environment variables. Values whose key matches a
// configured sensitive pattern are replaced with a redaction marker; the
// key itself stays visible.
func ListEnvOperation() *Operation {
	return &Operation{
		Name:        "list_env",
		Description: "List environment variables with sensitive values redacted",
		Category:    CategorySystem,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			vars := os.Environ()
			sort.Strings(vars)
			var b strings.Builder
			for _, kv := range vars {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					continue
				}
				if sensitiveKey(key, env.Agent.SensitiveEnvPatterns) {
					value = redactedValue
				}
				fmt.Fprintf(&b, "%s=%s\n", key, value)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

func sensitiveKey(key string, patterns []string) bool {
	upper := strings.ToUpper(key)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}
