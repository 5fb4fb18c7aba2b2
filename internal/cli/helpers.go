package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hellobible/hellobible/internal/daemon"
	"github.com/hellobible/hellobible/internal/domain"
)

// openDaemon loads config, wires the services and initializes the
// engine for the current identity. Callers must Close the daemon.
func openDaemon(ctx context.Context) (*daemon.Daemon, error) {
	d, err := daemon.New()
	if err != nil {
		return nil, err
	}
	if _, err := d.Engine.Initialize(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	return d, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSync reports a degraded dual-write on stderr.
func printSync(s domain.SyncStatus) {
	if s.State == domain.SyncDegraded {
		fmt.Fprintf(os.Stderr, "warning: saved locally, remote sync pending (%s)\n", s.Error)
	}
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = max(0, min(width, filled))
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return string(bar)
}
