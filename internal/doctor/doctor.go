// Package doctor runs environment diagnostics for bridgectl.
package doctor

import (
	"fmt"
	"os"
	"time"

	"github.com/mattjoyce/deskbridge/internal/config"
	"github.com/mattjoyce/deskbridge/internal/configstore"
	"github.com/mattjoyce/deskbridge/internal/queue"
	"github.com/mattjoyce/deskbridge/internal/status"
)

// Check is one diagnostic result.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Run executes all diagnostics against the given configuration.
func Run(cfg *config.Config) []Check {
	return []Check{
		checkQueueDirs(cfg),
		checkAppConfig(cfg),
		checkExecutable(cfg),
		checkHeartbeat(cfg),
	}
}

func checkQueueDirs(cfg *config.Config) Check {
	c := Check{Name: "queue directories"}

	q, err := queue.Open(cfg.Paths.BridgeDir)
	if err != nil {
		c.Detail = err.Error()
		return c
	}

	pending, completed, failed, err := q.Counts()
	if err != nil {
		c.Detail = err.Error()
		return c
	}

	c.OK = true
	c.Detail = fmt.Sprintf("%s (pending %d, completed %d, failed %d)",
		cfg.Paths.BridgeDir, pending, completed, failed)
	return c
}

func checkAppConfig(cfg *config.Config) Check {
	c := Check{Name: "app config"}

	store := configstore.New(cfg.Paths.ConfigFile, cfg.Paths.BackupDir)
	doc, err := store.Document()
	if err != nil {
		c.Detail = err.Error()
		return c
	}

	c.OK = true
	c.Detail = fmt.Sprintf("%s (%d named servers)", cfg.Paths.ConfigFile, len(configstore.ServerNames(doc)))
	return c
}

func checkExecutable(cfg *config.Config) Check {
	c := Check{Name: "app executable"}

	if cfg.App.Executable == "" {
		c.Detail = "app.executable is not configured; restart_app will fail"
		return c
	}
	info, err := os.Stat(cfg.App.Executable)
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if info.IsDir() {
		c.Detail = fmt.Sprintf("%s is a directory", cfg.App.Executable)
		return c
	}

	c.OK = true
	c.Detail = cfg.App.Executable
	return c
}

func checkHeartbeat(cfg *config.Config) Check {
	c := Check{Name: "bridge heartbeat"}
	c.OK, c.Detail = status.Check(cfg.StatusFile(), cfg.Service.StatusStaleAfter, time.Now())
	return c
}
