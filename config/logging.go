package config

import "github.com/kilianp07/lddl/core/runlog"

// setRunLogDefaults picks a file name matching the backend when none is set.
func setRunLogDefaults(c *runlog.Config) {
	if c.Backend == "" || c.Path != "" {
		return
	}
	switch c.Backend {
	case "sqlite":
		c.Path = "lddl_runs.db"
	default:
		c.Path = "lddl_runs.jsonl"
	}
}
