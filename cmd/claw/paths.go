package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simplestclaw/claw/internal/auth"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/paths"
)

// PathsInfo holds all resolved paths for JSON output.
type PathsInfo struct {
	ConfigRoot  string `json:"config_root"`
	StateRoot   string `json:"state_root"`
	CacheRoot   string `json:"cache_root"`
	ConfigFile  string `json:"config_file"`
	Credentials string `json:"credentials"`
	LogFile     string `json:"log_file"`
	GatewayLog  string `json:"gateway_log"`
	RuntimeDir  string `json:"runtime_dir"`
	Downloads   string `json:"downloads"`
	UpdateState string `json:"update_state"`
	AuthSource  string `json:"auth_source"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show where Claw stores files",
		Long: `Display all file and directory paths used by Claw.

Useful for debugging, scripting, and understanding where configuration,
state, cache, and credential files are stored on this system.`,
		Example: `  claw paths
  claw paths --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			info := resolvePathsInfo()

			if out.JSON {
				return out.PrintJSON(info)
			}

			out.Print("Config root:    %s\n", info.ConfigRoot)
			out.Print("State root:     %s\n", info.StateRoot)
			out.Print("Cache root:     %s\n", info.CacheRoot)
			out.Print("\n")
			out.Print("Config file:    %s\n", info.ConfigFile)
			out.Print("Credentials:    %s\n", info.Credentials)
			out.Print("Log file:       %s\n", info.LogFile)
			out.Print("Gateway log:    %s\n", info.GatewayLog)
			out.Print("Runtime dir:    %s\n", info.RuntimeDir)
			out.Print("Downloads:      %s\n", info.Downloads)
			out.Print("Update state:   %s\n", info.UpdateState)
			out.Print("\n")
			out.Print("Auth source:    %s\n", info.AuthSource)

			return nil
		},
	}
}

func resolvePathsInfo() PathsInfo {
	info := PathsInfo{}

	info.ConfigRoot = resolveOrError(paths.ConfigRoot)
	info.StateRoot = resolveOrError(paths.StateRoot)
	info.CacheRoot = resolveOrError(paths.CacheRoot)
	info.LogFile = resolveOrError(paths.DefaultLogFile)
	info.GatewayLog = resolveOrError(paths.GatewayLogFile)
	info.RuntimeDir = resolveOrError(paths.RuntimeDir)
	info.Downloads = resolveOrError(paths.RuntimeDownloadDir)
	info.UpdateState = resolveOrError(paths.UpdateStateFile)
	info.Credentials = resolveOrError(paths.CredentialsFile)

	if cr := info.ConfigRoot; cr != "" {
		info.ConfigFile = cr + "/config.yaml"
	} else {
		info.ConfigFile = "<error: config root unavailable>"
	}

	source, _ := auth.GetCredentials()
	if source == auth.SourceNone {
		info.AuthSource = "none"
	} else {
		info.AuthSource = string(source)
	}

	return info
}

func resolveOrError(fn func() (string, error)) string {
	val, err := fn()
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}

	return val
}
