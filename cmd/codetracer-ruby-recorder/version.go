package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionFlags struct {
	format string
	hash   bool
	date   bool
	full   bool
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show recorder build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := buildVersionPayload(version.Get())
		out := cmd.OutOrStdout()
		switch strings.ToLower(versionFlags.format) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		case "pretty":
			printVersion(out, payload)
			return nil
		}
		return fmt.Errorf("version: unsupported format %q (pretty|json)", versionFlags.format)
	},
}

func init() {
	f := versionCmd.Flags()
	f.StringVar(&versionFlags.format, "format", "pretty", "output format (pretty|json)")
	f.BoolVar(&versionFlags.hash, "hash", false, "include the git commit")
	f.BoolVar(&versionFlags.date, "date", false, "include the build date")
	f.BoolVar(&versionFlags.full, "full", false, "include all build metadata")
}

// buildVersionPayload keeps only the fields asked for; missing build
// metadata reads as "unknown".
func buildVersionPayload(info version.Info) versionPayload {
	known := func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	}
	p := versionPayload{Tool: version.Tool, Version: info.Version}
	if versionFlags.hash || versionFlags.full {
		p.GitCommit = known(info.GitCommit)
	}
	if versionFlags.date || versionFlags.full {
		p.BuildDate = known(info.BuildDate)
	}
	return p
}

func printVersion(w io.Writer, p versionPayload) {
	fmt.Fprintln(w, p.Tool, version.Colored(p.Version))
	if p.GitCommit != "" {
		fmt.Fprintln(w, "commit:", p.GitCommit)
	}
	if p.BuildDate != "" {
		fmt.Fprintln(w, "built: ", p.BuildDate)
	}
}
