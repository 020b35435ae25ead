package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeflow/internal/content"
	"github.com/roach88/nodeflow/internal/project"
)

// InspectResult summarizes a project file.
type InspectResult struct {
	Version     int            `json:"version"`
	Connections int            `json:"connections"`
	Nodes       int            `json:"nodes"`
	Outgoing    map[string]int `json:"outgoing,omitempty"`
	Incoming    map[string]int `json:"incoming,omitempty"`
	Content     *content.Stats `json:"content,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var contentDB string

	cmd := &cobra.Command{
		Use:   "inspect <project-file>",
		Short: "Summarize a project file",
		Long: `Load and summarize a project file: connection count, nodes, and
per-node packet counts. With --content-db, also reports blob statistics
from the external content store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], contentDB, cmd)
		},
	}

	cmd.Flags().StringVar(&contentDB, "content-db", "", "path to the content store database")

	return cmd
}

func runInspect(opts *RootOptions, path, contentDB string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	f, errs := project.Load(path)
	if len(errs) > 0 {
		_ = formatter.Error(project.ErrCodeSchema, errs[0].Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("project file invalid: %v", errs[0]))
	}

	result := summarize(f)

	if contentDB != "" {
		cs, err := content.Open(contentDB)
		if err != nil {
			_ = formatter.Error(project.ErrCodeRead, err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening content store", err)
		}
		defer cs.Close()

		stats, err := cs.Stats(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "reading content store stats", err)
		}
		result.Content = &stats
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputInspectText(formatter, result)
}

// summarize counts connections, nodes, and packets in a project file.
// A node exists if any connection or packet list references it.
func summarize(f *project.File) *InspectResult {
	nodes := make(map[string]bool)
	for _, c := range f.Connections {
		nodes[c.Source] = true
		nodes[c.Target] = true
	}

	outgoing := make(map[string]int)
	for nodeID, list := range f.Packets.Outgoing {
		nodes[nodeID] = true
		outgoing[nodeID] = len(list)
	}
	incoming := make(map[string]int)
	for nodeID, list := range f.Packets.Incoming {
		nodes[nodeID] = true
		incoming[nodeID] = len(list)
	}

	return &InspectResult{
		Version:     f.Version,
		Connections: len(f.Connections),
		Nodes:       len(nodes),
		Outgoing:    outgoing,
		Incoming:    incoming,
	}
}

func outputInspectText(formatter *OutputFormatter, result *InspectResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Version:     %d\n", result.Version)
	fmt.Fprintf(w, "Nodes:       %d\n", result.Nodes)
	fmt.Fprintf(w, "Connections: %d\n", result.Connections)

	for _, nodeID := range sortedCountKeys(result.Outgoing) {
		fmt.Fprintf(w, "  %s: %d outgoing\n", nodeID, result.Outgoing[nodeID])
	}
	for _, nodeID := range sortedCountKeys(result.Incoming) {
		fmt.Fprintf(w, "  %s: %d incoming\n", nodeID, result.Incoming[nodeID])
	}

	if result.Content != nil {
		fmt.Fprintf(w, "Content:     %d blobs, %d bytes\n", result.Content.Blobs, result.Content.TotalSize)
	}
	return nil
}

func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
