package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"SongForge/pkg/plugin"
)

func newPluginsCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Apply the plugin manifest and print the registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return printRegistry(cmd.OutOrStdout(), a.registry, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func printRegistry(w io.Writer, reg *plugin.Registry, asJSON bool) error {
	summary := reg.Summary()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tACTIVE\tREADY\tNAME\tVERSION")
	for _, e := range reg.Entries() {
		id := e.Plugin.Identity()
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\t%s\n", e.ID, e.Type, e.Active, reg.IsReady(e.ID), id.Name, id.Version)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d plugins registered\n", summary.Total)
	for _, t := range plugin.CapabilityTypes() {
		active := summary.Active[t]
		if active == "" {
			active = "-"
		}
		fmt.Fprintf(w, "  %-10s %d registered, active: %s\n", t, summary.ByType[t], active)
	}
	return nil
}

func newPresetsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the generation presets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags.cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGENRE\tBPM")
			for _, p := range a.studio.Presets().List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Genre, p.BPM)
			}
			return tw.Flush()
		},
	}
}
