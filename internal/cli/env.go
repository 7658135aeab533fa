package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/volleyhq/volley/internal/env"
	"github.com/volleyhq/volley/internal/thresholds"
)

var envCmd = &cobra.Command{
	Use:   "env [name]",
	Short: "Show registered environments",
	Long: `List the registered environments, or show one environment in detail.
The currently selected environment (from ENV or defaults) is marked.

Overrides from --config and from environment variables (BASE_URL,
DEV_BASE_URL, API_KEY, VUS, ...) are applied before display, so the
output shows exactly what a run would use.`,
	Args: cobra.MaximumNArgs(1),
	RunE: showEnvironments,
}

func init() {
	envCmd.Flags().String("config", "", "YAML file with environment overrides")
}

func showEnvironments(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	registry, err := env.LoadWithFile(configFile, os.Getenv)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return showOne(cmd, registry, args[0])
	}

	names := registry.Names()
	sort.Strings(names)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBASE URL\tMAX VUS\tSELECTED")
	for _, name := range names {
		cfg, _ := registry.Get(name)
		selected := ""
		if name == registry.Selected() {
			selected = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, cfg.BaseURL, cfg.MaxVUs, selected)
	}
	return w.Flush()
}

func showOne(cmd *cobra.Command, registry *env.Registry, name string) error {
	cfg, ok := registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown environment %q (known: %v)", name, registry.Names())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:        %s\n", cfg.Name)
	fmt.Fprintf(out, "Base URL:    %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "Max VUs:     %d\n", cfg.MaxVUs)
	if cfg.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", cfg.Description)
	}
	if cfg.APIKey != "" {
		fmt.Fprintln(out, "API Key:     (set)")
	}

	set := thresholds.DefaultTiers(os.Getenv).ForEnvironment(cfg.Name)
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintln(out, "\nThresholds:")
	for _, key := range keys {
		for _, expression := range set[key] {
			fmt.Fprintf(out, "  %s: %s\n", key, expression)
		}
	}
	return nil
}
