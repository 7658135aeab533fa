package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/volleyhq/volley/internal/checks"
	"github.com/volleyhq/volley/internal/env"
	"github.com/volleyhq/volley/internal/httpx"
	"github.com/volleyhq/volley/internal/options"
	"github.com/volleyhq/volley/internal/output"
	"github.com/volleyhq/volley/internal/runner"
	"github.com/volleyhq/volley/internal/thresholds"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load test against an environment",
	Long: `Run a staged load test. The environment comes from --env (or the ENV
variable), the load profile from --type, and thresholds from the tier
resolved for that environment.

Examples:
  volley run --env qa --type smoke --path /items
  volley run --env staging --type stress --path /items --path /search
  ENV=prod volley run --type load --json --report out.json`,
	RunE: runLoadTest,
}

func init() {
	runCmd.Flags().String("env", "", "target environment (dev, qa, staging, prod)")
	runCmd.Flags().String("type", options.TypeLoad, "test type (smoke, load, stress, spike, endurance)")
	runCmd.Flags().Int("vus", 0, "override the environment's base VU count")
	runCmd.Flags().StringSlice("path", []string{"/"}, "paths each iteration requests, in order")
	runCmd.Flags().String("health-path", "/status", "endpoint probed before the run starts")
	runCmd.Flags().String("config", "", "YAML file with environment overrides")
	runCmd.Flags().Duration("check-latency", time.Second, "per-request latency ceiling used by checks")
	runCmd.Flags().Bool("json", false, "print the report as JSON instead of a summary")
	runCmd.Flags().String("report", "", "also write the JSON report to this file")
	runCmd.Flags().Bool("no-color", false, "disable colored output")
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	envName, _ := cmd.Flags().GetString("env")
	testType, _ := cmd.Flags().GetString("type")
	vus, _ := cmd.Flags().GetInt("vus")
	paths, _ := cmd.Flags().GetStringSlice("path")
	healthPath, _ := cmd.Flags().GetString("health-path")
	configFile, _ := cmd.Flags().GetString("config")
	checkLatency, _ := cmd.Flags().GetDuration("check-latency")
	asJSON, _ := cmd.Flags().GetBool("json")
	reportPath, _ := cmd.Flags().GetString("report")
	noColor, _ := cmd.Flags().GetBool("no-color")

	// The --env flag takes precedence over the ENV variable.
	getenv := os.Getenv
	if envName != "" {
		getenv = func(key string) string {
			if key == "ENV" {
				return envName
			}
			return os.Getenv(key)
		}
	}

	var fileCfg *env.FileConfig
	if configFile != "" {
		var err error
		fileCfg, err = env.LoadFileConfig(configFile)
		if err != nil {
			return err
		}
	}

	var fileEnvs map[string]env.Config
	if fileCfg != nil {
		fileEnvs = fileCfg.Environments
	}
	registry := env.Load(getenv, fileEnvs)

	cfg := registry.Current()
	baseVUs := cfg.MaxVUs
	if vus > 0 {
		baseVUs = vus
	}

	set := thresholds.DefaultTiers(getenv).ForEnvironment(registry.Selected())
	if fileCfg != nil && len(fileCfg.Thresholds) > 0 {
		set = set.Merge(thresholds.Set(fileCfg.Thresholds))
	}
	opts := options.NewBuilder(registry.Selected(), baseVUs, set, getenv).ForType(testType)

	scenario := runner.Scenario{
		Name:    fmt.Sprintf("%s against %s", testType, registry.Selected()),
		Iterate: pathScenario(paths, checkLatency),
	}

	r := runner.New(registry, opts, scenario, runner.WithHealthPath(healthPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "running %s test against %s (%s), %d VUs peak, %s total\n\n",
		opts.TestType, registry.Selected(), cfg.BaseURL, opts.MaxTarget(), opts.TotalDuration())

	report, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		defer f.Close()
		if err := output.WriteJSON(f, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if asJSON {
		if err := output.WriteJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		consoleOpts := []output.ConsoleOption{}
		if noColor {
			consoleOpts = append(consoleOpts, output.WithColors(false))
		}
		output.NewConsole(cmd.OutOrStdout(), consoleOpts...).WriteReport(report)
	}

	if !report.Passed {
		return fmt.Errorf("thresholds failed")
	}
	return nil
}

// pathScenario builds an iteration that requests each path in order and
// runs the standard GET checks against every response.
func pathScenario(paths []string, ceiling time.Duration) runner.IterationFunc {
	return func(ctx context.Context, vu *runner.VU) error {
		for _, path := range paths {
			resp, err := vu.Do(ctx, httpx.NewRequest("GET", path, httpx.WithEndpoint(endpointName(path))))
			if err != nil {
				return err
			}
			checks.GetSuccess(resp, vu.Metrics, ceiling)
		}
		return nil
	}
}

// endpointName derives a metrics label from a request path: "/items/all"
// becomes "items_all", the bare root becomes "root".
func endpointName(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "root"
	}
	replacer := strings.NewReplacer("/", "_", "?", "_", "&", "_", "=", "_")
	return strings.ToLower(replacer.Replace(trimmed))
}
