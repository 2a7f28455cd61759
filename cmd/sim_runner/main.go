package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/miretskiy/colocsim/simulator"
)

// options holds the command line flags of one invocation
type options struct {
	configFile      string    // Path to YAML/JSON configuration file
	tenants         int       // Number of tenants to co-locate
	callRates       []float64 // Relative tenant call rates
	minTenantCalls  int       // Calls issued by the least active tenant
	keySpaces       []int     // Key space size per tenant (one value = all tenants)
	capacities      []int     // Dedicated cache capacity per tenant (one value = all tenants)
	recordingPeriod int       // Co-located calls between metric snapshots
	distribution    string    // Key distribution (uniform, zipf)
	zipfExponent    float64   // Zipf s parameter
	seed            int64     // Random seed (0 = random)
	outputFile      string    // Results file (stdout if empty)
	logLevel        string    // Log verbosity level
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := simulator.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "sim_runner [TENANTS CALL_RATE...]",
		Short: "Simulate effects of cache co-location for multiple tenants",
		Long: "Runs every tenant against a dedicated LRU cache, then all tenants against one shared " +
			"LRU cache sized as the sum of the dedicated ones, and writes per-tenant hit-rate series as JSON.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "Path to YAML or JSON configuration file")
	flags.IntVar(&opts.tenants, "tenants", defaults.Tenants, "Number of tenants to use for co-location")
	flags.Float64SliceVar(&opts.callRates, "call-rates", defaults.CallRates, "Relative tenant cache call rates, one positive float per tenant")
	flags.IntVarP(&opts.minTenantCalls, "min-tenant-calls", "m", defaults.MinTenantCalls, "Minimal number of calls any tenant's cache will receive (at least 10)")
	flags.IntSliceVarP(&opts.keySpaces, "key-space", "k", defaults.KeySpaceSizes, "Key space size of each tenant: one for all tenants, or one per tenant")
	flags.IntSliceVarP(&opts.capacities, "capacity", "c", defaults.DedicatedCapacities, "Cache capacity of each tenant before co-location: one for all tenants, or one per tenant")
	flags.IntVarP(&opts.recordingPeriod, "recording-period", "p", defaults.RecordingPeriod, "Number of co-located cache calls between hit metric recordings")
	flags.StringVar(&opts.distribution, "distribution", defaults.KeyDistribution.String(), "Key distribution: uniform or zipf")
	flags.Float64Var(&opts.zipfExponent, "zipf-exponent", simulator.DefaultZipfExponent, "Zipf exponent s (> 1), used with --distribution=zipf")
	flags.Int64Var(&opts.seed, "seed", 0, "Random seed for reproducibility (0 = random)")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "Path to output JSON file (prints to stdout if not specified)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log verbosity level (debug, info, warn, error)")

	return cmd
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())

	config, err := o.buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"tenants":             config.Tenants,
		"callRates":           config.CallRates,
		"minTenantCalls":      config.MinTenantCalls,
		"keySpaceSizes":       config.KeySpaceSizes,
		"dedicatedCapacities": config.DedicatedCapacities,
		"recordingPeriod":     config.RecordingPeriod,
		"keyDistribution":     config.KeyDistribution.String(),
	}).Info("Will run the simulation")

	sim, err := simulator.NewSimulator(config)
	if err != nil {
		return fmt.Errorf("creating simulator: %w", err)
	}
	sim.LogEvent = func(msg string) {
		logrus.Info(msg)
	}

	startTime := time.Now()
	results, err := sim.Run()
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}
	logrus.WithField("elapsed", time.Since(startTime)).Info("Simulation completed")

	for _, tenant := range results.Tenants {
		logrus.WithFields(logrus.Fields{
			"tenant":               tenant.Tenant.Index,
			"calls":                tenant.Tenant.Calls,
			"designatedMissRate":   fmt.Sprintf("%.2f%%", tenant.Designated.MissRate),
			"colocatedHitRate":     fmt.Sprintf("%.2f%%", tenant.Series.Last().HitRate),
			"designatedWarmMisses": fmt.Sprintf("%.2f%%", tenant.Designated.WarmMissRate),
		}).Info("Tenant summary")
	}

	output, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}

	if o.outputFile != "" {
		if err := os.WriteFile(o.outputFile, output, 0644); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		logrus.Infof("Results written to %s", o.outputFile)
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return err
}

// buildConfig layers the configuration: defaults, then the config file, then
// explicitly set flags, then positional TENANTS CALL_RATE... arguments.
func (o *options) buildConfig(cmd *cobra.Command, args []string) (simulator.SimConfig, error) {
	config := simulator.DefaultConfig()
	if o.configFile != "" {
		loaded, err := loadConfigFile(o.configFile)
		if err != nil {
			return config, err
		}
		config = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("tenants") {
		config.Tenants = o.tenants
	}
	if flags.Changed("call-rates") {
		config.CallRates = o.callRates
	}
	if flags.Changed("min-tenant-calls") {
		config.MinTenantCalls = o.minTenantCalls
	}
	if flags.Changed("key-space") {
		config.KeySpaceSizes = o.keySpaces
	}
	if flags.Changed("capacity") {
		config.DedicatedCapacities = o.capacities
	}
	if flags.Changed("recording-period") {
		config.RecordingPeriod = o.recordingPeriod
	}
	if flags.Changed("distribution") {
		dist, err := simulator.ParseKeyDistribution(o.distribution)
		if err != nil {
			return config, err
		}
		config.KeyDistribution = dist
	}
	if flags.Changed("zipf-exponent") {
		config.ZipfExponent = o.zipfExponent
	}
	if flags.Changed("seed") {
		config.RandomSeed = o.seed
	}

	if len(args) > 0 {
		tenants, err := strconv.Atoi(args[0])
		if err != nil {
			return config, fmt.Errorf("TENANTS must be an integer, got %q", args[0])
		}
		rates := make([]float64, 0, len(args)-1)
		for _, arg := range args[1:] {
			rate, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return config, fmt.Errorf("CALL_RATE must be a float, got %q", arg)
			}
			rates = append(rates, rate)
		}
		config.Tenants = tenants
		config.CallRates = rates
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// loadConfigFile reads a YAML (or JSON, which YAML accepts) configuration.
// Fields missing from the file keep their default values.
func loadConfigFile(path string) (simulator.SimConfig, error) {
	config := simulator.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return config, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
