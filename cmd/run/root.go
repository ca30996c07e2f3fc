package run

import (
	"context"
	"fmt"
	cmdUtil "github.com/ValentinKolb/kvload/cmd/util"
	"github.com/ValentinKolb/kvload/lib/harness"
	"github.com/ValentinKolb/kvload/lib/stats"
	"github.com/ValentinKolb/kvload/lib/user"
	"github.com/ValentinKolb/kvload/rpc/client"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	runConfig    = &harness.Config{}
	clientConfig common.ClientConfig

	RunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a load test against a key-value store",
		Long: `Spawn virtual users that send weighted SET and GET requests to the store and report latency and failures per operation.
The configuration can be set via command line flags or environment variables. The format of the environment variables is KVLOAD_<flag> (e.g. KVLOAD_SPAWN_RATE=20)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	cmdUtil.SetupClientFlags(RunCmd)

	// add flags
	key := "users"
	RunCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("Number of concurrent virtual users"))

	key = "spawn-rate"
	RunCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("Users started per second, 0 starts all users at once"))

	key = "run-time"
	RunCmd.PersistentFlags().Duration(key, 30*time.Second, cmdUtil.WrapString("Duration of the test (e.g. 30s, 5m), 0 runs until interrupted"))

	key = "report-interval"
	RunCmd.PersistentFlags().Duration(key, 5*time.Second, cmdUtil.WrapString("Interval of the progress log, 0 disables it"))

	key = "set-weight"
	RunCmd.PersistentFlags().Int(key, 2, cmdUtil.WrapString("Relative weight of the set_key task"))

	key = "get-weight"
	RunCmd.PersistentFlags().Int(key, 1, cmdUtil.WrapString("Relative weight of the get_key task"))

	key = "value-size"
	RunCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Length of the random values in bytes, 0 sends value_<1..1000>"))

	key = "registry-cap"
	RunCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Number of written keys each user remembers for GET requests, 0 remembers all"))

	key = "wait-min"
	RunCmd.PersistentFlags().Duration(key, 0, cmdUtil.WrapString("Minimal pause of a user between two requests"))

	key = "wait-max"
	RunCmd.PersistentFlags().Duration(key, 0, cmdUtil.WrapString("Maximal pause of a user between two requests"))

	key = "seed"
	RunCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Seed of the random generators (user n uses seed+n), 0 picks random seeds"))

	key = "samples"
	RunCmd.PersistentFlags().Int(key, stats.DefaultSamples, cmdUtil.WrapString("Number of latency samples kept per operation for percentiles"))

	key = "csv"
	RunCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional path to save the results as CSV"))

	key = "metrics-endpoint"
	RunCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address to serve /metrics (prometheus) and /stats (json) on during the test (e.g. 127.0.0.1:9100)"))

	key = "log-level"
	RunCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if clientConfig, err = cmdUtil.GetClientConfig(); err != nil {
		return err
	}

	runConfig.Users = viper.GetInt("users")
	runConfig.SpawnRate = viper.GetInt("spawn-rate")
	runConfig.RunTime = viper.GetDuration("run-time")
	runConfig.ReportInterval = viper.GetDuration("report-interval")
	runConfig.User = user.Config{
		SetWeight:   viper.GetInt("set-weight"),
		GetWeight:   viper.GetInt("get-weight"),
		ValueSize:   viper.GetInt("value-size"),
		RegistryCap: viper.GetInt("registry-cap"),
		WaitMin:     viper.GetDuration("wait-min"),
		WaitMax:     viper.GetDuration("wait-max"),
		Seed:        viper.GetInt64("seed"),
	}

	return runConfig.Validate()
}

// run executes the load test
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	fmt.Print(clientConfig.String())
	fmt.Printf("\nUsers: %d, Spawn Rate: %d/s, Run Time: %s\n\n", runConfig.Users, runConfig.SpawnRate, runConfig.RunTime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector(viper.GetInt("samples"))
	defer collector.Close()

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		go func() {
			if err := collector.ServeMetrics(ctx, endpoint); err != nil {
				stats.Logger.Errorf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	factory := func() user.IClient {
		return client.NewTCPClient(clientConfig)
	}

	runner, err := harness.NewRunner(*runConfig, factory, collector)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", report)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("Exporting results to CSV: %s\n", csvPath)
		if err := report.WriteCSV(csvPath); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
	}

	return nil
}
