package serve

import (
	"context"
	"fmt"
	cmdUtil "github.com/ValentinKolb/kvload/cmd/util"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/ValentinKolb/kvload/rpc/serializer"
	"github.com/ValentinKolb/kvload/rpc/server"
	"github.com/ValentinKolb/kvload/rpc/transport/tcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the in-memory reference store",
		Long:    `Start an in-memory key-value store speaking the line-json protocol, e.g. as target for local load tests. The configuration can be set via command line flags or environment variables. The format of the environment variables is KVLOAD_<flag> (e.g. KVLOAD_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:7171", cmdUtil.WrapString("The address on which the store will listen"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Idle timeout per connection in seconds, 0 disables it"))

	key = "max-request-size"
	ServeCmd.PersistentFlags().Int(key, 64*1024, cmdUtil.WrapString("Maximum length of a single request line in bytes"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds, 0 keeps the os default"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.MaxRequestSize = viper.GetInt("max-request-size")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.TCPConf = common.TCPConf{
		TCPDelay:        !viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
	}

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	return nil
}

// run starts the reference store and blocks until it is interrupted
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	fmt.Print(serveCmdConfig.String())

	serv := server.NewRPCServer(
		*serveCmdConfig,
		tcp.NewTCPServerTransport(),
		serializer.NewJSONSerializer(),
	)
	if err := serv.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		server.Logger.Infof("Shutting down, %d keys stored", serv.Len())
		_ = serv.Close()
	}()

	return serv.Serve()
}
