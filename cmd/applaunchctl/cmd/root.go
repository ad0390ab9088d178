package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	grpcapi "github.com/GriffinCanCode/applaunchd/internal/api/grpc"
)

// addrEnv overrides the default daemon address
const addrEnv = "APPLAUNCHD_GRPC_ADDR"

var (
	daemonAddr   string
	outputFormat string
	callTimeout  time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "applaunchctl",
	Short: "Control the application launcher daemon",
	Long: `applaunchctl lists applications known to applaunchd, requests starts
and follows lifecycle events over the daemon's gRPC interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		if st, ok := status.FromError(err); ok {
			fmt.Fprintf(os.Stderr, "Error: %s\n", st.Message())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return err
}

func init() {
	defaultAddr := "localhost:50052"
	if addr := os.Getenv(addrEnv); addr != "" {
		defaultAddr = addr
	}

	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", defaultAddr, "daemon gRPC address (env "+addrEnv+")")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().DurationVar(&callTimeout, "timeout", 5*time.Second, "timeout for list and start")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// withClient dials the daemon and runs fn with it
func withClient(fn func(*grpcapi.Client) error) error {
	client, err := grpcapi.NewClient(daemonAddr)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), callTimeout)
}
