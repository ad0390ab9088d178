package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	grpcapi "github.com/GriffinCanCode/applaunchd/internal/api/grpc"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow application lifecycle events",
	Long: `Watch prints every started and terminated event until interrupted or
until the daemon shuts down.

Example:
  applaunchctl watch
  applaunchctl watch --output json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	return withClient(func(client *grpcapi.Client) error {
		events, errs := client.StatusEvents(ctx)
		for ev := range events {
			if IsJSONOutput() {
				line, err := sonic.Marshal(ev)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(line))
				continue
			}
			fmt.Fprintf(out, "%s  %-24s %s\n", time.Now().Format(time.TimeOnly), ev.AppID, ev.Kind)
		}

		if err := <-errs; err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
}
