package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	grpcapi "github.com/GriffinCanCode/applaunchd/internal/api/grpc"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List launchable applications",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var startCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start an application",
	Long: `Start asks the daemon to start the application. It returns once the
request is dispatched; use watch to see when the application is running.`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(startCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext(cmd)
	defer cancel()

	out := cmd.OutOrStdout()
	return withClient(func(client *grpcapi.Client) error {
		apps, err := client.ListApplications(ctx)
		if err != nil {
			return err
		}

		if IsJSONOutput() {
			output, err := sonic.ConfigStd.MarshalIndent(apps, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(output))
			return nil
		}

		if len(apps) == 0 {
			fmt.Fprintln(out, "No applications registered")
			return nil
		}

		table := tablewriter.NewWriter(out)
		table.Header("ID", "Name", "Icon")
		for _, app := range apps {
			icon := app.IconPath
			if icon == "" {
				icon = "-"
			}
			table.Append(app.ID, app.Name, icon)
		}
		table.Render()
		fmt.Fprintf(out, "\nTotal applications: %d\n", len(apps))
		return nil
	})
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext(cmd)
	defer cancel()

	out := cmd.OutOrStdout()
	return withClient(func(client *grpcapi.Client) error {
		resp, err := client.StartApplication(ctx, args[0])
		if err != nil {
			return err
		}

		if IsJSONOutput() {
			output, err := sonic.Marshal(resp)
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(output))
		}
		if !resp.Status {
			return fmt.Errorf("%s", resp.Message)
		}
		if !IsJSONOutput() {
			fmt.Fprintf(out, "Start requested for '%s'\n", args[0])
		}
		return nil
	})
}
