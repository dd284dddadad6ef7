package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "User config commands",
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	var room string

	cmd := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show a user's config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ConfigResult

			path := fmt.Sprintf("/api/v1/users/%s/config?room=%s", args[0], room)
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&room, "room", "", "Room context (required for anonymous users)")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	var room, data string

	cmd := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Replace a user's config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/users/%s/config?room=%s", args[0], room)
			if err := client.Put(path, map[string]string{"data": data}); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&room, "room", "", "Room context (required for anonymous users)")
	cmd.Flags().StringVar(&data, "data", "", "Config JSON (required)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
