package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Room member commands",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserRenameCmd())
	cmd.AddCommand(newUserDeleteCmd())
	cmd.AddCommand(newUserRoomsCmd())

	return cmd
}

func newUserCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <room>",
		Short: "Create an anonymous user in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Member

			if err := client.Post("/api/v1/rooms/"+args[0]+"/users", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newUserRenameCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rename <room> <user-id>",
		Short: "Rename a room member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name}
			var result Member

			path := fmt.Sprintf("/api/v1/rooms/%s/users/%s", args[0], args[1])
			if err := client.Patch(path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <room> <user-id>",
		Short: "Remove a member from a room (anonymous users are destroyed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/rooms/%s/users/%s", args[0], args[1])
			if err := client.Delete(path); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Deleted")
			return nil
		},
	}
}

func newUserRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms <user-id>",
		Short: "List the rooms a user belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomsResult

			if err := client.Get("/api/v1/users/"+args[0]+"/rooms", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
