package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLessonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lesson",
		Short: "Timetable commands",
	}

	cmd.AddCommand(newLessonCreateCmd())
	cmd.AddCommand(newLessonDeleteCmd())
	cmd.AddCommand(newLessonDeleteModuleCmd())
	cmd.AddCommand(newLessonResetCmd())

	return cmd
}

// lessonFlags binds the common lesson identification flags
type lessonFlags struct {
	room     string
	semester int
	module   string
	kind     string
	classNo  string
}

func (f *lessonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.room, "room", "", "Room context (required for anonymous users)")
	cmd.Flags().IntVar(&f.semester, "semester", 0, "Semester (required)")
	cmd.Flags().StringVar(&f.module, "module", "", "Module code (required)")
	cmd.Flags().StringVar(&f.kind, "type", "", "Lesson type (required)")
	cmd.Flags().StringVar(&f.classNo, "class", "", "Class number (required)")
	_ = cmd.MarkFlagRequired("semester")
	_ = cmd.MarkFlagRequired("module")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("class")
}

func (f *lessonFlags) body() map[string]any {
	return map[string]any{
		"semester":   f.semester,
		"moduleCode": f.module,
		"lessonType": f.kind,
		"classNo":    f.classNo,
	}
}

func newLessonCreateCmd() *cobra.Command {
	flags := &lessonFlags{}

	cmd := &cobra.Command{
		Use:   "create <user-id>",
		Short: "Add a lesson to a user's timetable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Lesson

			path := fmt.Sprintf("/api/v1/users/%s/lessons?room=%s", args[0], flags.room)
			if err := client.Post(path, flags.body(), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newLessonDeleteCmd() *cobra.Command {
	flags := &lessonFlags{}

	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Remove a lesson from a user's timetable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/users/%s/lessons?room=%s", args[0], flags.room)
			if err := client.DeleteWithBody(path, flags.body()); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Deleted")
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newLessonDeleteModuleCmd() *cobra.Command {
	var room string

	cmd := &cobra.Command{
		Use:   "delete-module <user-id> <semester> <module-code>",
		Short: "Remove a module and all its lessons",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/users/%s/semesters/%s/modules/%s?room=%s",
				args[0], args[1], args[2], room)
			if err := client.Delete(path); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Deleted")
			return nil
		},
	}

	cmd.Flags().StringVar(&room, "room", "", "Room context (required for anonymous users)")
	return cmd
}

func newLessonResetCmd() *cobra.Command {
	var room string

	cmd := &cobra.Command{
		Use:   "reset <user-id> <semester>",
		Short: "Clear a user's timetable for a semester",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/users/%s/semesters/%s?room=%s", args[0], args[1], room)
			if err := client.Delete(path); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Reset")
			return nil
		},
	}

	cmd.Flags().StringVar(&room, "room", "", "Room context (required for anonymous users)")
	return cmd
}
