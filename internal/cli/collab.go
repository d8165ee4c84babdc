package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okidwi/chathub/internal/client"
	"github.com/spf13/cobra"
)

var (
	collabSession  string
	collabUser     string
	collabType     string
	collabMaxUsers int
)

var collabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Manage collaboration sessions",
	Long: `Manage collaboration sessions: shared message feeds, a whiteboard,
and a task list per session.

Most subcommands default to the active session; pass --session to
target another one.`,
}

var collabCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a session and make it active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := api.CreateSession(context.Background(), args[0], collabType, collabMaxUsers)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		link, err := api.InviteLink(context.Background(), session.ID)
		if err != nil {
			return fmt.Errorf("invite link: %w", err)
		}

		fmt.Printf("Created session %s (%s)\n", session.ID, session.Name)
		fmt.Printf("Invite: %s\n", link)
		return nil
	},
}

var collabJoinCmd = &cobra.Command{
	Use:   "join <session-id> [name]",
	Short: "Join a session",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 1 {
			name = args[1]
		}

		participant, err := api.JoinSession(context.Background(), args[0], name)
		if err != nil {
			return fmt.Errorf("join: %w", err)
		}
		fmt.Printf("Joined as %s (%s)\n", participant.Name, participant.ID)
		return nil
	},
}

var collabSendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Post a message to the session feed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := args[0]
		for _, arg := range args[1:] {
			text += " " + arg
		}

		msg, err := api.SendMessage(context.Background(), collabSession, collabUser, text)
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp, msg.User, msg.Text)
		return nil
	},
}

var collabMessagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Print the session feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		messages, err := api.Messages(context.Background(), collabSession)
		if err != nil {
			return fmt.Errorf("messages: %w", err)
		}

		if len(messages) == 0 {
			fmt.Println("No messages yet.")
			return nil
		}
		for _, msg := range messages {
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp, msg.User, msg.Text)
		}
		return nil
	},
}

var collabWatchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Stream the session feed live (Ctrl-C to stop)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err := api.SubscribeFeed(ctx, args[0], func(event client.FeedEvent) error {
			fmt.Printf("[%s] %s: %s\n", event.Message.Timestamp, event.Message.User, event.Message.Text)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("watch: %w", err)
		}
		return nil
	},
}

var collabTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List session tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := api.Tasks(context.Background(), collabSession)
		if err != nil {
			return fmt.Errorf("tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks yet.")
			return nil
		}
		for _, task := range tasks {
			status := " "
			if task.Completed {
				status = "x"
			}
			assignee := ""
			if task.Assignee != nil {
				assignee = " @" + *task.Assignee
			}
			fmt.Printf("[%s] %s  %s%s\n", status, task.ID, task.Description, assignee)
		}
		return nil
	},
}

var collabTaskAddCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := api.AddTask(context.Background(), collabSession, args[0])
		if err != nil {
			return fmt.Errorf("add task: %w", err)
		}
		fmt.Printf("Added task %s\n", task.ID)
		return nil
	},
}

var collabTaskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.CompleteTask(context.Background(), collabSession, args[0]); err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		fmt.Println("Task completed.")
		return nil
	},
}

var collabTaskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <assignee>",
	Short: "Assign a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.AssignTask(context.Background(), collabSession, args[0], args[1]); err != nil {
			return fmt.Errorf("assign task: %w", err)
		}
		fmt.Printf("Task assigned to %s.\n", args[1])
		return nil
	},
}

var collabTaskRemoveCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Remove a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.RemoveTask(context.Background(), collabSession, args[0]); err != nil {
			return fmt.Errorf("remove task: %w", err)
		}
		fmt.Println("Task removed.")
		return nil
	},
}

var collabExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the full session as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := api.ExportSession(context.Background(), collabSession)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		out := "session_" + session.ID + ".json"
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Printf("Exported session to %s\n", out)
		return nil
	},
}

func init() {
	collabCmd.PersistentFlags().StringVarP(&collabSession, "session", "s", "", "session id (default: active session)")

	collabSendCmd.Flags().StringVarP(&collabUser, "user", "u", "", "user name (default: Anonymous)")
	collabCreateCmd.Flags().StringVarP(&collabType, "type", "t", "brainstorm", "session type")
	collabCreateCmd.Flags().IntVarP(&collabMaxUsers, "max-users", "m", 5, "advisory participant limit")

	collabTasksCmd.AddCommand(collabTaskAddCmd)
	collabTasksCmd.AddCommand(collabTaskDoneCmd)
	collabTasksCmd.AddCommand(collabTaskAssignCmd)
	collabTasksCmd.AddCommand(collabTaskRemoveCmd)

	collabCmd.AddCommand(collabCreateCmd)
	collabCmd.AddCommand(collabJoinCmd)
	collabCmd.AddCommand(collabSendCmd)
	collabCmd.AddCommand(collabMessagesCmd)
	collabCmd.AddCommand(collabWatchCmd)
	collabCmd.AddCommand(collabTasksCmd)
	collabCmd.AddCommand(collabExportCmd)
}
