package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/atinyakov/todosync/internal/client/syncer"
	"github.com/atinyakov/todosync/internal/client/todo"
	"github.com/atinyakov/todosync/internal/models"
	"github.com/spf13/cobra"
)

func registerCmd(get func() *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <name> <email>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.api.Register(cmd.Context(), args[0], args[1], password)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if err := a.store.SetToken(resp.Token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "registered as %s\n", resp.User.Email)
			a.syncNow(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd(get func() *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and replay queued changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.api.Login(cmd.Context(), args[0], password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.store.SetToken(resp.Token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "logged in as %s\n", resp.User.Email)
			a.syncNow(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token (queued changes are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.store.ClearToken(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "logged out")
			return nil
		},
	}
}

func addCmd(get func() *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			t, err := a.manager.Add(args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "added %s\n", t.ID)
			a.syncNow(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	return cmd
}

func listCmd(get func() *app) *cobra.Command {
	var (
		status  string
		search  string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			filter := todo.Filter(status)
			switch filter {
			case todo.FilterAll, todo.FilterPending, todo.FilterCompleted:
			default:
				return fmt.Errorf("unknown status filter %q", status)
			}

			if refresh {
				a.syncNow(cmd.Context())
				if _, err := a.manager.Refresh(cmd.Context(), a.api); err != nil {
					fmt.Fprintf(a.out, "showing cached tasks: %v\n", err)
				}
			}

			tasks, err := a.manager.List(filter, search)
			if err != nil {
				return err
			}
			printTasks(a, tasks)

			if pending, err := a.local.Pending(); err == nil && len(pending) > 0 {
				fmt.Fprintf(a.out, "%d change(s) waiting to sync\n", len(pending))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", string(todo.FilterAll), "all | pending | completed")
	cmd.Flags().StringVarP(&search, "search", "q", "", "match title or description")
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "sync and fetch from the server first")
	return cmd
}

func printTasks(a *app, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "no tasks")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tDESCRIPTION")
	for _, t := range tasks {
		mark := "[ ]"
		if t.Status == models.StatusCompleted {
			mark = "[x]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, mark, t.Title, t.Description)
	}
	_ = w.Flush()
}

func doneCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task between pending and completed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			t, err := a.manager.Toggle(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is now %s\n", t.ID, t.Status)
			a.syncNow(cmd.Context())
			return nil
		},
	}
}

func editCmd(get func() *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "edit <id> <title>",
		Short: "Change a task's title and optionally its description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			t, err := a.manager.Edit(id, args[1], desc)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "updated %s\n", t.ID)
			a.syncNow(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func rmCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			if err := a.manager.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", id)
			a.syncNow(cmd.Context())
			return nil
		},
	}
}

func syncCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued changes now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			res, err := a.syncer.Sync(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			switch {
			case res.Offline:
				fmt.Fprintln(a.out, "offline; nothing sent")
			case res.Sent == 0:
				fmt.Fprintln(a.out, "nothing to sync")
			default:
				fmt.Fprintf(a.out, "synced %d change(s)\n", res.Sent)
			}
			return nil
		},
	}
}

func watchCmd(get func() *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing in the foreground until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			a.syncer.OnResult = func(res syncer.Result, err error) {
				switch {
				case err != nil:
					fmt.Fprintf(a.out, "%s sync failed: %v\n", time.Now().Format(time.TimeOnly), err)
				case res.Sent > 0:
					fmt.Fprintf(a.out, "%s synced %d change(s)\n", time.Now().Format(time.TimeOnly), res.Sent)
				}
			}
			fmt.Fprintf(a.out, "watching %s every %s (Ctrl+C to stop)\n", cmd.Flag("url").Value, interval)
			a.syncer.Run(cmd.Context(), interval)
			return nil
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", 10*time.Second, "connectivity poll interval")
	return cmd
}
