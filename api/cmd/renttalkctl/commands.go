package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"renttalk-tenant-portal/api/internal/app"
)

func newSeedCmd(build builder) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed every empty collection with the demo records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, build, "seed", func(ctx context.Context, a *app.App) (any, error) {
				if err := a.Portal.Seed(ctx); err != nil {
					return nil, err
				}
				return map[string]int{
					"maintenance_requests": len(a.Portal.Maintenance.List(ctx)),
					"messages":             len(a.Portal.Messages.List(ctx)),
					"payments":             len(a.Portal.Payments.List(ctx)),
				}, nil
			})
		},
	}
}

func newPaymentsCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment maintenance",
	}

	var count int
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Schedule monthly rent payments after the latest due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 0 {
				return errors.New("--count must be >= 0")
			}
			return run(cmd, build, "payments generate", func(ctx context.Context, a *app.App) (any, error) {
				return a.Portal.Payments.GenerateFuturePayments(ctx, count)
			})
		},
	}
	generate.Flags().IntVar(&count, "count", 0, "Number of payments (0 uses the configured default)")

	var asOf string
	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "Mark due payments past their due date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if asOf != "" {
				d, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				now = d
			}
			return run(cmd, build, "payments overdue", func(ctx context.Context, a *app.App) (any, error) {
				return a.Portal.Payments.MarkOverdue(ctx, now)
			})
		},
	}
	overdue.Flags().StringVar(&asOf, "as-of", "", "Reference date (UTC, YYYY-MM-DD), defaults to now")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print outstanding and paid totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, build, "payments summary", func(ctx context.Context, a *app.App) (any, error) {
				return a.Portal.Payments.Summary(ctx), nil
			})
		},
	}

	cmd.AddCommand(generate, overdue, summary)
	return cmd
}

func newMessagesCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Tenant conversation",
	}

	var wait bool
	send := &cobra.Command{
		Use:   "send <content>",
		Short: "Send a message as the tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, build, "messages send", func(ctx context.Context, a *app.App) (any, error) {
				sent, err := a.Portal.Messages.SendMessage(ctx, args[0])
				if err != nil {
					return nil, err
				}
				if wait {
					a.Portal.Messages.Wait()
				}
				return sent, nil
			})
		},
	}
	send.Flags().BoolVar(&wait, "wait", true, "Wait for the landlord's automatic reply before exiting")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, build, "messages list", func(ctx context.Context, a *app.App) (any, error) {
				return a.Portal.Messages.List(ctx), nil
			})
		},
	}

	cmd.AddCommand(send, list)
	return cmd
}

func newRequestsCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Maintenance requests",
	}

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List maintenance requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, build, "requests list", func(ctx context.Context, a *app.App) (any, error) {
				if activeOnly {
					return a.Portal.Maintenance.GetActiveRequests(ctx), nil
				}
				return a.Portal.Maintenance.List(ctx), nil
			})
		},
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "Only pending and in-progress requests")

	var note string
	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a request to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, build, "requests status", func(ctx context.Context, a *app.App) (any, error) {
				updated, ok, err := a.Portal.Maintenance.UpdateStatus(ctx, args[0], args[1], note)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, fmt.Errorf("maintenance request %q not found", args[0])
				}
				return updated, nil
			})
		},
	}
	status.Flags().StringVar(&note, "note", "", "Timeline note")

	cmd.AddCommand(list, status)
	return cmd
}
