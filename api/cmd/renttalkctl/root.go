package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"renttalk-tenant-portal/api/internal/app"
)

type builder func(ctx context.Context) (*app.App, error)

type output struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func newRootCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "renttalkctl",
		Short:         "Operate the RentTalk tenant portal record store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(
		newSeedCmd(build),
		newPaymentsCmd(build),
		newMessagesCmd(build),
		newRequestsCmd(build),
	)
	return cmd
}

// run builds the portal, runs fn and prints its result as JSON.
func run(cmd *cobra.Command, build builder, name string, fn func(ctx context.Context, a *app.App) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := build(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res, err := fn(ctx, a)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Command:    name,
		DurationMS: time.Since(start).Milliseconds(),
		Result:     res,
	})
}
