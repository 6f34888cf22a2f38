package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newRefreshCommand(g *globals) *cobra.Command {
	var users []string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh user models and invalidate cached recommendations",
		Example: `  trainrec refresh --users u1,u2,u3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			res, err := a.engine.BatchUpdateUserModels(cmd.Context(), users)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d users failed", res.Failed, len(users))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&users, "users", nil, "Comma-separated user IDs (required)")
	_ = cmd.MarkFlagRequired("users")
	return cmd
}
