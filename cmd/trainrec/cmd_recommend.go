package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pokeriq/trainrec/core"
)

func newRecommendCommand(g *globals) *cobra.Command {
	var (
		userID    string
		algorithm string
		limit     int
		minutes   int
		exclude   []string
		skills    []string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print recommendations for one user as JSON",
		Example: `  trainrec recommend --user u42 --limit 5
  trainrec recommend --user u42 --algorithm LEARNING_PATH --minutes 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			req := &core.Request{
				UserID:    userID,
				Algorithm: core.Algorithm(strings.ToUpper(algorithm)),
				Limit:     limit,
				Context: core.RequestContext{
					AvailableMinutes: minutes,
					TargetSkills:     skills,
					Exclude:          exclude,
				},
			}
			resp := a.engine.GetRecommendations(cmd.Context(), req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(core.AlgorithmHybrid), "Algorithm: HYBRID, COLLABORATIVE, CONTENT_BASED, DEEP_LEARNING, LEARNING_PATH")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of items (0 uses engine.default_limit)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Available training minutes")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Content IDs to exclude")
	cmd.Flags().StringSliceVar(&skills, "skills", nil, "Target skills")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
