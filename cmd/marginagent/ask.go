package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/app"
	"github.com/m2tx/margin_agent/internal/config"
	"github.com/m2tx/margin_agent/internal/model"
	"github.com/spf13/cobra"
)

func newAskCmd(c *cli) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question about a project and stream the answer",
		Example: `  marginagent ask --project PRJ-2024-001 "Why is labor over budget?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), config.RequestTimeout)
			defer cancel()

			rt, err := app.NewRuntime(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

			if !rt.Agent.Configured() {
				return fmt.Errorf("%s is not set", c.cfg.CredentialEnv())
			}

			return ask(ctx, rt.Agent, cmd.OutOrStdout(), projectID, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id the question is about")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func ask(ctx context.Context, a *agent.Agent, out io.Writer, projectID, question string) error {
	result, err := a.Run(ctx, agent.Request{
		ProjectID: projectID,
		Messages:  []model.Turn{{Role: model.RoleUser, Content: question}},
	}, func(chunk string) error {
		_, err := io.WriteString(out, chunk)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	if result.Degraded {
		fmt.Fprintf(out, "(stopped after %d steps)\n", result.Steps)
	}
	return nil
}
