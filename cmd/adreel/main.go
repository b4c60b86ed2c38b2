package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adreel/adreel/internal/config"
	"github.com/adreel/adreel/internal/engine"
	"github.com/adreel/adreel/internal/logging"
	"github.com/adreel/adreel/internal/plan"
	"github.com/adreel/adreel/internal/system"
)

var configPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "adreel",
		Short:         "Assemble short-form video ads from scripted segments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	root.AddCommand(renderCmd(), planCmd(), preflightCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newProject() (*engine.Project, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	return engine.NewProject(cfg, logger), nil
}

func renderCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "render <request.yaml> [more requests...]",
		Short: "Assemble and render the requested ads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProject()
			if err != nil {
				return err
			}
			reqs := make([]*engine.Request, 0, len(args))
			for _, path := range args {
				req, err := engine.LoadRequest(path)
				if err != nil {
					return err
				}
				reqs = append(reqs, req)
			}

			runner := engine.NewRunner(p)
			if workers > 0 {
				runner.Workers = workers
			}
			results := runner.RenderAll(cmd.Context(), reqs)

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Request", "Status", "Output", "Duration"})
			failed := 0
			for _, r := range results {
				if r.Success {
					tw.AppendRow(table.Row{r.RequestID, "ok", r.OutputPath, fmt.Sprintf("%.2fs", r.Duration)})
				} else {
					failed++
					tw.AppendRow(table.Row{r.RequestID, "failed", r.Err, ""})
				}
			}
			tw.Render()
			if failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent renders (0 sizes from the host)")
	return cmd
}

func planCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "plan <request.yaml>",
		Short: "Reconcile the timeline without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProject()
			if err != nil {
				return err
			}
			req, err := engine.LoadRequest(args[0])
			if err != nil {
				return err
			}
			items, err := p.Plan(req)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"#", "Kind", "Start", "Duration", "Segment", "Transition"})
			for i, it := range items {
				tw.AppendRow(table.Row{
					i + 1, it.Kind,
					fmt.Sprintf("%.3f", it.Start),
					fmt.Sprintf("%.3f", it.Duration),
					it.SegmentID, it.Transition,
				})
			}
			tw.AppendFooter(table.Row{"", "total", "", fmt.Sprintf("%.3f", plan.Total(items)), "", ""})
			tw.Render()

			if outPath != "" {
				return plan.WritePlan(items, req.TargetDuration, outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the reconciled plan to a file")
	return cmd
}

func preflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Verify the external toolchain before rendering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			tools := system.Tools{FFmpeg: cfg.FFmpegPath, FFprobe: cfg.FFprobePath}
			if err := tools.Preflight(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("toolchain ok (%s, %d render workers)\n", cfg.FFmpegPath, system.RenderWorkers())
			return nil
		},
	}
}
