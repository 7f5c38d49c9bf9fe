package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ccee-sentinel/internal/bootstrap"
	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type topicFlags struct {
	module string
	topics []string
}

func (f *topicFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.module, "module", "m", "", "Module id (required)")
	cmd.Flags().StringSliceVarP(&f.topics, "topic", "t", nil, "Topic to generate; defaults to every topic of the module")
	_ = cmd.MarkFlagRequired("module")
}

// resolve returns the requested topics, or the module's configured ones when none were given.
func (f *topicFlags) resolve(catalog domain.ModuleCatalog) ([]string, error) {
	var topics []string
	for _, t := range f.topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) > 0 {
		return topics, nil
	}
	m, err := catalog.Module(f.module)
	if err != nil {
		return nil, err
	}
	if len(m.Topics) == 0 {
		return nil, fmt.Errorf("module %s has no configured topics; pass --topic", m.ID)
	}
	return m.Topics, nil
}

// eachTopic runs fn per topic and keeps going past failures. It fails only when every topic did.
func eachTopic(ctx context.Context, out io.Writer, topics []string, fn func(ctx context.Context, topic string) (int, error)) error {
	failed := 0
	rows := make([][]string, 0, len(topics))
	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := fn(ctx, topic)
		if err != nil {
			failed++
			rows = append(rows, []string{topic, "-", "FAILED: " + err.Error()})
			continue
		}
		rows = append(rows, []string{topic, strconv.Itoa(n), "ok"})
	}
	fmt.Fprintln(out, renderTable([]string{"Topic", "Items", "Status"}, rows, 1))
	if failed == len(topics) {
		return fmt.Errorf("all %d topics failed", failed)
	}
	fmt.Fprintf(out, "%d/%d topics generated\n", len(topics)-failed, len(topics))
	return nil
}

func newModulesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List configured modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.run(cmd.Context(), func(app *bootstrap.App) error {
				var rows [][]string
				for _, m := range app.Catalog.Modules() {
					rows = append(rows, []string{m.ID, m.Name, strconv.Itoa(len(m.Topics))})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Topics"}, rows, 2))
				return nil
			})
		},
	}
}

func newFlashcardsCommand(ctx *commandContext) *cobra.Command {
	var flags topicFlags
	cmd := &cobra.Command{
		Use:   "flashcards",
		Short: "Generate and cache flashcards for each topic of a module",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.run(cmd.Context(), func(app *bootstrap.App) error {
				topics, err := flags.resolve(app.Catalog)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Flashcards for %s:\n", flags.module)
				return eachTopic(cmd.Context(), cmd.OutOrStdout(), topics, func(c context.Context, topic string) (int, error) {
					cards, err := app.Flashcards.Generate(c, flags.module, topic)
					return len(cards), err
				})
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newNotesCommand(ctx *commandContext) *cobra.Command {
	var flags topicFlags
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Generate and cache study notes for each topic of a module",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.run(cmd.Context(), func(app *bootstrap.App) error {
				topics, err := flags.resolve(app.Catalog)
				if err != nil {
					return err
				}
				results, err := app.Notes.GenerateBulk(cmd.Context(), flags.module, topics)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				succeeded := 0
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "FAILED"
					if r.Success {
						status = "ok"
						succeeded++
					}
					rows = append(rows, []string{r.Topic, status})
				}
				fmt.Fprintln(out, renderTable([]string{"Topic", "Status"}, rows))
				fmt.Fprintf(out, "%d/%d topics generated\n", succeeded, len(results))
				if succeeded == 0 {
					return fmt.Errorf("no notes generated for %s", flags.module)
				}
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newQuestionsCommand(ctx *commandContext) *cobra.Command {
	var flags topicFlags
	var count int
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Generate and cache single-topic question sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.run(cmd.Context(), func(app *bootstrap.App) error {
				topics, err := flags.resolve(app.Catalog)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Questions for %s:\n", flags.module)
				return eachTopic(cmd.Context(), cmd.OutOrStdout(), topics, func(c context.Context, topic string) (int, error) {
					qs, err := app.Mock.GenerateForTopic(c, flags.module, topic, count)
					return len(qs), err
				})
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Questions per topic")
	return cmd
}

func newExamCommand(ctx *commandContext) *cobra.Command {
	var moduleID, mode, outPath string
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Generate a full mock exam and optionally write it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.run(cmd.Context(), func(app *bootstrap.App) error {
				exam, err := app.Mock.GenerateExam(cmd.Context(), moduleID, domain.ExamMode(strings.ToUpper(mode)))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exam %s: %d questions (%d AI batches, %d fallback batches)\n",
					exam.ID, len(exam.Questions), exam.AIBatches, exam.Fallbacks)
				if outPath == "" {
					return nil
				}
				data, err := json.MarshalIndent(exam, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return fmt.Errorf("write exam: %w", err)
				}
				logger.Get().Info("Exam written", zap.String("path", outPath))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&moduleID, "module", "m", "", "Module id (required)")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeCCEE), "Exam mode: CCEE or PRACTICE")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the exam JSON to this file")
	_ = cmd.MarkFlagRequired("module")
	return cmd
}
