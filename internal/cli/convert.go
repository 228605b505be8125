package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chatexport/chatexport/internal/metrics"
	"github.com/chatexport/chatexport/internal/service"
)

var (
	convertOutput string
	convertFormat string
)

var convertCmd = &cobra.Command{
	Use:   "convert <archive.zip>",
	Short: "Convert an export archive into local documents",
	Long: `Convert renders every conversation in an export archive into a styled
HTML document (or Markdown with --format markdown) under the output
directory. Referenced images and videos are extracted alongside into
a media/ subdirectory.

Examples:
  chatexport convert export.zip
  chatexport convert export.zip -o ~/chats
  chatexport convert export.zip --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output directory (default from config)")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "output format: html or markdown")
}

func runConvert(cmd *cobra.Command, args []string) error {
	archivePath := args[0]

	if convertOutput != "" {
		cfg.OutputDir = convertOutput
	}
	if convertFormat != "" {
		cfg.Format = convertFormat
	}

	svc := service.NewExportService(cfg, collector)

	total, err := svc.Count(archivePath)
	if err != nil {
		return fmt.Errorf("scan archive: %w", err)
	}
	if total == 0 {
		fmt.Println("Archive contains no conversations.")
		return nil
	}

	return runExportJob(service.JobTypeConvert, archivePath, total, func(ctx context.Context, observe service.ExportObserver) (*service.ExportResult, error) {
		return svc.Convert(ctx, archivePath, observe)
	})
}

// runExportJob drives a background export with either the interactive
// progress UI or, when stdout is not a terminal, a plain wait.
func runExportJob(jobType, archivePath string, total int, run func(ctx context.Context, observe service.ExportObserver) (*service.ExportResult, error)) error {
	job := jobManager.CreateJob(jobType, archivePath, total)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		jobManager.SetRunning(job)
		result, err := run(ctx, func(d, t int) {
			jobManager.UpdateProgress(job, d, t)
		})
		if err != nil {
			jobManager.Fail(job, err)
			return
		}
		jobManager.Complete(job, result)
	}()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		cancelled, uiErr := RunJobProgress(jobManager, job.ID)
		if cancelled {
			cancel()
			<-done
			return errors.New("export cancelled")
		}
		if uiErr != nil {
			<-done
			return uiErr
		}
	}
	<-done

	snap := job.Snapshot()
	if snap.Status == service.JobStatusFailed {
		return errors.New(snap.Error)
	}

	if !interactive && snap.Result != nil {
		printSummary(snap.Result)
	}
	if verbose {
		printStats()
	}
	return nil
}

func printSummary(r *service.ExportResult) {
	fmt.Printf("Completed: %d conversations, %d documents, %d media assets\n",
		r.Conversations, r.Documents, r.MediaExtracted)
	for _, w := range r.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, e := range r.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}

// printStats dumps the run's operation timings.
func printStats() {
	snap := collector.Snapshot()
	fmt.Println("\nTimings:")
	printOp := func(name string, op *metrics.OperationSnapshot) {
		if op == nil {
			return
		}
		fmt.Printf("  %-14s %d ops, %d ms total, %.1f ms avg\n", name, op.Count, op.TotalTimeMs, op.AvgTimeMs)
	}
	printOp("parse", snap.Parse)
	printOp("render", snap.Render)
	printOp("media extract", snap.MediaExtract)
	printOp("upload", snap.Upload)
}
