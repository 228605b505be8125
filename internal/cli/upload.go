package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatexport/chatexport/internal/drive"
	"github.com/chatexport/chatexport/internal/service"
)

var (
	uploadFolder string
	uploadAsDocs bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <archive.zip>",
	Short: "Upload an export archive to Google Drive",
	Long: `Upload renders every conversation in an export archive and pushes the
documents into a Google Drive folder. Referenced media is uploaded
first so document links resolve remotely. With --docs the documents
are converted to native Google Docs, otherwise they are stored as
HTML files.

Requires a prior 'chatexport login'.

Examples:
  chatexport upload export.zip
  chatexport upload export.zip --folder "ChatGPT Archive" --docs`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFolder, "folder", "", "Drive folder name (default from config)")
	uploadCmd.Flags().BoolVar(&uploadAsDocs, "docs", false, "convert documents to native Google Docs")
}

func runUpload(cmd *cobra.Command, args []string) error {
	archivePath := args[0]

	if uploadFolder != "" {
		cfg.DriveFolder = uploadFolder
	}
	if uploadAsDocs {
		cfg.ConvertToDocs = true
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	auth, err := drive.NewAuth(cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		return err
	}
	ts, err := auth.TokenSource(ctx)
	if err != nil {
		return err
	}
	client, err := drive.NewClient(ctx, ts)
	if err != nil {
		return fmt.Errorf("create Drive client: %w", err)
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

	return runExportJob(service.JobTypeUpload, archivePath, total, func(ctx context.Context, observe service.ExportObserver) (*service.ExportResult, error) {
		return svc.Upload(ctx, archivePath, client, observe)
	})
}
