package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chatexport/chatexport/internal/service"
)

var listCmd = &cobra.Command{
	Use:   "list <archive.zip>",
	Short: "List the conversations in an export archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc := service.NewExportService(cfg, collector)
	infos, err := svc.List(ctx, args[0])
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("Archive contains no conversations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tMESSAGES\tTITLE")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%d\t%s\n", info.Created, info.Messages, info.Title)
	}
	return w.Flush()
}
