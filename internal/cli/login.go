package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatexport/chatexport/internal/drive"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize access to Google Drive",
	Long: `Login runs the OAuth consent flow in your browser and stores the
resulting token locally. The token is refreshed automatically on later
runs, so this is only needed once (or after revoking access).

A Google Cloud OAuth client credentials file is required; point
credentials_path in the config (or CHATEXPORT_CREDENTIALS) at it.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	auth, err := drive.NewAuth(cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		return err
	}

	err = auth.Login(ctx, func(authURL string) {
		fmt.Println("Open the following URL in your browser to authorize access:")
		fmt.Println()
		fmt.Println("  " + authURL)
		fmt.Println()
		fmt.Println("Waiting for authorization...")
	})
	if err != nil {
		return err
	}

	fmt.Printf("Logged in. Token saved to %s\n", cfg.TokenPath)
	return nil
}
