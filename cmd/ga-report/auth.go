package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ignite/ga-deep-dive/internal/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage analytics authorization",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize read-only analytics access and store the token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		oauthCfg, err := auth.LoadClientConfig(cfg.GA4.CredentialsPath, cfg.GA4.TokenURL)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		m := auth.NewManager(oauthCfg, auth.FileTokenStore{Path: cfg.GA4.TokenPath})
		if _, err := m.Login(ctx, openBrowser); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.GA4.TokenPath)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
}

// openBrowser prints the consent URL and tries to open it. Failing to
// launch a browser is not an error; the user can follow the link.
func openBrowser(url string) error {
	fmt.Fprintf(os.Stderr, "Open this URL to authorize access:\n\n  %s\n\n", url)
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
	return nil
}
