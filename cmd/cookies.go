package cmd

import (
	"fmt"
	"time"

	"github.com/ranobe-tools/noveld/internal/render"
	"github.com/ranobe-tools/noveld/internal/ui"

	"github.com/spf13/cobra"
)

var (
	flagCookiesSite   string
	flagCookiesOutput string
	flagLoginWait     int
)

func init() {
	cookiesCmd := &cobra.Command{
		Use:   "cookies",
		Short: "Open a visible browser, wait for a manual login, and save the session cookies",
		RunE: func(cmd *cobra.Command, args []string) error {
			logSvc := ui.NewLogger(flagDebug)

			fmt.Printf("Opening %s. You have %d seconds to log in.\n", flagCookiesSite, flagLoginWait)
			fmt.Println("Cookies will be saved automatically when the time is up.")

			count, err := render.ExportCookies(
				flagCookiesSite,
				flagCookiesOutput,
				time.Duration(flagLoginWait)*time.Second,
				render.Options{DebugLogger: logSvc},
			)
			if err != nil {
				return err
			}

			fmt.Printf("Saved %d cookies to %s\n", count, flagCookiesOutput)
			return nil
		},
	}

	cookiesCmd.Flags().StringVar(&flagCookiesSite, "site", "https://ranobelib.me", "site to log in to")
	cookiesCmd.Flags().StringVar(&flagCookiesOutput, "output", "cookies.json", "output path for the cookie file")
	cookiesCmd.Flags().IntVar(&flagLoginWait, "login-wait", 120, "seconds to wait for the manual login")

	rootCmd.AddCommand(cookiesCmd)
}
