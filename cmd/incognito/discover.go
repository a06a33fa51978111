package main

import (
	"fmt"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ggoodman/incognito-go/keychain"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <issuer>",
	Short: "Resolve an issuer's JWK Set URL via OpenID Connect discovery",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	issuer := args[0]
	url, err := keychain.DiscoverJWKSURL(ctx, issuer, &http.Client{Timeout: timeout})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]string{"issuer": issuer, "jwks_uri": url})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.CyanString("jwks_uri"), url)
	return nil
}
