package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	incognito "github.com/ggoodman/incognito-go"
)

var (
	jsonOutput bool
	noColor    bool
	verbose    bool
	timeout    time.Duration

	region     string
	userPoolID string
	clientID   string
	jwksURL    string
	issuerURL  string
	leeway     time.Duration
	tokenUse   string
)

var rootCmd = &cobra.Command{
	Use:   "incognito",
	Short: "Verify user pool JWTs and inspect their signing keys",
	Long: `incognito verifies JSON Web Tokens issued by an Amazon Cognito user pool
(or any issuer publishing a JWK Set) and inspects the keys they are signed with.

Configuration is read from COGNITO_* environment variables; flags override them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")
	pf.DurationVar(&timeout, "timeout", 10*time.Second, "Network timeout")

	pf.StringVar(&region, "region", "", "User pool region (COGNITO_REGION)")
	pf.StringVar(&userPoolID, "user-pool-id", "", "User pool id (COGNITO_USER_POOL_ID)")
	pf.StringVar(&clientID, "client-id", "", "App client id tokens must be addressed to (COGNITO_CLIENT_ID)")
	pf.StringVar(&jwksURL, "jwks-url", "", "JWK Set URL (COGNITO_JWKS_URL)")
	pf.StringVar(&issuerURL, "issuer", "", "Issuer URL (COGNITO_ISSUER)")
	pf.DurationVar(&leeway, "leeway", 0, "Clock skew tolerance (COGNITO_JWT_LEEWAY)")
	pf.StringVar(&tokenUse, "token-use", "", "Accept only access or id tokens (COGNITO_TOKEN_USE)")
}

func execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return err
	}
	return nil
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (incognito.Config, error) {
	cfg, err := incognito.LoadConfig()
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	set := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	set("region", &cfg.Region, region)
	set("user-pool-id", &cfg.UserPoolID, userPoolID)
	set("client-id", &cfg.ClientID, clientID)
	set("jwks-url", &cfg.JWKSURL, jwksURL)
	set("issuer", &cfg.Issuer, issuerURL)
	set("token-use", &cfg.TokenUse, tokenUse)
	if flags.Changed("leeway") {
		cfg.Leeway = leeway
	}
	if flags.Changed("region") || flags.Changed("user-pool-id") {
		if !flags.Changed("issuer") {
			cfg.Issuer = ""
		}
		if !flags.Changed("jwks-url") {
			cfg.JWKSURL = ""
		}
	}
	cfg.Normalize()
	return cfg, nil
}

func logger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
