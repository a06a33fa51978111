package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ggoodman/incognito-go/keychain"
)

var keysetCmd = &cobra.Command{
	Use:   "keyset",
	Short: "Fetch and list the pool's public signing keys",
	Args:  cobra.NoArgs,
	RunE:  runKeyset,
}

func init() {
	rootCmd.AddCommand(keysetCmd)
}

type keyInfo struct {
	KeyID     string `json:"kid"`
	Algorithm string `json:"alg,omitempty"`
	Use       string `json:"use,omitempty"`
	Type      string `json:"kty"`
}

func runKeyset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	kopts := []keychain.Option{
		keychain.WithLogger(logger()),
		keychain.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	var kc *keychain.Keychain
	switch {
	case cfg.JWKSURL != "":
		kc, err = keychain.New(cfg.JWKSURL, kopts...)
	case cfg.Issuer != "":
		kc, err = keychain.Discover(ctx, cfg.Issuer, kopts...)
	default:
		err = errors.New("one of --jwks-url, --issuer or --region with --user-pool-id is required")
	}
	if err != nil {
		return err
	}
	defer kc.Close()

	set, err := kc.Refresh(ctx)
	if err != nil {
		return err
	}

	keys := make([]keyInfo, 0, len(set.Keys))
	for _, k := range set.Keys {
		keys = append(keys, keyInfo{KeyID: k.KeyID, Algorithm: k.Algorithm, Use: k.Use, Type: keyType(k.Key)})
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"url": kc.URL(), "keys": keys})
	}

	out := cmd.OutOrStdout()
	color.New(color.Bold).Fprintln(out, kc.URL())
	if len(keys) == 0 {
		color.New(color.FgYellow).Fprintln(out, "  no keys published")
		return nil
	}
	cyan := color.New(color.FgCyan)
	for _, k := range keys {
		cyan.Fprintf(out, "  %-48s", k.KeyID)
		fmt.Fprintf(out, " %-6s %-4s %s\n", k.Algorithm, k.Use, k.Type)
	}
	return nil
}

func keyType(key any) string {
	switch key.(type) {
	case *rsa.PublicKey:
		return "RSA"
	case *ecdsa.PublicKey:
		return "EC"
	case ed25519.PublicKey:
		return "OKP"
	case []byte:
		return "oct"
	}
	return fmt.Sprintf("%T", key)
}
