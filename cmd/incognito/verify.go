package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	incognito "github.com/ggoodman/incognito-go"
	"github.com/ggoodman/incognito-go/token"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [token]",
	Short: "Verify a token's header, claims and signature",
	Long: `Verify a compact JWT against the configured user pool. The token is read from
the argument, or from stdin when the argument is "-" or missing.

The exit status is non-zero when the token is rejected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

type verifyResult struct {
	Valid  bool           `json:"valid"`
	Reason string         `json:"reason,omitempty"`
	Kind   string         `json:"kind,omitempty"`
	Header map[string]any `json:"header,omitempty"`
	Claims map[string]any `json:"claims,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	raw, err := readToken(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	v, err := incognito.New(ctx, cfg, incognito.WithLogger(logger()))
	if err != nil {
		return err
	}
	defer v.Close()

	res := verifyResult{Valid: true}
	tok, verr := v.VerifyToken(ctx, raw)
	if verr != nil {
		res.Valid = false
		res.Reason = verr.Error()
		res.Kind = errorKind(verr)
		// Show what can be decoded even when verification fails.
		tok, _ = token.Parse(raw)
	}
	if tok != nil {
		if sigs := tok.Signatures(); len(sigs) > 0 {
			res.Header = sigs[0].Protected
		}
		res.Claims, _ = tok.Claims()
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printVerifyResult(out, res)
	}
	if verr != nil {
		return fmt.Errorf("token rejected: %s", res.Kind)
	}
	return nil
}

func printVerifyResult(w io.Writer, res verifyResult) {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	if res.Valid {
		color.New(color.FgGreen).Fprintln(w, "✓ token is valid")
	} else {
		color.New(color.FgRed).Fprintf(w, "✗ token rejected (%s)\n", res.Kind)
		dim.Fprintf(w, "  %s\n", res.Reason)
	}
	if len(res.Header) > 0 {
		bold.Fprintln(w, "\nHeader")
		printMap(w, res.Header)
	}
	if len(res.Claims) > 0 {
		bold.Fprintln(w, "\nClaims")
		printMap(w, res.Claims)
	}
}

func printMap(w io.Writer, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cyan := color.New(color.FgCyan)
	for _, k := range keys {
		cyan.Fprintf(w, "  %-12s", k)
		fmt.Fprintf(w, " %v\n", m[k])
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, token.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, token.ErrInvalidHeader):
		return "invalid header"
	case errors.Is(err, token.ErrInvalidClaim):
		return "invalid claim"
	case errors.Is(err, token.ErrSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, token.ErrKeysetUnavailable):
		return "keyset unavailable"
	}
	return "error"
}

func readToken(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return "", errors.New("no token given")
	}
	return strings.TrimSpace(sc.Text()), nil
}
