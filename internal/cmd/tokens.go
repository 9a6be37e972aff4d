package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/core/store"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Inspect stored OAuth tokens",
	Long:  "Inspect OAuth token records saved by the /api/auth/callback endpoint. Secrets are masked unless --reveal is given.",
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored token records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withTokenStore(cmd, func(ctx context.Context, tokens store.TokenStore) error {
			records, err := tokens.ListTokens(ctx)
			if err != nil {
				return err
			}
			return writeTokens(cmd, records)
		})
	},
}

var tokensShowCmd = &cobra.Command{
	Use:   "show <email>",
	Short: "Show the token record for one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTokenStore(cmd, func(ctx context.Context, tokens store.TokenStore) error {
			record, err := tokens.GetToken(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no token stored for %s", args[0])
			}
			if err != nil {
				return err
			}
			return writeTokens(cmd, []core.TokenRecord{record})
		})
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensListCmd, tokensShowCmd)

	tokensCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json, yaml")
	tokensCmd.PersistentFlags().Bool("reveal", false, "Print access and refresh tokens unmasked")
}

func withTokenStore(cmd *cobra.Command, fn func(context.Context, store.TokenStore) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tokens, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(tokens)
	return fn(ctx, tokens)
}

func writeTokens(cmd *cobra.Command, records []core.TokenRecord) error {
	reveal, err := cmd.Flags().GetBool("reveal")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if !reveal {
		for i := range records {
			records[i] = records[i].Redacted()
		}
	}
	return renderTokens(cmd.OutOrStdout(), format, records)
}

func renderTokens(w io.Writer, format string, records []core.TokenRecord) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml", "yml":
		return yaml.NewEncoder(w).Encode(records)
	case "", "table":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Email", "Name", "Access token", "Refresh token", "Expires", "Updated"})
		for _, rec := range records {
			t.AppendRow(table.Row{
				rec.UserEmail,
				rec.UserName,
				rec.AccessToken,
				rec.RefreshToken,
				formatExpiry(rec.ExpiryDate),
				rec.UpdatedAt,
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("%d record(s)", len(records))})
		t.Render()
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatExpiry(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
