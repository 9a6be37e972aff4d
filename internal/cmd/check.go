package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/core/verifier"
	"github.com/jmail/domaincheck/internal/observability"
	"github.com/jmail/domaincheck/internal/output"
)

// maxConcurrentDomains bounds how many domains one check invocation verifies at once.
const maxConcurrentDomains = 4

var checkCmd = &cobra.Command{
	Use:   "check <domain> [domain...]",
	Short: "Check email authentication records for one or more domains",
	Long: `Resolve the A, SPF, DMARC, MX and DKIM records of each domain and print a report.

Domains may be given as URLs; the scheme, a leading "www." and any path are removed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("output", "o", "table", "Output format: table, json, yaml, markdown")
	checkCmd.Flags().StringSlice("nameserver", nil, "Nameserver to query (host or host:port)")
	checkCmd.Flags().Duration("timeout", 0, "Per-query DNS timeout (default 5s)")
	checkCmd.Flags().StringSlice("selector", nil, "DKIM selectors to probe instead of the built-in list")
	checkCmd.Flags().Bool("strict", false, "Exit non-zero when any check fails")

	_ = viper.BindPFlag("dns.nameservers", checkCmd.Flags().Lookup("nameserver"))
	_ = viper.BindPFlag("dns.timeout", checkCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("dns.dkim_selectors", checkCmd.Flags().Lookup("selector"))
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outputFlag, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}

	domains, err := domainArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	v := newVerifier(cfg, observability.CLILogger)
	reports, err := checkDomains(ctx, v, domains)
	if err != nil {
		return err
	}

	rendered, err := output.FormatReportList(format, reports)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
		return err
	}

	if strict {
		failed := 0
		for _, report := range reports {
			if len(report.Errors) > 0 {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d domain(s) have failing checks", failed, len(reports))
		}
	}
	return nil
}

// domainArgs trims arguments and drops duplicates after normalization.
func domainArgs(args []string) ([]string, error) {
	seen := make(map[string]bool, len(args))
	domains := make([]string, 0, len(args))
	for _, arg := range args {
		raw := strings.TrimSpace(arg)
		if raw == "" {
			continue
		}
		key := strings.ToLower(verifier.Normalize(raw))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		domains = append(domains, raw)
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("domain is required")
	}
	return domains, nil
}

// checkDomains verifies each domain, keeping the input order in the result.
func checkDomains(ctx context.Context, v *verifier.Verifier, domains []string) ([]*core.DomainCheckReport, error) {
	reports := make([]*core.DomainCheckReport, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDomains)
	for i, domain := range domains {
		g.Go(func() error {
			report, err := v.Check(gctx, domain)
			if err != nil {
				return fmt.Errorf("check %s: %w", domain, err)
			}
			reports[i] = report
			if logger := observability.CLILogger; logger != nil {
				logger.Debug("Domain checked",
					zap.String("domain", report.Domain),
					zap.Int("failed_checks", len(report.Errors)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
