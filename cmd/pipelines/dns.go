// cmd/pipelines/dns.go
package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/tracelog"
)

func newDNSCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dns",
		Short: "Maintain the DNS records of the platform domain",
	}
	cmd.AddCommand(
		newReconcileCmd(a),
		newRecordsCmd(a),
		newDNSPingCmd(a),
	)
	return cmd
}

func newReconcileCmd(a *app) *cobra.Command {
	var domainFlag string
	cmd := &cobra.Command{
		Use:   "reconcile IPADDR",
		Short: "Point the root, wildcard and www records at an address",
		Long: `Point the A records of the domain, its wildcard and www at IPADDR.

Stale records are deleted, the deletion is verified and the record is created
again. Records already pointing at IPADDR are left alone. Every step is
written to a trace file in the logs directory.

Examples:
  pipelines dns reconcile 203.0.113.5
  pipelines dns reconcile 203.0.113.5 --domain acederberg.io`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dnsDomain, err := a.platform.Domain(domainFlag)
			if err != nil {
				return err
			}
			reconciler, err := a.platform.Reconciler()
			if err != nil {
				return err
			}

			trace, err := tracelog.Open(a.platform.Config.LogsDir, "porkbun", "dns reconcile", time.Now())
			if err != nil {
				return err
			}
			defer trace.Close()
			a.log.Debug("Writing trace to `%s`.", trace.Name())

			w := io.MultiWriter(trace, a.log.Writer())
			if err := reconciler.Reconcile(cmd.Context(), dnsDomain, args[0], domain.Subdomains(dnsDomain), w); err != nil {
				return err
			}
			a.log.Success("Records of `%s` point to `%s`.", dnsDomain, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&domainFlag, "domain", "", "domain to reconcile, defaults to the configured domain")
	return cmd
}

func newRecordsCmd(a *app) *cobra.Command {
	var domainFlag string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the records of the domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dnsDomain, err := a.platform.Domain(domainFlag)
			if err != nil {
				return err
			}
			client, err := a.platform.DNS()
			if err != nil {
				return err
			}
			records, err := client.AllRecords(cmd.Context(), dnsDomain)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.log.Writer(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tCONTENT\tTTL")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Type, r.Content, r.TTL)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&domainFlag, "domain", "", "domain to list, defaults to the configured domain")
	return cmd
}

func newDNSPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify the DNS provider credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.platform.DNS()
			if err != nil {
				return err
			}
			if err := client.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrAuthFailed, err)
			}
			a.log.Success("Credentials are valid.")
			return nil
		},
	}
}
