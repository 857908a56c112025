package services

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"sort"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

// Reconciler points the A records of a set of subdomains at one address.
//
// Subdomains are handled one at a time and the first failure stops the run.
// Two reconciliations of the same subdomain must not run at once.
type Reconciler struct {
	provider ports.DNSProvider
}

func NewReconciler(provider ports.DNSProvider) *Reconciler {
	return &Reconciler{provider: provider}
}

// Reconcile makes every subdomain of dnsDomain resolve to ipaddr, writing a
// line to trace for every step taken.
func (r *Reconciler) Reconcile(ctx context.Context, dnsDomain, ipaddr string, subdomains []string, trace io.Writer) error {
	if trace == nil {
		trace = io.Discard
	}
	addr, err := netip.ParseAddr(ipaddr)
	if err != nil || !addr.Is4() {
		err = fmt.Errorf("%w: `%s` is not an IPv4 address", domain.ErrInvalidArgument, ipaddr)
		fmt.Fprintf(trace, "Failed: %v\n", err)
		return err
	}

	sorted := append([]string(nil), subdomains...)
	sort.Strings(sorted)
	names := make([]string, len(sorted))
	for i, subdomain := range sorted {
		if names[i], err = domain.LocalName(dnsDomain, subdomain); err != nil {
			fmt.Fprintf(trace, "Failed: %v\n", err)
			return err
		}
	}

	if err := r.provider.Ping(ctx); err != nil {
		fmt.Fprintf(trace, "Failed to authenticate: %v\n", err)
		return &domain.ReconcileError{Step: domain.StepAuth, Err: fmt.Errorf("%w: %w", domain.ErrAuthFailed, err)}
	}

	for i, subdomain := range sorted {
		if err := r.replace(ctx, dnsDomain, addr.String(), subdomain, names[i], trace); err != nil {
			fmt.Fprintf(trace, "Failed: %v\n", err)
			return err
		}
	}
	return nil
}

// replace runs lookup, then delete and verify when a stale record exists,
// then create for a single subdomain.
func (r *Reconciler) replace(ctx context.Context, dnsDomain, ipaddr, subdomain, name string, trace io.Writer) error {
	fail := func(step domain.ReconcileStep, err error) error {
		return &domain.ReconcileError{Subdomain: subdomain, Step: step, Err: err}
	}
	chain := fmt.Sprintf("%s -> %s -> %s", dnsDomain, name, ipaddr)

	records, err := r.provider.Records(ctx, dnsDomain, domain.RecordTypeA, name)
	if err != nil {
		return fail(domain.StepLookup, err)
	}

	switch len(records) {
	case 0:
		fmt.Fprintln(trace, "No record found for "+chain)
	case 1:
		fmt.Fprintln(trace, "Found record "+chain)
		if records[0].Content == ipaddr {
			fmt.Fprintln(trace, "Record already correct for "+chain)
			return nil
		}
		fmt.Fprintf(trace, "Deleting record `%s` pointing to `%s`\n", records[0].ID, records[0].Content)
		if err := r.provider.DeleteRecord(ctx, dnsDomain, records[0].ID); err != nil {
			return fail(domain.StepDelete, err)
		}

		fmt.Fprintln(trace, "Verifying that records cleared for "+chain)
		records, err = r.provider.Records(ctx, dnsDomain, domain.RecordTypeA, name)
		if err != nil {
			return fail(domain.StepVerify, err)
		}
		if len(records) != 0 {
			return fail(domain.StepVerify, fmt.Errorf("%w: %d records remain", domain.ErrDeleteNotConfirmed, len(records)))
		}
	default:
		return fail(domain.StepLookup, fmt.Errorf("%w: found %d records", domain.ErrAmbiguousState, len(records)))
	}

	fmt.Fprintln(trace, "Creating records for "+chain)
	err = r.provider.CreateRecord(ctx, dnsDomain, domain.DNSRecord{
		Name:    name,
		Type:    domain.RecordTypeA,
		Content: ipaddr,
	})
	if err != nil {
		return fail(domain.StepCreate, err)
	}
	fmt.Fprintln(trace, "Record created!")
	return nil
}
