package ports

import (
	"context"

	"github.com/acederberg/captura-platform/internal/core/domain"
)

// DNSProvider manages records through a DNS provider's API.
type DNSProvider interface {
	// Ping verifies that the credentials work.
	Ping(ctx context.Context) error
	// Records returns the records of recordType for name within domain. An
	// empty name selects the root record.
	Records(ctx context.Context, domain, recordType, name string) ([]domain.DNSRecord, error)
	DeleteRecord(ctx context.Context, domain, id string) error
	// CreateRecord creates record within domain, record.Name is the local name.
	CreateRecord(ctx context.Context, domain string, record domain.DNSRecord) error
}
