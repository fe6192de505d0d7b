// Package registrar defines the contract of the authoritative availability
// source. Implementations live in subpackages.
package registrar

import "context"

// Availability is one primary-registrar verdict for a domain.
//
// Err is set when the domain could not be resolved; Available is then false
// and carries no meaning.
type Availability struct {
	Domain    string
	Available bool
	// Price in micro-units, when the registrar quoted one.
	Price    *int64
	Currency string
	Err      error
}

// Primary is the authoritative availability source.
//
// Neither method returns an error: every requested domain gets a verdict,
// failures included.
//
//go:generate mockgen -package mockregistrar -source=registrar.go -destination=mock/mockregistrar.go
type Primary interface {
	Name() string
	CheckSingle(ctx context.Context, domain string) Availability
	CheckBulk(ctx context.Context, domains []string) map[string]Availability
}

// Failed builds the verdict for a domain that could not be checked.
func Failed(domain string, err error) Availability {
	return Availability{Domain: domain, Err: err}
}
