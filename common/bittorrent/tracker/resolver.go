package tracker

import (
	"context"
	"net"

	"github.com/juju/errors"
)

// Resolver is the opaque name-to-IPv4 lookup service used before each UDP
// request. A failed lookup aborts only the request that needed it.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (string, error)
}

type netResolver struct {
	resolver net.Resolver
}

func NewResolver() Resolver {
	return &netResolver{}
}

func (r *netResolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	addrs, err := r.resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", errors.Trace(err)
	}
	if len(addrs) == 0 {
		return "", errors.NotFoundf("ipv4 address for %q", host)
	}
	return addrs[0].String(), nil
}
