package ports

import (
	"net"

	"github.com/safeguard/safety-assistant/internal/domain"
)

// NetworkEnricher resolves network ownership details for an IP address
type NetworkEnricher interface {
	Lookup(ip net.IP) (*domain.NetworkInfo, error)
}
