// Package geoip enriches IP-literal URL hosts with country and network owner
// details from MaxMind GeoLite databases.
package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

// ErrNoDatabase is returned when the enricher was created without any database
var ErrNoDatabase = errors.New("no geoip database configured")

// Enricher implements ports.NetworkEnricher over optional country and ASN databases
type Enricher struct {
	countryReader *geoip2.Reader
	asnReader     *geoip2.Reader
}

var _ ports.NetworkEnricher = (*Enricher)(nil)

// NewEnricher opens the .mmdb files at the given paths. Either path may be empty
// to skip that database.
func NewEnricher(countryDBPath, asnDBPath string) (*Enricher, error) {
	e := &Enricher{}

	if countryDBPath != "" {
		reader, err := geoip2.Open(countryDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open country database: %w", err)
		}
		e.countryReader = reader
	}

	if asnDBPath != "" {
		reader, err := geoip2.Open(asnDBPath)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to open asn database: %w", err)
		}
		e.asnReader = reader
	}

	return e, nil
}

// Close releases the opened databases
func (e *Enricher) Close() {
	if e.countryReader != nil {
		e.countryReader.Close()
	}
	if e.asnReader != nil {
		e.asnReader.Close()
	}
}

// Lookup returns what the configured databases know about ip
func (e *Enricher) Lookup(ip net.IP) (*domain.NetworkInfo, error) {
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address")
	}
	if e.countryReader == nil && e.asnReader == nil {
		return nil, ErrNoDatabase
	}

	info := &domain.NetworkInfo{IP: ip.String()}

	if e.countryReader != nil {
		record, err := e.countryReader.Country(ip)
		if err != nil {
			return nil, fmt.Errorf("failed to look up country: %w", err)
		}
		info.CountryCode = record.Country.IsoCode
	}

	if e.asnReader != nil {
		record, err := e.asnReader.ASN(ip)
		if err != nil {
			return nil, fmt.Errorf("failed to look up asn: %w", err)
		}
		info.ASN = uint(record.AutonomousSystemNumber)
		info.Organization = record.AutonomousSystemOrganization
	}

	return info, nil
}
