// Package tls obtains and renews certificates for the API with CertMagic,
// solving ACME DNS-01 challenges through Azure DNS.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/azure"
)

// Config holds TLS configuration.
type Config struct {
	Domains  []string
	Email    string
	CacheDir string
	Staging  bool // Let's Encrypt staging CA
	DNS      DNSConfig
}

// DNSConfig holds the Azure DNS zone used for DNS-01 challenges.
type DNSConfig struct {
	SubscriptionID    string
	ResourceGroupName string
	ClientID          string // user assigned managed identity; empty uses the system identity
}

// Manager owns the certificates of the configured domains.
type Manager struct {
	domains   []string
	logger    *slog.Logger
	tlsConfig *tls.Config
}

// NewManager configures CertMagic for cfg.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if len(cfg.Domains) == 0 {
		return nil, fmt.Errorf("TLS enabled but no domains specified")
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("TLS enabled but no email specified")
	}

	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = cfg.Email
	if cfg.Staging {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}
	if cfg.CacheDir != "" {
		certmagic.Default.Storage = &certmagic.FileStorage{Path: cfg.CacheDir}
	}

	certmagic.DefaultACME.DNS01Solver = &certmagic.DNS01Solver{
		DNSManager: certmagic.DNSManager{
			DNSProvider: &azure.Provider{
				SubscriptionId:    cfg.DNS.SubscriptionID,
				ResourceGroupName: cfg.DNS.ResourceGroupName,
				ClientId:          cfg.DNS.ClientID,
			},
		},
	}

	tlsConfig, err := certmagic.TLS(cfg.Domains)
	if err != nil {
		return nil, fmt.Errorf("configuring TLS: %w", err)
	}

	return &Manager{domains: cfg.Domains, logger: logger, tlsConfig: tlsConfig}, nil
}

// TLSConfig returns the configuration to serve with.
func (m *Manager) TLSConfig() *tls.Config {
	return m.tlsConfig
}

// ManageCertificates obtains missing certificates before serving.
func (m *Manager) ManageCertificates(ctx context.Context) error {
	m.logger.Info("obtaining certificates", "domains", m.domains)
	if err := certmagic.ManageSync(ctx, m.domains); err != nil {
		return fmt.Errorf("managing certificates: %w", err)
	}
	m.logger.Info("certificates obtained")
	return nil
}
