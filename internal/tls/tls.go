// Package tls supplies the API server certificates, either from PEM files
// or from Let's Encrypt through autocert.
package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/nawinsharma/kandid/internal/config"
)

// Provider hands out the server TLS configuration
type Provider struct {
	config   *tls.Config
	acme     *autocert.Manager
	domains  []string
	httpAddr string
}

// New builds a provider from cfg. cfg.Enabled is not checked.
func New(cfg *config.TLSConfig) (*Provider, error) {
	if cfg.ACME.Enabled {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      cfg.ACME.Email,
			HostPolicy: autocert.HostWhitelist(cfg.ACME.Domains...),
			Cache:      autocert.DirCache(cfg.ACME.CacheDir),
		}
		return &Provider{
			config: &tls.Config{
				GetCertificate: m.GetCertificate,
				MinVersion:     tls.VersionTLS12,
			},
			acme:     m,
			domains:  cfg.ACME.Domains,
			httpAddr: cfg.ACME.HTTPAddr,
		}, nil
	}

	tlsConfig, err := LoadCertificate(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	return &Provider{config: tlsConfig}, nil
}

// TLSConfig returns TLS configuration for use with servers
func (p *Provider) TLSConfig() *tls.Config {
	return p.config
}

// ACME reports whether certificates come from Let's Encrypt
func (p *Provider) ACME() bool {
	return p.acme != nil
}

// ChallengeServer returns the HTTP-01 challenge server, or nil when
// certificates come from files. Other plain HTTP requests are redirected
// to HTTPS.
func (p *Provider) ChallengeServer() *http.Server {
	if p.acme == nil {
		return nil
	}
	return &http.Server{
		Addr:              p.httpAddr,
		Handler:           p.acme.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// CertificateInfo contains information about a certificate
type CertificateInfo struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
	DaysLeft  int
	DNSNames  []string
}

// CachedCertificates reads ACME certificates from the cache without
// contacting Let's Encrypt. Domains without a cached certificate are skipped.
func (p *Provider) CachedCertificates(ctx context.Context) []CertificateInfo {
	if p.acme == nil {
		return nil
	}
	var out []CertificateInfo
	for _, domain := range p.domains {
		data, err := p.acme.Cache.Get(ctx, domain)
		if err != nil {
			continue
		}
		if info, err := certificateInfo(data); err == nil {
			out = append(out, *info)
		}
	}
	return out
}

// LoadCertificate loads TLS certificate from PEM files
func LoadCertificate(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// GetCertificateInfo reads certificate info from a PEM file
func GetCertificateInfo(certFile string) (*CertificateInfo, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}
	return certificateInfo(data)
}

// certificateInfo describes the first CERTIFICATE block of a PEM bundle.
// autocert caches the key ahead of the chain, so other blocks are skipped.
func certificateInfo(data []byte) (*CertificateInfo, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("failed to decode PEM block")
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		return &CertificateInfo{
			Subject:   cert.Subject.CommonName,
			Issuer:    cert.Issuer.CommonName,
			NotBefore: cert.NotBefore,
			NotAfter:  cert.NotAfter,
			DaysLeft:  int(time.Until(cert.NotAfter).Hours() / 24),
			DNSNames:  cert.DNSNames,
		}, nil
	}
}
