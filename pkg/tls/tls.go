// Package tls loads TLS 1.3 configurations for the trafficd HTTP server and
// for outbound weather API clients. Server configurations require and verify
// client certificates (mTLS); AES-GCM and ChaCha20-Poly1305 suites only.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config holds TLS certificate file paths.
type Config struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// Validate checks that, when TLS is enabled, all certificate files are
// specified and readable. Disabled configs always validate.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.CertFile == "" || c.KeyFile == "" || c.CAFile == "" {
		return errors.New("tls enabled but cert/key/ca files not specified")
	}

	for _, path := range []string{c.CertFile, c.KeyFile, c.CAFile} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %q: %w", path, err)
		}
	}

	return nil
}

var secureCipherSuites = []uint16{
	tls.TLS_AES_128_GCM_SHA256,
	tls.TLS_AES_256_GCM_SHA384,
	tls.TLS_CHACHA20_POLY1305_SHA256,
}

// NewServerTLSConfig builds a server-side mTLS configuration: TLS 1.3
// minimum, client certificates required and verified against caFile.
func NewServerTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	if err := validateCertFiles(certFile, keyFile, caFile); err != nil {
		return nil, err
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}

	return &tls.Config{
		ClientCAs:                caCertPool,
		ClientAuth:               tls.RequireAndVerifyClientCert,
		MinVersion:               tls.VersionTLS13,
		CipherSuites:             secureCipherSuites,
		PreferServerCipherSuites: true,
	}, nil
}

// NewClientTLSConfig builds a client-side mTLS configuration: presents the
// client certificate and verifies the server against caFile, TLS 1.3 only.
func NewClientTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	if err := validateCertFiles(certFile, keyFile, caFile); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caCertPool,
		MinVersion:   tls.VersionTLS13,
		CipherSuites: secureCipherSuites,
	}, nil
}

func validateCertFiles(certFile, keyFile, caFile string) error {
	if certFile == "" {
		return errors.New("certificate file path cannot be empty")
	}
	if keyFile == "" {
		return errors.New("key file path cannot be empty")
	}
	if caFile == "" {
		return errors.New("CA certificate file path cannot be empty")
	}

	for _, path := range []string{certFile, keyFile, caFile} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("certificate file %q: %w", path, err)
		}
	}

	return nil
}
