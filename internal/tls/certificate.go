package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"gihan9a/semilattice/internal/config"
)

// validity is how long generated certificates last
const validity = 365 * 24 * time.Hour

// EnsureCertificate makes sure the configured certificate and key exist,
// generating a self-signed pair for cfg.Hosts when either is missing
func EnsureCertificate(cfg config.TLSConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if fileExists(cfg.CertFile) && fileExists(cfg.KeyFile) {
		logger.Info("Using existing certificate files", "cert", cfg.CertFile, "key", cfg.KeyFile)
		return nil
	}

	logger.Info("Generating self-signed certificate", "hosts", cfg.Hosts)
	if err := generateSelfSignedCert(cfg.CertFile, cfg.KeyFile, cfg.Hosts); err != nil {
		return err
	}
	logger.Info("Generated self-signed certificate", "cert", cfg.CertFile, "key", cfg.KeyFile)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// splitHosts sorts hosts into IP addresses and DNS names
func splitHosts(hosts []string) (ips []net.IP, names []string) {
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			ips = append(ips, ip)
		} else if h != "" {
			names = append(names, h)
		}
	}
	return ips, names
}

func generateSelfSignedCert(certFile, keyFile string, hosts []string) error {
	for _, dir := range []string{filepath.Dir(certFile), filepath.Dir(keyFile)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create certificate directory: %w", err)
		}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	ips, names := splitHosts(hosts)
	commonName := "localhost"
	if len(names) > 0 {
		commonName = names[0]
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Semilattice Metadata Server"},
			CommonName:   commonName,
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           ips,
		DNSNames:              names,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	privBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	if err := writePEM(certFile, "CERTIFICATE", derBytes, 0644); err != nil {
		return err
	}
	return writePEM(keyFile, "EC PRIVATE KEY", privBytes, 0600)
}

func writePEM(path, blockType string, data []byte, perm os.FileMode) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", path, err)
	}
	if err := pem.Encode(out, &pem.Block{Type: blockType, Bytes: data}); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return out.Close()
}
