package ircd

import (
	"crypto/tls"
	"fmt"
)

// LoadTLSConfig builds a server tls.Config from a single PEM file containing
// both the certificate chain and the private key, matching `--ssl-pem-file`
// in the original server's CLI surface.
func LoadTLSConfig(pemFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(pemFile, pemFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS cert from %s: %w", pemFile, err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
