// Package pkcs12id loads the server's TLS identity from a PKCS#12
// profile, the bundle format used by server_settings.json's
// tls_profile/profile_password pair.
package pkcs12id

import (
	"crypto/tls"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// Load decodes a .pfx/.p12 file into the tls.Certificate the server
// presents during the handshake.
func Load(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read pkcs12 profile: %w", err)
	}

	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode pkcs12 profile: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}
