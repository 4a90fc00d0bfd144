package gemini

import (
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"
)

var oidDomainComponent = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}
var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// formatCertificate renders cert as the "key=value\n" document a
// takes_certificate dynamic program receives over cert_file_path.
// Fingerprint is the uppercase hex SHA-256 of the DER encoding with no
// separators; this is distinct from any colon-separated fingerprint a
// client-facing trust-on-first-use store might compute from the same
// certificate, since the two serve unrelated purposes.
func formatCertificate(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	fingerprint := strings.ToUpper(fmt.Sprintf("%x", sum))

	subject := cert.Subject.CommonName
	email := strings.Join(append(append([]string{}, cert.EmailAddresses...), namesForOID(cert.Subject, oidEmailAddress)...), ",")
	domain := strings.Join(namesForOID(cert.Subject, oidDomainComponent), ".")
	country := strings.Join(cert.Subject.Country, ",")
	province := strings.Join(cert.Subject.Province, ",")
	locality := strings.Join(cert.Subject.Locality, ",")
	organization := strings.Join(cert.Subject.Organization, ",")
	orgUnit := strings.Join(cert.Subject.OrganizationalUnit, ",")

	const layout = "Jan  2 15:04:05 2006"
	validAfter := cert.NotBefore.UTC().Format(layout) + " GMT"
	validUntil := cert.NotAfter.UTC().Format(layout) + " GMT"

	fields := []struct{ key, value string }{
		{"fingerprint", fingerprint},
		{"subject", orNull(subject)},
		{"email", orNull(email)},
		{"domain", orNull(domain)},
		{"country", orNull(country)},
		{"province", orNull(province)},
		{"locality", orNull(locality)},
		{"organization", orNull(organization)},
		{"organization_unit", orNull(orgUnit)},
		{"valid_after", validAfter},
		{"valid_until", validUntil},
	}

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(f.value)
	}
	return b.String()
}

func orNull(s string) string {
	if strings.TrimSpace(s) == "" {
		return "__null"
	}
	return s
}

// namesForOID collects every AttributeTypeAndValue in name matching oid,
// since pkix.Name only exposes a fixed set of well-known attributes
// directly (domainComponent and PKCS#9 emailAddress are not among them).
func namesForOID(name pkix.Name, oid asn1.ObjectIdentifier) []string {
	var out []string
	for _, atv := range name.Names {
		if atv.Type.Equal(oid) {
			if s, ok := atv.Value.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
