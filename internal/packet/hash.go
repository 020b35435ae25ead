package packet

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DomainContent is the domain prefix for content-addressed payload ids.
// The version suffix enables future algorithm migration.
const DomainContent = "nodeflow/content/v1"

// ContentID computes the content-addressed id for payload bytes:
// SHA256(domain + 0x00 + data). The null separator prevents domain/data
// boundary ambiguity.
func ContentID(data []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainContent))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeText returns the NFC normalization of s. Text content is
// normalized before hashing so visually identical strings produce the same
// content id regardless of their Unicode composition.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// TextContentID computes the content id for text after NFC normalization.
func TextContentID(s string) string {
	return ContentID([]byte(NormalizeText(s)))
}
