package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// GenerateOpaqueToken returns a URL-safe random token with byteLen bytes of
// entropy.
func GenerateOpaqueToken(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the one-way digest stored in place of raw refresh, device and
// verification tokens. SHA-256 suffices here: the inputs are high-entropy
// random strings, not passwords.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DeviceFingerprint derives a stable per-browser fingerprint from the
// user agent and the client IP's network prefix. Using the prefix rather
// than the full address tolerates DHCP churn within a subnet.
func DeviceFingerprint(userAgent, ipAddress string) string {
	prefix := ipPrefix(ipAddress)
	sum := sha256.Sum256([]byte(userAgent + "|" + prefix))
	return hex.EncodeToString(sum[:])
}

// ipPrefix reduces an address to its /24 (IPv4) or /48 (IPv6) prefix.
func ipPrefix(ipAddress string) string {
	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return ipAddress
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return ip.Mask(net.CIDRMask(48, 128)).String()
}

// backupCodeAlphabet omits easily confused characters (0/O, 1/I/L).
const backupCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateBackupCode returns an 8-character recovery code in its
// human-friendly hyphenated display form, e.g. "7GKQ-M2XW".
func GenerateBackupCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	code := make([]byte, 8)
	for i, v := range b {
		code[i] = backupCodeAlphabet[int(v)%len(backupCodeAlphabet)]
	}
	return string(code[:4]) + "-" + string(code[4:]), nil
}

// CandidateEncodings normalizes a user-typed backup code into the encodings
// tried against stored hashes, in match order: the uppercased trimmed input
// first, then the dehyphenated form. Users paste codes with or without the
// display hyphen; keeping the ambiguity in one pure function keeps the
// matching loop testable.
func CandidateEncodings(input string) []string {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return nil
	}
	candidates := []string{normalized}
	if stripped := strings.ReplaceAll(normalized, "-", ""); stripped != normalized {
		candidates = append(candidates, stripped)
	} else if len(normalized) == 8 {
		// Raw input; also try the stored hyphenated display form.
		candidates = append(candidates, normalized[:4]+"-"+normalized[4:])
	}
	return candidates
}
