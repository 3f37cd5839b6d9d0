package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPService generates and validates RFC 6238 time-based one-time passwords.
type TOTPService interface {
	// GenerateSecret returns the base32 secret and the otpauth:// provisioning
	// URI for QR display.
	GenerateSecret(accountName string) (secretBase32 string, otpAuthURL string, err error)
	ValidateCode(secretBase32, code string) (bool, error)
}

type totpService struct {
	issuer string
}

func NewTOTPService(issuer string) TOTPService {
	if strings.TrimSpace(issuer) == "" {
		issuer = "OrbitCart"
	}
	return &totpService{issuer: issuer}
}

func (s *totpService) GenerateSecret(accountName string) (string, string, error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", fmt.Errorf("account name cannot be empty")
	}
	if strings.Contains(accountName, ":") || strings.Contains(s.issuer, ":") {
		return "", "", fmt.Errorf("account name and issuer must not contain a colon")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// ValidateCode checks a 6-digit code with a skew of one 30-second step on
// either side, per RFC 6238 guidance.
func (s *totpService) ValidateCode(secretBase32, code string) (bool, error) {
	if strings.TrimSpace(secretBase32) == "" {
		return false, fmt.Errorf("secret cannot be empty")
	}
	if strings.TrimSpace(code) == "" {
		return false, nil
	}

	valid, err := totp.ValidateCustom(code, secretBase32, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("totp validation error: %w", err)
	}
	return valid, nil
}

var _ TOTPService = (*totpService)(nil)
