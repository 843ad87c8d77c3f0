// Copyright (c) 2026 Vidshare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// # TOTP Parameters (RFC 6238)

const (
	// TOTPSecretBytes is the secret size: 160 bits, 32 base32 characters.
	TOTPSecretBytes = 20

	// TOTPPeriod is the time step in seconds.
	TOTPPeriod = 30

	// TOTPDigits is the length of generated codes.
	TOTPDigits = 6

	// TOTPWindow is the accepted skew in steps on each side (±60s).
	TOTPWindow = 2

	// BackupCodeCount is the size of a backup code batch.
	BackupCodeCount = 10

	// backupCodeBytes is the entropy per backup code (8 hex characters).
	backupCodeBytes = 4
)

var (
	// ErrInvalidSecret is returned when a stored secret is not valid base32.
	ErrInvalidSecret = errors.New("sec: invalid totp secret")

	base32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// TOTP generates and verifies time-based one-time passwords.
//
// It holds no per-user state; secrets are passed in by the caller.
type TOTP struct {
	issuer    string
	qrBaseURL string
	window    int
}

// NewTOTP creates a TOTP engine labelled with issuer in authenticator apps.
// qrBaseURL is prefixed to the escaped otpauth URI to build an image link.
func NewTOTP(issuer, qrBaseURL string) *TOTP {
	return &TOTP{issuer: issuer, qrBaseURL: qrBaseURL, window: TOTPWindow}
}

// GenerateSecret returns a fresh base32 secret (RFC 4648 alphabet, no padding).
func (engine *TOTP) GenerateSecret() (string, error) {
	raw := make([]byte, TOTPSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: failed to generate totp secret: %w", err)
	}
	return base32NoPadding.EncodeToString(raw), nil
}

// CurrentCode computes the code for the time step containing timestamp.
func (engine *TOTP) CurrentCode(secret string, timestamp time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, uint64(timestamp.Unix()/TOTPPeriod)), nil
}

// VerifyCode reports whether code matches any step in [-window, +window]
// around timestamp. Every candidate is compared in constant time.
func (engine *TOTP) VerifyCode(secret, code string, timestamp time.Time) bool {
	normalized := strings.TrimSpace(code)
	if len(normalized) != TOTPDigits || !isDigits(normalized) {
		return false
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return false
	}

	base := timestamp.Unix() / TOTPPeriod
	matched := 0
	for offset := -engine.window; offset <= engine.window; offset++ {
		counter := base + int64(offset)
		if counter < 0 {
			continue
		}
		candidate := hotp(key, uint64(counter))
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(normalized))
	}

	return matched == 1
}

// ProvisioningURI returns the otpauth:// URI encoded in enrollment QR codes.
func (engine *TOTP) ProvisioningURI(secret, account string) string {
	label := url.PathEscape(engine.issuer + ":" + account)

	values := url.Values{}
	values.Set("secret", secret)
	values.Set("issuer", engine.issuer)
	values.Set("algorithm", "SHA1")
	values.Set("digits", strconv.Itoa(TOTPDigits))
	values.Set("period", strconv.Itoa(TOTPPeriod))

	return "otpauth://totp/" + label + "?" + values.Encode()
}

// QRCodeURL returns an image URL rendering the provisioning URI.
func (engine *TOTP) QRCodeURL(provisioningURI string) string {
	return engine.qrBaseURL + url.QueryEscape(provisioningURI)
}

// # Backup Codes

// GenerateBackupCodes returns count one-time recovery codes of 8 uppercase hex characters.
func (engine *TOTP) GenerateBackupCodes(count int) ([]string, error) {
	codes := make([]string, 0, count)
	buffer := make([]byte, backupCodeBytes)

	for range count {
		if _, err := rand.Read(buffer); err != nil {
			return nil, fmt.Errorf("auth: failed to generate backup code: %w", err)
		}
		codes = append(codes, strings.ToUpper(hex.EncodeToString(buffer)))
	}

	return codes, nil
}

// NormalizeBackupCode canonicalizes user input so comparison is case-insensitive.
func NormalizeBackupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// # RFC 4226 Helpers

// hotp computes an HMAC-SHA1 one-time password with dynamic truncation.
func hotp(key []byte, counter uint64) string {
	var message [8]byte
	binary.BigEndian.PutUint64(message[:], counter)

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(message[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	binaryCode := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	return fmt.Sprintf("%0*d", TOTPDigits, binaryCode%1_000_000)
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.TrimRight(strings.TrimSpace(secret), "="))
	key, err := base32NoPadding.DecodeString(normalized)
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

func isDigits(value string) bool {
	for _, character := range value {
		if character < '0' || character > '9' {
			return false
		}
	}
	return value != ""
}
