package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateInvoiceNumber generates an invoice number in the format
// INV-YYYYMM-XXXXXX where the suffix is random. Uniqueness is enforced by the
// database index; collisions at this entropy are not worth retry plumbing.
func GenerateInvoiceNumber(now time.Time) (string, error) {
	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	suffix := strings.ToUpper(hex.EncodeToString(bytes))
	return fmt.Sprintf("INV-%s-%s", now.Format("200601"), suffix), nil
}
