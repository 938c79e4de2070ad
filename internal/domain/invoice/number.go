package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cloudbill/cloudbill/internal/types"
)

// Invoice numbers follow PREFIX-YYYYMM-SLUG-NNNN, e.g. CB-202507-ACME-0003.
// The format is a bit-exact wire contract consumed by downstream exporters.

const slugLen = 4

// CustomerSlug derives the 4-character uppercase alphanumeric customer
// segment from the customer's external id, padding with X when the id has
// fewer than four usable characters.
func CustomerSlug(externalID string) string {
	var b strings.Builder
	for _, r := range externalID {
		if b.Len() == slugLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	for b.Len() < slugLen {
		b.WriteByte('X')
	}
	return b.String()
}

// FormatNumber builds the invoice number for a sequence position.
func FormatNumber(prefix string, month types.BillingMonth, externalID string, seq int) string {
	return fmt.Sprintf("%s-%s-%s-%04d", prefix, month.YYYYMM(), CustomerSlug(externalID), seq)
}

// FallbackNumber appends a base-36 timestamp suffix when sequential
// allocation keeps colliding; uniqueness then rests on the clock.
func FallbackNumber(prefix string, month types.BillingMonth, externalID string, now time.Time) string {
	suffix := strings.ToUpper(strconv.FormatInt(now.UTC().UnixNano(), 36))
	return fmt.Sprintf("%s-%s-%s-%s", prefix, month.YYYYMM(), CustomerSlug(externalID), suffix)
}
