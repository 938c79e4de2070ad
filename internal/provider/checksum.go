package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
)

// Checksum produces the content checksum used for ingestion dedup. Line
// items are sorted by the canonical key accountId|productId|meterId|
// usageStart so the same data always hashes identically regardless of
// fetch order, then each item contributes its identifying and financial
// fields.
func Checksum(items []*costdata.LineItem) string {
	sorted := make([]*costdata.LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return canonicalKey(sorted[i]) < canonicalKey(sorted[j])
	})

	h := sha256.New()
	for _, li := range sorted {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s\n",
			li.AccountID,
			li.SubaccountID,
			li.ProductID,
			li.MeterID,
			li.UsageAmount.String(),
			li.Cost.String(),
			li.UsageStart.UTC().Format(time.RFC3339Nano),
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalKey(li *costdata.LineItem) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		li.AccountID, li.ProductID, li.MeterID,
		li.UsageStart.UTC().Format(time.RFC3339Nano))
}
