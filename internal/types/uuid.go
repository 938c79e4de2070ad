package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short uppercase ID with a prefix,
// capped at 12 characters, e.g. `BATCH3XK1A9Q`. Used for operator-facing
// references like ingestion batch labels.
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")

	availableLen := 12 - len(prefix)
	if availableLen <= 0 {
		return ""
	}

	if len(id) > availableLen {
		id = id[:availableLen]
	}

	return strings.ToUpper(fmt.Sprintf("%s%s", prefix, id))
}

// ID prefixes for domain entities
const (
	UUIDPrefixCustomer        = "cust"
	UUIDPrefixProject         = "proj"
	UUIDPrefixBinding         = "bind"
	UUIDPrefixLineItem        = "li"
	UUIDPrefixIngestionBatch  = "batch"
	UUIDPrefixSkuGroup        = "sku"
	UUIDPrefixSpecialRule     = "srule"
	UUIDPrefixPricingList     = "plist"
	UUIDPrefixPricingRule     = "prule"
	UUIDPrefixCredit          = "cred"
	UUIDPrefixCreditLedger    = "cldg"
	UUIDPrefixInvoice         = "inv"
	UUIDPrefixInvoiceLineItem = "invln"
	UUIDPrefixInvoiceRun      = "run"
	UUIDPrefixConfigSnapshot  = "snap"
	UUIDPrefixAnalytics       = "fact"
)
