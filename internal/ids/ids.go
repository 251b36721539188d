package ids

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/ksuid"
)

// Entity prefixes. Users take their prefix from their role.
const (
	PrefixBuyer                = "USR"
	PrefixDealer               = "DLR"
	PrefixAgent                = "AGT"
	PrefixVehicle              = "VEH"
	PrefixInquiry              = "INQ"
	PrefixTransaction          = "TXN"
	PrefixAllocation           = "ALC"
	PrefixTestDrive            = "TD"
	PrefixViewing              = "VB"
	PrefixAgentSale            = "SAL"
	PrefixQuote                = "QR"
	PrefixAgentApplication     = "APP"
	PrefixFinancingApplication = "FIN"
)

const width = 3

// New returns a random sortable identifier for things that are not ledger
// records: client contexts, communication entries, object keys.
func New() string {
	return ksuid.New().String()
}

// Next returns prefix followed by one more than the highest numeric suffix
// found among existing ids carrying that prefix. Gaps are never reused.
// Ids whose suffix is not a number are ignored.
func Next(prefix string, existing []string) string {
	highest := 0
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(prefix):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return Format(prefix, highest+1)
}

func Format(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}
