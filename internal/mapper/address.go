// Address mapping: desired CRM address set for a directory contact,
// including the optional street reversal.
package mapper

import (
	"sort"
	"strings"

	"github.com/meshline/contactsync/pkg/types"
)

// defaultAddressLabel is used when the directory entry has no type.
const defaultAddressLabel = "Other"

// Addresses returns the address set a CRM contact should carry for the
// given directory contact. Empty entries are dropped and ids are cleared,
// those belong to the remote side.
func Addresses(source types.Contact, streetReversal bool) []types.Address {
	var out []types.Address
	for _, a := range source.Addresses {
		if a.Empty() {
			continue
		}
		a.ID = ""
		if a.Label == "" {
			a.Label = defaultAddressLabel
		}
		if streetReversal {
			a.Street = ReverseStreet(a.Street)
		}
		out = append(out, a)
	}
	return out
}

// ReverseStreet moves a leading house number to the end of the street
// line, turning "13 Main St" into "Main St 13". Streets that do not start
// with a number pass through unchanged.
func ReverseStreet(street string) string {
	fields := strings.Fields(street)
	if len(fields) < 2 || !startsWithDigit(fields[0]) {
		return street
	}
	number := fields[0]
	return strings.Join(append(fields[1:], number), " ")
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

// AddressesEqual reports whether two address sets describe the same
// places, ignoring ids and ordering.
func AddressesEqual(a, b []types.Address) bool {
	if len(a) != len(b) {
		return false
	}
	ka := addressKeys(a)
	kb := addressKeys(b)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func addressKeys(addrs []types.Address) []string {
	keys := make([]string, 0, len(addrs))
	for _, a := range addrs {
		keys = append(keys, strings.Join([]string{
			a.Label, a.Street, a.City, a.Province, a.PostalCode, a.CountryCode,
		}, "\x00"))
	}
	sort.Strings(keys)
	return keys
}
