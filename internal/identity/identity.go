// Package identity derives display identifiers for stations.
//
// The identifier is "300" followed by the leading six decimal digits of the
// MD5 digest of the station key read as an unsigned integer. It is truncated
// on purpose and collisions between distinct keys are expected; the station
// key stays the merge key. Changing the hash or the width would rewrite every
// identifier already stored.
package identity

import (
	"math/big"

	"github.com/JakeFAU/stationsync/internal/hash/md5"
)

// Prefix is prepended to every derived identifier.
const Prefix = "300"

// Digits is the number of decimal digits kept from the digest.
const Digits = 6

var hasher = md5.New()

// Derive returns the display identifier for stationKey.
func Derive(stationKey string) string {
	n, ok := new(big.Int).SetString(hasher.Hash([]byte(stationKey)), 16)
	if !ok {
		// unreachable: the digest is always valid hex
		return Prefix
	}
	dec := n.String()
	if len(dec) > Digits {
		dec = dec[:Digits]
	}
	return Prefix + dec
}
