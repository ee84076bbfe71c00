package store

import "math/big"

var maxUint64Big = new(big.Int).SetUint64(^uint64(0))

// parseU64Decimal parses a base-10 integer string and validates it
// fits in a uint64, per the store's width-validation policy for
// on-chain-bound fixed-width fields.
func parseU64Decimal(entity, field, s string) (uint64, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, storeErr(ErrMalformedValue, entity, field+" is not a base-10 integer: "+s)
	}
	if n.Sign() < 0 {
		return 0, storeErr(ErrWidthOverflow, entity, field+" is negative: "+s)
	}
	if n.Cmp(maxUint64Big) > 0 {
		return 0, storeErr(ErrWidthOverflow, entity, field+" exceeds uint64 range: "+s)
	}
	return n.Uint64(), nil
}

// validateU8 checks that v fits the single-byte on-chain vault index.
func validateU8(entity, field string, v int64) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, storeErr(ErrWidthOverflow, entity, field+" does not fit a u8")
	}
	return uint8(v), nil
}
