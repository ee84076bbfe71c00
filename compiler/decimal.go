package compiler

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var maxUint64Big = new(big.Int).SetUint64(^uint64(0))

// decimalToUint64 narrows an exact-decimal integer amount to uint64,
// rejecting fractional values, negatives, and overflow, mirroring the
// narrow-at-the-edge discipline used throughout the allocator.
func decimalToUint64(d decimal.Decimal) (uint64, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("value %s is not an integer", d.String())
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("value %s is negative", d.String())
	}
	bi := d.BigInt()
	if bi.Cmp(maxUint64Big) > 0 {
		return 0, fmt.Errorf("value %s exceeds uint64 range", d.String())
	}
	return bi.Uint64(), nil
}
