package ledger

import (
	"fmt"
	"math"
	"math/bits"
)

// AccountStorageOverhead is charged on top of every account's data length.
const AccountStorageOverhead = 128

// Rent is the ledger's storage-cost schedule.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// DefaultRent matches the host ledger's genesis configuration.
var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2.0,
}

// MinimumBalance is the balance an account of space bytes needs to be exempt
// from periodic rent collection. Sizes the ledger will not allocate, and
// schedules whose price does not fit in a uint64, are rejected with
// ErrInvalidSpace.
func (r Rent) MinimumBalance(space uint64) (uint64, error) {
	if space > MaxPermittedDataLength {
		return 0, fmt.Errorf("%w: %d bytes, max %d", ErrInvalidSpace, space, MaxPermittedDataLength)
	}
	hi, perYear := bits.Mul64(AccountStorageOverhead+space, r.LamportsPerByteYear)
	if hi != 0 {
		return 0, fmt.Errorf("%w: yearly rent for %d bytes overflows", ErrInvalidSpace, space)
	}
	exempt := float64(perYear) * r.ExemptionThreshold
	if exempt >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: exemption balance for %d bytes overflows", ErrInvalidSpace, space)
	}
	return uint64(exempt), nil
}
