package spotfeed

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PairID encodes a pair name ("BTC/USD") as its ASCII bytes right-aligned in 32 bytes.
func PairID(name string) (common.Hash, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return common.Hash{}, fmt.Errorf("pair name is empty")
	}
	if len(name) > common.HashLength {
		return common.Hash{}, fmt.Errorf("pair name %q longer than %d bytes", name, common.HashLength)
	}
	return common.BytesToHash([]byte(name)), nil
}
