package spotfeed

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EventName is the oracle event carrying spot submissions.
const EventName = "SubmittedSpotEntry"

const oracleABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "timestamp", "type": "uint256"},
      {"indexed": false, "internalType": "bytes32", "name": "source", "type": "bytes32"},
      {"indexed": false, "internalType": "bytes32", "name": "publisher", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "price", "type": "uint256"},
      {"indexed": true, "internalType": "bytes32", "name": "pairId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "volume", "type": "uint256"}
    ],
    "name": "SubmittedSpotEntry",
    "type": "event"
  }
]`

var (
	oracleABI     abi.ABI
	oracleABIOnce sync.Once
	oracleABIErr  error
)

// OracleABI returns the parsed oracle event ABI.
func OracleABI() (abi.ABI, error) {
	oracleABIOnce.Do(func() {
		oracleABI, oracleABIErr = abi.JSON(strings.NewReader(oracleABIJSON))
	})
	return oracleABI, oracleABIErr
}
