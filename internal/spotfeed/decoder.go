package spotfeed

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"twapOracle/internal/model"
)

// Decoder turns SubmittedSpotEntry logs into SpotEvents.
type Decoder struct {
	oracleABI abi.ABI
	eventID   common.Hash
}

// NewDecoder builds a decoder over the oracle ABI.
func NewDecoder() (*Decoder, error) {
	oracleABI, err := OracleABI()
	if err != nil {
		return nil, err
	}
	event, ok := oracleABI.Events[EventName]
	if !ok {
		return nil, fmt.Errorf("abi missing event %s", EventName)
	}
	return &Decoder{oracleABI: oracleABI, eventID: event.ID}, nil
}

// EventID returns topic0 of SubmittedSpotEntry.
func (d *Decoder) EventID() common.Hash {
	return d.eventID
}

// CanDecode checks topic0.
func (d *Decoder) CanDecode(log types.Log) bool {
	return len(log.Topics) > 0 && log.Topics[0] == d.eventID
}

// Decode converts one log into a SpotEvent.
func (d *Decoder) Decode(log types.Log) (model.SpotEvent, error) {
	if log.Removed {
		return model.SpotEvent{}, fmt.Errorf("log removed by reorg")
	}
	if !d.CanDecode(log) {
		return model.SpotEvent{}, fmt.Errorf("unsupported topic0")
	}
	if len(log.Topics) < 2 {
		return model.SpotEvent{}, fmt.Errorf("missing pair topic")
	}

	values := make(map[string]interface{})
	if err := d.oracleABI.UnpackIntoMap(values, EventName, log.Data); err != nil {
		return model.SpotEvent{}, fmt.Errorf("unpack %s: %w", EventName, err)
	}

	timestamp, err := bigField(values, "timestamp")
	if err != nil {
		return model.SpotEvent{}, err
	}
	if !timestamp.IsUint64() {
		return model.SpotEvent{}, fmt.Errorf("timestamp does not fit in uint64: %s", timestamp)
	}
	price, err := bigField(values, "price")
	if err != nil {
		return model.SpotEvent{}, err
	}

	return model.SpotEvent{
		PairID:      log.Topics[1].Hex(),
		Price:       price,
		BlockNumber: log.BlockNumber,
		Timestamp:   timestamp.Uint64(),
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
	}, nil
}

func bigField(values map[string]interface{}, name string) (*big.Int, error) {
	raw, ok := values[name]
	if !ok {
		return nil, fmt.Errorf("missing field %s", name)
	}
	val, ok := raw.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("field %s unexpected type %T", name, raw)
	}
	return val, nil
}
