package revert

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	errorSelector = []byte{0x08, 0xc3, 0x79, 0xa0}
	panicSelector = []byte{0x4e, 0x48, 0x7b, 0x71}
)

// from https://docs.soliditylang.org/en/v0.8.0/control-structures.html
var panicCodes = map[uint64]string{
	0x01: "assert(false)",
	0x11: "arithmetic overflow/underflow",
	0x12: "divide by zero",
	0x21: "invalid enum value",
	0x22: "storage byte array that is incorrectly encoded",
	0x31: ".pop() on an empty array.",
	0x32: "array out-of-bounds or negative index",
	0x41: "memory overflow",
	0x51: "zero-initialized variable of internal function type",
}

// errors the entry point and the accounts may revert with
const customErrorsJSON = `[
	{"type":"error","name":"ECDSAInvalidSignature","inputs":[]},
	{"type":"error","name":"FailedOp","inputs":[{"name":"opIndex","type":"uint256"},{"name":"reason","type":"string"}]},
	{"type":"error","name":"FailedOpWithRevert","inputs":[{"name":"opIndex","type":"uint256"},{"name":"reason","type":"string"},{"name":"inner","type":"bytes"}]},
	{"type":"error","name":"PostOpReverted","inputs":[{"name":"returnData","type":"bytes"}]},
	{"type":"error","name":"SignatureValidationFailed","inputs":[{"name":"aggregator","type":"address"}]},
	{"type":"error","name":"SenderAddressResult","inputs":[{"name":"sender","type":"address"}]}
]`

var (
	customErrors abi.ABI
	stringArgs   abi.Arguments
	uintArgs     abi.Arguments
)

func init() {
	var err error
	if customErrors, err = abi.JSON(strings.NewReader(customErrorsJSON)); err != nil {
		panic(err)
	}
	stringType, _ := abi.NewType("string", "", nil)
	uintType, _ := abi.NewType("uint256", "", nil)
	stringArgs = abi.Arguments{{Type: stringType}}
	uintArgs = abi.Arguments{{Type: uintType}}
}

// Decode renders revert data as a readable reason such as
// `Error(not enough funds)` or `FailedOp(0,"AA21 didn't pay prefund")`.
// It reports false when the payload matches no known error.
func Decode(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	selector, params := data[:4], data[4:]

	switch {
	case bytes.Equal(selector, errorSelector):
		out, err := stringArgs.Unpack(params)
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("Error(%s)", out[0].(string)), true
	case bytes.Equal(selector, panicSelector):
		out, err := uintArgs.Unpack(params)
		if err != nil {
			return "", false
		}
		code := out[0].(*big.Int)
		if code.IsUint64() {
			if desc, ok := panicCodes[code.Uint64()]; ok {
				return fmt.Sprintf("Panic(%s)", desc), true
			}
		}
		return fmt.Sprintf("Panic(%s)", code.String()), true
	}

	var id [4]byte
	copy(id[:], selector)
	customErr, err := customErrors.ErrorByID(id)
	if err != nil {
		return "", false
	}
	values, err := customErr.Inputs.Unpack(params)
	if err != nil {
		return "", false
	}

	args := make([]string, 0, len(values))
	for i, v := range values {
		args = append(args, formatArg(customErr.Inputs[i].Type, v))
	}
	return fmt.Sprintf("%s(%s)", customErr.Name, strings.Join(args, ",")), true
}

func formatArg(t abi.Type, v interface{}) string {
	switch t.T {
	case abi.BytesTy:
		raw, _ := v.([]byte)
		// nested revert data, e.g. the inner revert of FailedOpWithRevert
		if reason, ok := Decode(raw); ok {
			return reason
		}
		return hexutil.Encode(raw)
	case abi.StringTy:
		return fmt.Sprintf("%q", v)
	case abi.AddressTy:
		return v.(common.Address).Hex()
	default:
		return fmt.Sprint(v)
	}
}

// Error is a call failure carrying the decoded revert reason next to the raw
// revert payload.
type Error struct {
	Reason string
	Data   []byte
	Err    error
}

func (e *Error) Error() string {
	return "execution reverted: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap turns an RPC error carrying revert data into an *Error. Errors without
// revert data are returned unchanged.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}
	data, ok := revertData(dataErr.ErrorData())
	if !ok {
		return err
	}

	reason, ok := Decode(data)
	if !ok {
		preview := data
		if len(preview) > 50 {
			preview = preview[:50]
		}
		reason = fmt.Sprintf("%s - %s", err.Error(), hexutil.Encode(preview))
	}
	return &Error{Reason: reason, Data: data, Err: err}
}

func revertData(v interface{}) ([]byte, bool) {
	switch d := v.(type) {
	case string:
		data, err := hexutil.Decode(d)
		if err != nil {
			return nil, false
		}
		return data, true
	case []byte:
		return d, true
	default:
		return nil, false
	}
}
