package codec

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/wmgateway/gateway/gwerrors"
)

// arguments builds an abi.Arguments list from bare Solidity type strings
// ("address[]", "uint256", "bytes[]", ...). The resulting Arguments encode
// and decode a sequence of values exactly as Solidity packs a tuple — this
// is the "canonical ABI encoding of the triple/batch" the spec refers to.
func arguments(types ...string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, gwerrors.DecodeError(err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args, nil
}

// Pack ABI-encodes values according to the given type strings.
func Pack(types []string, values ...any) ([]byte, error) {
	args, err := arguments(types...)
	if err != nil {
		return nil, err
	}
	out, err := args.Pack(values...)
	if err != nil {
		return nil, gwerrors.DecodeError(err)
	}
	return out, nil
}

// Unpack ABI-decodes data according to the given type strings, returning
// one value per type in order.
func Unpack(types []string, data []byte) ([]any, error) {
	args, err := arguments(types...)
	if err != nil {
		return nil, err
	}
	values, err := args.UnpackValues(data)
	if err != nil {
		return nil, gwerrors.DecodeError(err)
	}
	if len(values) != len(types) {
		return nil, gwerrors.DecodeError(nil)
	}
	return values, nil
}
