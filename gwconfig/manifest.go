package gwconfig

import (
	"math/big"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/wmgateway/gateway/domain"
	"github.com/wmgateway/gateway/gwerrors"
)

// Manifest is the genesis deployment description: the operator set a fresh
// gatewayd registers on first boot, before it has ever seen a proof.
type Manifest struct {
	Operators []ManifestOperator `toml:"operator"`
	Threshold uint64             `toml:"threshold"`
}

// ManifestOperator is one entry in a Manifest's operator table.
type ManifestOperator struct {
	Address string `toml:"address"`
	Weight  uint64 `toml:"weight"`
}

// LoadManifest parses a TOML deployment manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, gwerrors.DecodeError(err)
	}
	return &m, nil
}

// OperatorSet converts the manifest into the domain type Executor expects,
// sorting operators ascending the way the on-chain encoding requires.
func (m *Manifest) OperatorSet() (domain.OperatorSet, error) {
	if len(m.Operators) == 0 {
		return domain.OperatorSet{}, gwerrors.InvalidOperators("manifest declares no operators")
	}

	ops := make([]common.Address, len(m.Operators))
	weights := make([]*big.Int, len(m.Operators))
	for i, o := range m.Operators {
		if !common.IsHexAddress(o.Address) {
			return domain.OperatorSet{}, gwerrors.InvalidOperators("manifest operator address is not valid hex: " + o.Address)
		}
		ops[i] = common.HexToAddress(o.Address)
		weights[i] = new(big.Int).SetUint64(o.Weight)
	}

	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && bytesGreater(ops[j-1], ops[j]); j-- {
			ops[j], ops[j-1] = ops[j-1], ops[j]
			weights[j], weights[j-1] = weights[j-1], weights[j]
		}
	}

	set := domain.OperatorSet{
		Operators: ops,
		Weights:   weights,
		Threshold: new(big.Int).SetUint64(m.Threshold),
	}
	return set, set.Validate()
}

func bytesGreater(a, b common.Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
