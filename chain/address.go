package chain

import (
	"fmt"
	"strings"

	"github.com/linlinbupt123-crypto/bip322_aa/utils"
)

type AddressType int

const (
	AddressTypeUnknown AddressType = iota
	P2WPKH
	P2SH
	P2TR
)

func (t AddressType) String() string {
	switch t {
	case P2WPKH:
		return "p2wpkh"
	case P2SH:
		return "p2sh"
	case P2TR:
		return "p2tr"
	default:
		return "unknown"
	}
}

// Purpose is the BIP-43 purpose level used to derive keys for t.
func (t AddressType) Purpose() (uint32, bool) {
	switch t {
	case P2WPKH:
		return utils.PurposeNativeSegwit, true
	case P2SH:
		return utils.PurposeNestedSegwit, true
	case P2TR:
		return utils.PurposeTaproot, true
	default:
		return 0, false
	}
}

func ParseAddressType(s string) (AddressType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p2wpkh", "segwit", "native-segwit":
		return P2WPKH, nil
	case "p2sh", "p2sh-p2wpkh", "nested-segwit":
		return P2SH, nil
	case "p2tr", "taproot":
		return P2TR, nil
	default:
		return AddressTypeUnknown, fmt.Errorf("unknown address type %q", s)
	}
}
