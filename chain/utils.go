package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

var (
	ErrEmptyDerivationPath     = errors.New("empty derivation path")
	ErrMalformedDerivationPath = errors.New("path must start with m/")
	ErrInvalidPathIndex        = errors.New("invalid derivation index")
)

// DerivationPath is a BIP-32 path as a list of child indexes, hardened
// indexes already offset by hdkeychain.HardenedKeyStart.
type DerivationPath []uint32

func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range p {
		b.WriteString("/")
		if idx >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(uint64(idx-hdkeychain.HardenedKeyStart), 10))
			b.WriteString("'")
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return b.String()
}

// ParseDerivationPath accepts "m/86'/0'/0'/0/0"; "h" is accepted as hardened
// marker too.
func ParseDerivationPath(path string) (DerivationPath, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, ErrEmptyDerivationPath
	}
	if !strings.HasPrefix(p, "m/") && !strings.HasPrefix(p, "M/") {
		return nil, ErrMalformedDerivationPath
	}

	parts := strings.Split(p[2:], "/")
	indices := make(DerivationPath, 0, len(parts))
	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil || v >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPathIndex, part)
		}
		idx := uint32(v)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// DerivationPathFor builds m/<purpose>'/<coin>'/<account>'/0/<index> for the
// given address type on net.
func DerivationPathFor(t AddressType, net Network, account, index uint32) (DerivationPath, error) {
	purpose, ok := t.Purpose()
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeUnsupportedAddressType, "derivation path", t.String())
	}
	if account >= hdkeychain.HardenedKeyStart || index >= hdkeychain.HardenedKeyStart {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, "derivation path", ErrInvalidPathIndex)
	}
	return DerivationPath{
		purpose + hdkeychain.HardenedKeyStart,
		net.CoinType + hdkeychain.HardenedKeyStart,
		account + hdkeychain.HardenedKeyStart,
		0,
		index,
	}, nil
}
