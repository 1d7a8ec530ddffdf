package utils

/*
BIP-44 style paths: m / purpose' / coin_type' / account' / change / address_index

	purpose     84' native segwit (BIP-84), 49' nested segwit (BIP-49), 86' taproot (BIP-86)
	coin_type   0' bitcoin mainnet, 1' every test network
	account     hardened account number, 0' here
	change      0 receive chain, 1 change chain
	index       address number inside the account, not hardened
*/
const (
	PurposeNativeSegwit uint32 = 84
	PurposeNestedSegwit uint32 = 49
	PurposeTaproot      uint32 = 86

	CoinTypeBitcoin uint32 = 0
	CoinTypeTestnet uint32 = 1
)

// EntryPointV07 is the canonical ERC-4337 v0.7 entry point deployment.
const EntryPointV07 = "0x0000000071727De22E5E9d8BAf0edAc6f37da032"
