package errors

type Code string

const (
	CodeChainRPC  Code = "CHAIN_RPC_ERROR"
	DailChain     Code = "DIAL_CHAIN_ERROR"
	GetchainIDErr Code = "GET_CHAIN_ID_ERROR"

	// address and key resolution
	CodeInvalidAddress         Code = "INVALID_ADDRESS"
	CodeUnsupportedAddressType Code = "UNSUPPORTED_ADDRESS_TYPE"
	CodeAddressNotFound        Code = "ADDRESS_NOT_FOUND"
	CodeEmptyAccountList       Code = "EMPTY_ACCOUNT_LIST"
	CodeKeyDerivationFailed    Code = "KEY_DERIVATION_FAILED"

	// signing
	CodeEmptyWitness     Code = "EMPTY_WITNESS"
	CodeInvalidSignature Code = "INVALID_SIGNATURE"

	// user operations
	CodeEstimationFailed     Code = "ESTIMATION_FAILED"
	CodeNonceUnavailable     Code = "NONCE_UNAVAILABLE"
	CodeInvalidUserOperation Code = "INVALID_USER_OPERATION"

	CodeWalletNotFound Code = "WALLET_NOT_FOUND"
	CodeInvalidRequest Code = "INVALID_REQUEST"
)
