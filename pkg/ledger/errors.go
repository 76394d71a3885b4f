package ledger

import "errors"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBadAuthority      = errors.New("authority does not control source balance")
	ErrUnknownMint       = errors.New("mint not registered")
	ErrDuplicateMint     = errors.New("mint already registered")
	ErrNativeMint        = errors.New("native currency is not a token mint")
)
