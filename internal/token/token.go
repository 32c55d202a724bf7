// Package token classifies raw token identifiers and infers the chain the
// analysis should target.
package token

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind distinguishes the two accepted identifier forms.
type Kind string

const (
	KindAddress Kind = "address"
	KindSymbol  Kind = "symbol"
)

// Chain is the inferred target network for chain-gated providers.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainSolana   Chain = "solana"
	ChainUnknown  Chain = "unknown"
)

// ErrEmptyIdentifier is returned for blank input. It is the only hard
// input-validation error the pipeline produces.
var ErrEmptyIdentifier = errors.New("token identifier is empty")

// ErrInvalidIdentifier is returned for input that is neither a plausible
// contract address nor a trading symbol.
var ErrInvalidIdentifier = errors.New("token identifier is not an address or symbol")

// Solana addresses are base58, 32-44 characters.
var solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Symbols: 1-12 alphanumerics, optionally prefixed with $.
var symbolRe = regexp.MustCompile(`^\$?[A-Za-z0-9]{1,12}$`)

// Info is the classified identifier handed to the gateway and providers.
type Info struct {
	// Raw is the identifier as received, trimmed.
	Raw string

	Kind  Kind
	Chain Chain
}

// Symbol returns the normalized uppercase symbol for symbol identifiers.
func (i Info) Symbol() string {
	return strings.ToUpper(strings.TrimPrefix(i.Raw, "$"))
}

// IsSolanaAddress reports whether the identifier is a Solana contract
// address, the gate for Solana-only analytics providers.
func (i Info) IsSolanaAddress() bool {
	return i.Kind == KindAddress && i.Chain == ChainSolana
}

// Classify inspects a raw identifier and determines its kind and chain.
// EVM addresses are recognized via their hex form, Solana addresses via
// base58 shape; anything else that looks like a ticker is treated as a
// symbol resolved by symbol-capable providers.
func Classify(raw string) (Info, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Info{}, ErrEmptyIdentifier
	}

	if common.IsHexAddress(trimmed) {
		return Info{Raw: trimmed, Kind: KindAddress, Chain: ChainEthereum}, nil
	}

	// Base58 check must precede the symbol check: long base58 strings
	// would otherwise never match, but short ones never reach here
	// because of the 32-character minimum.
	if solanaAddressRe.MatchString(trimmed) {
		return Info{Raw: trimmed, Kind: KindAddress, Chain: ChainSolana}, nil
	}

	if symbolRe.MatchString(trimmed) {
		return Info{Raw: trimmed, Kind: KindSymbol, Chain: ChainUnknown}, nil
	}

	return Info{}, ErrInvalidIdentifier
}
