package wallet

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/c360/walletsync/errors"
)

// Wallet addresses are base58-encoded 32-byte public keys. The encoded form
// is between 32 and 44 characters.
const (
	minAddressLen = 32
	maxAddressLen = 44
	publicKeyLen  = 32
)

// ValidateAndNormalize checks that address is a well-formed wallet address
// and returns its canonical base58 form. Surrounding whitespace is stripped;
// the canonical form is the re-encoding of the decoded key bytes, so two
// spellings of the same key always normalize identically.
//
// Validation fails fast, before any I/O, with an invalid-classified error.
func ValidateAndNormalize(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", errors.WrapInvalid(errors.ErrInvalidAddress, "wallet", "ValidateAndNormalize", "empty address")
	}
	if len(trimmed) < minAddressLen || len(trimmed) > maxAddressLen {
		return "", errors.WrapInvalid(errors.ErrInvalidAddress, "wallet", "ValidateAndNormalize",
			fmt.Sprintf("address length %d outside %d-%d", len(trimmed), minAddressLen, maxAddressLen))
	}

	decoded, err := base58.Decode(trimmed)
	if err != nil {
		return "", errors.WrapInvalid(errors.ErrInvalidAddress, "wallet", "ValidateAndNormalize",
			fmt.Sprintf("base58 decode of %q", trimmed))
	}
	if len(decoded) != publicKeyLen {
		return "", errors.WrapInvalid(errors.ErrInvalidAddress, "wallet", "ValidateAndNormalize",
			fmt.Sprintf("decoded key is %d bytes, want %d", len(decoded), publicKeyLen))
	}

	return base58.Encode(decoded), nil
}

// IsValid reports whether address is a well-formed wallet address.
func IsValid(address string) bool {
	_, err := ValidateAndNormalize(address)
	return err == nil
}

// NormalizeSet validates and normalizes a list of addresses, returning the
// de-duplicated normalized set and per-address errors for rejects. Order of
// the accepted addresses follows first appearance.
func NormalizeSet(addresses []string) ([]string, []WalletError) {
	seen := make(map[string]struct{}, len(addresses))
	normalized := make([]string, 0, len(addresses))
	var rejects []WalletError

	for _, addr := range addresses {
		norm, err := ValidateAndNormalize(addr)
		if err != nil {
			rejects = append(rejects, WalletError{Address: addr, Error: err.Error()})
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		normalized = append(normalized, norm)
	}

	return normalized, rejects
}
