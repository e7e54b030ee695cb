package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Bytes is a byte slice which is marshaled to text as a 0x prefixed hex string.
type Bytes []byte

func (b Bytes) MarshalText() ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return []byte(toHex(b)), nil
}

func (b *Bytes) UnmarshalText(src []byte) error {
	if len(src) == 0 {
		*b = nil
		return nil
	}
	res, err := fromHex(string(src))
	if err != nil {
		return err
	}
	*b = res
	return nil
}

func (b Bytes) String() string {
	return toHex(b)
}

func toHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func fromHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("hex string %q is missing the 0x prefix", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("decoding hex string: %w", err)
	}
	return b, nil
}
