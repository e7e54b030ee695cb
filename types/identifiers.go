package types

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const ChainIDLength = 32

// ChainID identifies a chain. It is the hash of the chain's creation
// description and is never reused.
type ChainID [ChainIDLength]byte

var errInvalidChainIDLength = errors.New("invalid chain identifier length")

func ChainIDFromBytes(b []byte) (ChainID, error) {
	var id ChainID
	if len(b) != ChainIDLength {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", errInvalidChainIDLength, ChainIDLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ChainIDFromString parses the 0x prefixed hex representation of the ID.
func ChainIDFromString(s string) (ChainID, error) {
	b, err := fromHex(s)
	if err != nil {
		return ChainID{}, err
	}
	return ChainIDFromBytes(b)
}

// NewChainID derives chain ID from the chain description bytes.
func NewChainID(description []byte) ChainID {
	return sha256.Sum256(description)
}

func (id ChainID) Bytes() []byte {
	return bytes.Clone(id[:])
}

func (id ChainID) Compare(other ChainID) int {
	return bytes.Compare(id[:], other[:])
}

func (id ChainID) String() string {
	return toHex(id[:])
}

func (id ChainID) MarshalText() ([]byte, error) {
	return []byte(toHex(id[:])), nil
}

func (id *ChainID) UnmarshalText(src []byte) error {
	v, err := ChainIDFromString(string(src))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// OwnerKind is the variant tag of the AccountOwner. The order of the
// constants is part of the canonical ordering of owners.
type OwnerKind uint8

const (
	OwnerReserved OwnerKind = iota
	OwnerAddress32
	OwnerAddress20
)

const (
	reservedOwnerLength  = 1
	address32OwnerLength = 32
	address20OwnerLength = common.AddressLength
)

func (k OwnerKind) addressLength() int {
	switch k {
	case OwnerReserved:
		return reservedOwnerLength
	case OwnerAddress32:
		return address32OwnerLength
	case OwnerAddress20:
		return address20OwnerLength
	default:
		return -1
	}
}

func (k OwnerKind) String() string {
	switch k {
	case OwnerReserved:
		return "reserved"
	case OwnerAddress32:
		return "address32"
	case OwnerAddress20:
		return "address20"
	default:
		return fmt.Sprintf("OwnerKind(%d)", uint8(k))
	}
}

// AccountOwner identifies a principal that may own a chain or an account.
// Owners are comparable with == and usable as map keys. The canonical
// order compares the kind first and then the address bytes.
type AccountOwner struct {
	kind OwnerKind
	addr [address32OwnerLength]byte
}

var errInvalidOwner = errors.New("invalid account owner")

// ChainOwner is the reserved owner standing for the chain itself, ie the
// chain's own account.
var ChainOwner = NewReservedOwner(0)

func NewReservedOwner(b byte) AccountOwner {
	o := AccountOwner{kind: OwnerReserved}
	o.addr[0] = b
	return o
}

func NewAddress32Owner(addr [32]byte) AccountOwner {
	return AccountOwner{kind: OwnerAddress32, addr: addr}
}

func NewAddress20Owner(addr [20]byte) AccountOwner {
	o := AccountOwner{kind: OwnerAddress20}
	copy(o.addr[:], addr[:])
	return o
}

// NewOwnerFromEVMAddress returns the owner for an Ethereum style address.
func NewOwnerFromEVMAddress(addr common.Address) AccountOwner {
	return NewAddress20Owner(addr)
}

// NewOwnerFromSecp256k1 returns the owner of the secp256k1 public key: the
// SHA-256 hash of the compressed key.
func NewOwnerFromSecp256k1(pub *ecdsa.PublicKey) AccountOwner {
	return NewAddress32Owner(sha256.Sum256(crypto.CompressPubkey(pub)))
}

// NewOwnerFromEd25519 returns the owner of the Ed25519 public key.
func NewOwnerFromEd25519(pub ed25519.PublicKey) AccountOwner {
	return NewAddress32Owner(sha256.Sum256(pub))
}

// NewOwnerFromPublicKey derives owner from the serialized public key: 33 bytes
// is a compressed secp256k1 key, 65 bytes uncompressed secp256k1 key and
// 32 bytes an Ed25519 key.
func NewOwnerFromPublicKey(pubKey []byte) (AccountOwner, error) {
	switch len(pubKey) {
	case 33:
		pub, err := crypto.DecompressPubkey(pubKey)
		if err != nil {
			return AccountOwner{}, fmt.Errorf("decoding secp256k1 public key: %w", err)
		}
		return NewOwnerFromSecp256k1(pub), nil
	case 65:
		pub, err := crypto.UnmarshalPubkey(pubKey)
		if err != nil {
			return AccountOwner{}, fmt.Errorf("decoding secp256k1 public key: %w", err)
		}
		return NewOwnerFromSecp256k1(pub), nil
	case ed25519.PublicKeySize:
		return NewOwnerFromEd25519(pubKey), nil
	default:
		return AccountOwner{}, fmt.Errorf("%w: unsupported public key length %d", errInvalidOwner, len(pubKey))
	}
}

// NewAccountOwner builds an owner of given kind from the address bytes.
func NewAccountOwner(kind OwnerKind, addr []byte) (AccountOwner, error) {
	l := kind.addressLength()
	if l < 0 {
		return AccountOwner{}, fmt.Errorf("%w: unknown kind %d", errInvalidOwner, kind)
	}
	if len(addr) != l {
		return AccountOwner{}, fmt.Errorf("%w: %s address must be %d bytes, got %d", errInvalidOwner, kind, l, len(addr))
	}
	o := AccountOwner{kind: kind}
	copy(o.addr[:], addr)
	return o, nil
}

// AccountOwnerFromString parses the 0x prefixed hex form, the kind is
// derived from the length of the address.
func AccountOwnerFromString(s string) (AccountOwner, error) {
	b, err := fromHex(s)
	if err != nil {
		return AccountOwner{}, err
	}
	switch len(b) {
	case reservedOwnerLength:
		return NewAccountOwner(OwnerReserved, b)
	case address20OwnerLength:
		return NewAccountOwner(OwnerAddress20, b)
	case address32OwnerLength:
		return NewAccountOwner(OwnerAddress32, b)
	default:
		return AccountOwner{}, fmt.Errorf("%w: unexpected address length %d", errInvalidOwner, len(b))
	}
}

func (o AccountOwner) Kind() OwnerKind {
	return o.kind
}

// Bytes returns copy of the address bytes.
func (o AccountOwner) Bytes() []byte {
	return bytes.Clone(o.addr[:o.kind.addressLength()])
}

// Compare returns -1, 0 or +1 depending on whether o sorts before, equal to
// or after other in the canonical order.
func (o AccountOwner) Compare(other AccountOwner) int {
	switch {
	case o.kind < other.kind:
		return -1
	case o.kind > other.kind:
		return 1
	}
	return bytes.Compare(o.addr[:], other.addr[:])
}

func (o AccountOwner) IsChain() bool {
	return o == ChainOwner
}

func (o AccountOwner) String() string {
	return toHex(o.addr[:o.kind.addressLength()])
}

func (o AccountOwner) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *AccountOwner) UnmarshalText(src []byte) error {
	v, err := AccountOwnerFromString(string(src))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

type accountOwnerCBOR struct {
	_       struct{} `cbor:",toarray"`
	Kind    OwnerKind
	Address []byte
}

func (o AccountOwner) MarshalCBOR() ([]byte, error) {
	return Cbor.Marshal(accountOwnerCBOR{Kind: o.kind, Address: o.Bytes()})
}

func (o *AccountOwner) UnmarshalCBOR(data []byte) error {
	var v accountOwnerCBOR
	if err := Cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	owner, err := NewAccountOwner(v.Kind, v.Address)
	if err != nil {
		return err
	}
	*o = owner
	return nil
}
