package types

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

type cborHandler struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// Cbor encodes values canonically: the same value always produces the same
// bytes, so encodings can be hashed and compared.
var Cbor = mustNewCborHandler()

func mustNewCborHandler() cborHandler {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborHandler{encMode: encMode, decMode: decMode}
}

func (c cborHandler) Marshal(v any) ([]byte, error) {
	return c.encMode.Marshal(v)
}

func (c cborHandler) Unmarshal(data []byte, v any) error {
	return c.decMode.Unmarshal(data, v)
}

func (c cborHandler) Encode(w io.Writer, v any) error {
	return c.encMode.NewEncoder(w).Encode(v)
}

func (c cborHandler) GetEncoder(w io.Writer) *cbor.Encoder {
	return c.encMode.NewEncoder(w)
}

func (c cborHandler) GetDecoder(r io.Reader) *cbor.Decoder {
	return c.decMode.NewDecoder(r)
}
