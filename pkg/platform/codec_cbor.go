package platform

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: the same payload always yields the same
	// bytes, which keeps recorded bridge traffic comparable.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("platform: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		// Decoded maps must match what the JSON codec produces so payload
		// parsing does not depend on the codec.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("platform: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORCodec implements MessageCodec using CBOR (RFC 8949). It is more compact
// than JSON and keeps integer types intact.
type CBORCodec struct{}

// Encode serializes the value to CBOR bytes.
func (CBORCodec) Encode(value any) ([]byte, error) {
	return cborEnc.Marshal(value)
}

// Decode deserializes CBOR bytes to a Go value. Maps decode as
// map[string]any.
func (CBORCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := cborDec.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
