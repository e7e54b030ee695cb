package keyvaluedb

import (
	"errors"
	"reflect"
)

var (
	ErrInvalidKey = errors.New("key is empty")
	ErrValueIsNil = errors.New("value is nil")
)

// CheckKey is for the operations which only take a key.
func CheckKey(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return nil
}

// CheckKeyAndValue rejects empty keys and nil values, including typed nil
// pointers which the encoder would store as CBOR null.
func CheckKeyAndValue(key []byte, value any) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if value == nil {
		return ErrValueIsNil
	}
	if v := reflect.ValueOf(value); v.Kind() == reflect.Pointer && v.IsNil() {
		return ErrValueIsNil
	}
	return nil
}
