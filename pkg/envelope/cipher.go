package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// ValidateCredentials checks that key and iv can drive the AES-CBC envelope.
// Checksums accept any key and iv; only encryption needs these sizes.
func ValidateCredentials(key, iv []byte) error {
	switch len(key) {
	case 16, 24, 32:
	default:
		return newError("validate", ErrKeySize, fmt.Errorf("key is %d bytes, want 16, 24 or 32", len(key)))
	}
	if len(iv) != aes.BlockSize {
		return newError("validate", ErrKeySize, fmt.Errorf("iv is %d bytes, want %d", len(iv), aes.BlockSize))
	}
	return nil
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	if err := ValidateCredentials(key, iv); err != nil {
		return nil, err
	}
	return aes.NewCipher(key)
}

// Encrypt pads the serialised payload, encrypts it with AES-CBC and returns
// lowercase hex.
func Encrypt(key, iv []byte, p Payload) (string, error) {
	if p == nil {
		return "", newError("encrypt", ErrTypeMismatch, fmt.Errorf("nil payload"))
	}
	block, err := newBlock(key, iv)
	if err != nil {
		return "", err
	}

	plain := Pad(p.serialize())
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)
	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt and returns the serialised payload verbatim.
// Hex input is accepted in either case.
func Decrypt(key, iv []byte, ciphertextHex string) (string, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return "", err
	}

	data, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", newError("decrypt", ErrDecode, err)
	}
	if len(data)%aes.BlockSize != 0 {
		return "", newError("decrypt", ErrDecode, fmt.Errorf("ciphertext is %d bytes, not a multiple of %d", len(data), aes.BlockSize))
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	plain = Unpad(plain)

	if !utf8.Valid(plain) {
		return "", newError("decrypt", ErrDecode, fmt.Errorf("plaintext is not valid UTF-8"))
	}
	return string(plain), nil
}
