package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	OpenSSLSaltSize = 8
	OpenSSLIters    = 10000
)

var opensslMagic = []byte("Salted__")

func opensslKeyIV(material, salt []byte) (key, iv []byte) {
	derived := pbkdf2.Key(material, salt, OpenSSLIters, KeySize+aes.BlockSize, sha256.New)
	return derived[:KeySize], derived[KeySize:]
}

// SealOpenSSL encrypts plaintext the way
// `openssl enc -aes-256-cbc -pbkdf2 -pass ...` does.
func SealOpenSSL(material, plaintext []byte) ([]byte, error) {
	salt, err := GenerateRandom(OpenSSLSaltSize)
	if err != nil {
		return nil, err
	}

	key, iv := opensslKeyIV(material, salt)
	defer ClearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)
	copy(padded[len(plaintext):], bytes.Repeat([]byte{byte(padLen)}, padLen))
	defer ClearBytes(padded)

	out := make([]byte, len(opensslMagic)+OpenSSLSaltSize+len(padded))
	copy(out, opensslMagic)
	copy(out[len(opensslMagic):], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(opensslMagic)+OpenSSLSaltSize:], padded)

	return out, nil
}

// OpenOpenSSL decrypts data written by SealOpenSSL or by the openssl binary.
// A padding mismatch is reported as ErrAuthFailed.
func OpenOpenSSL(material, data []byte) ([]byte, error) {
	prefix := len(opensslMagic) + OpenSSLSaltSize
	if !bytes.HasPrefix(data, opensslMagic) || len(data) < prefix+aes.BlockSize {
		return nil, ErrInvalidCiphertext
	}
	body := data[prefix:]
	if len(body)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	key, iv := opensslKeyIV(material, data[len(opensslMagic):prefix])
	defer ClearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	padLen := int(plain[len(plain)-1])
	if padLen == 0 || padLen > aes.BlockSize {
		ClearBytes(plain)
		return nil, ErrAuthFailed
	}
	pad := plain[len(plain)-padLen:]
	if !ConstantTimeCompare(pad, bytes.Repeat([]byte{byte(padLen)}, padLen)) {
		ClearBytes(plain)
		return nil, ErrAuthFailed
	}

	return plain[:len(plain)-padLen], nil
}
