package crypto

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Format identifies an envelope layout.
type Format int

const (
	FormatUnknown Format = iota
	FormatNative
	FormatOpenSSL
)

func (f Format) String() string {
	switch f {
	case FormatNative:
		return "sous-v1"
	case FormatOpenSSL:
		return "openssl-aes-256-cbc-pbkdf2"
	default:
		return "unknown"
	}
}

const (
	nativeVersion = 1
	// magic | version | salt | iterations
	nativeHeaderSize = 4 + 1 + SaltSize + 4
)

var nativeMagic = []byte("SOUS")

// Detect reports the envelope format of data by its header.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, nativeMagic):
		return FormatNative
	case bytes.HasPrefix(data, opensslMagic):
		return FormatOpenSSL
	default:
		return FormatUnknown
	}
}

// Seal encrypts plaintext into a native envelope. A fresh salt and nonce
// are drawn for every call. Iterations <= 0 selects DefaultIters; more than
// MaxIters is rejected since Open would refuse the result.
func Seal(material, plaintext []byte, iterations int) ([]byte, error) {
	if iterations <= 0 {
		iterations = DefaultIters
	}
	if iterations > MaxIters {
		return nil, fmt.Errorf("iterations %d exceed the maximum of %d", iterations, MaxIters)
	}

	kdf, err := NewKDF()
	if err != nil {
		return nil, err
	}
	kdf.Iterations = iterations

	header := make([]byte, 0, nativeHeaderSize)
	header = append(header, nativeMagic...)
	header = append(header, nativeVersion)
	header = append(header, kdf.Salt...)
	header = binary.BigEndian.AppendUint32(header, uint32(iterations))

	enc := NewEncryptor(kdf.DeriveKey(material))
	defer enc.Destroy()

	body, err := enc.Encrypt(plaintext, header)
	if err != nil {
		return nil, err
	}

	return append(header, body...), nil
}

// Open decrypts an envelope in either supported format.
func Open(material, data []byte) ([]byte, error) {
	switch Detect(data) {
	case FormatNative:
		return openNative(material, data)
	case FormatOpenSSL:
		return OpenOpenSSL(material, data)
	default:
		return nil, ErrUnknownFormat
	}
}

func openNative(material, data []byte) ([]byte, error) {
	if len(data) < nativeHeaderSize+NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	header := data[:nativeHeaderSize]
	if v := header[4]; v != nativeVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnknownFormat, v)
	}

	kdf := &KDF{
		Salt:       header[5 : 5+SaltSize],
		Iterations: int(binary.BigEndian.Uint32(header[5+SaltSize:])),
	}
	// The count is read before authentication, so bound the work it can demand.
	if kdf.Iterations <= 0 || kdf.Iterations > MaxIters {
		return nil, fmt.Errorf("%w: iteration count %d", ErrInvalidCiphertext, kdf.Iterations)
	}

	enc := NewEncryptor(kdf.DeriveKey(material))
	defer enc.Destroy()

	return enc.Decrypt(data[nativeHeaderSize:], header)
}
