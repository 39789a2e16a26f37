package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// KeyMode selects which key/IV pair a data-model call is encrypted with.
type KeyMode int

const (
	// KeyCommon is the fixed pair shared by every unauthenticated call
	KeyCommon KeyMode = iota

	// KeySession is the pair derived from the authenticated user id
	KeySession
)

// Fixed cipher material. These values are wire-protocol facts: the origin
// client ships them and the server expects them byte for byte.
var (
	commonKey = []byte("%!^F&^$)&^$&*$^&")
	commonIV  = []byte("#*v$JvywJvyJDyvJ")

	streamKey = []byte("%!$!%_$&!%F)&^!^")
	streamIV  = []byte("#*y*#2yJ*#$wJv*v")
)

// Session key derivation material.
const (
	keyAlphabet      = "%!F*&^$)_*%3f&B+"
	ivAlphabet       = "#*$DJvyw2w%!_-$@"
	derivationSuffix = "1524567456436545"
	derivedLength    = 16
)

// WireSuffix terminates every envelope so consumers can split metadata from
// ciphertext uniformly.
const WireSuffix = ":"

// Codec encrypts and decrypts data-model payloads. The common pair is usable
// immediately; the session pair must be installed after login.
type Codec struct {
	sessionKey []byte
	sessionIV  []byte
}

// NewCodec creates a codec with no session keys installed.
func NewCodec() *Codec {
	return &Codec{}
}

// SetSessionKeys installs the per-session pair derived at login.
func (c *Codec) SetSessionKeys(key, iv []byte) {
	c.sessionKey = key
	c.sessionIV = iv
}

// DeriveSessionKeys maps the authenticated numeric user id onto the key and
// IV alphabets: the id is right-padded with a fixed numeric suffix, truncated
// to 16 characters, and each decimal digit indexes one alphabet position.
func DeriveSessionKeys(userID string) (key, iv []byte, err error) {
	seed := userID + derivationSuffix
	if len(seed) < derivedLength {
		return nil, nil, fmt.Errorf("user id %q too short for key derivation", userID)
	}
	seed = seed[:derivedLength]

	key = make([]byte, derivedLength)
	iv = make([]byte, derivedLength)
	for i := 0; i < derivedLength; i++ {
		d := seed[i]
		if d < '0' || d > '9' {
			return nil, nil, fmt.Errorf("user id %q is not numeric", userID)
		}
		key[i] = keyAlphabet[d-'0']
		iv[i] = ivAlphabet[d-'0']
	}
	return key, iv, nil
}

// keys returns the pair for the given mode, or nil if it is unavailable.
func (c *Codec) keys(mode KeyMode) (key, iv []byte) {
	if mode == KeyCommon {
		return commonKey, commonIV
	}
	return c.sessionKey, c.sessionIV
}

// Encrypt marshals v as compact JSON, encrypts it under the selected pair and
// returns the wire form: base64 ciphertext plus the ":" suffix.
func (c *Codec) Encrypt(v any, mode KeyMode) (string, error) {
	key, iv := c.keys(mode)
	if key == nil {
		return "", fmt.Errorf("session keys not installed")
	}

	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	encrypted, err := cbcEncrypt(plain, key, iv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted) + WireSuffix, nil
}

// Decrypt reverses Encrypt. It never fails to the caller: bad base64, a
// mismatched cipher, or broken padding all return nil, which callers treat
// identically to "no data".
func (c *Codec) Decrypt(wire string, mode KeyMode) []byte {
	key, iv := c.keys(mode)
	if key == nil {
		return nil
	}

	encrypted, err := base64.StdEncoding.DecodeString(strings.SplitN(wire, WireSuffix, 2)[0])
	if err != nil {
		return nil
	}

	plain, err := cbcDecrypt(encrypted, key, iv)
	if err != nil {
		return nil
	}
	return plain
}

// DecryptJSON decrypts and parses a JSON object, returning nil on any
// failure along the way.
func (c *Codec) DecryptJSON(wire string, mode KeyMode) map[string]any {
	plain := c.Decrypt(wire, mode)
	if plain == nil {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(plain, &obj); err != nil {
		return nil
	}
	return obj
}

// EncryptStream encrypts a navigation payload under the fixed stream pair.
// Stream envelopes carry no ":" suffix.
func EncryptStream(plaintext string) string {
	encrypted, err := cbcEncrypt([]byte(plaintext), streamKey, streamIV)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(encrypted)
}

// DecryptStream decrypts a navigation envelope and recovers the JSON inside.
// The origin API occasionally returns ciphertext whose plaintext is truncated
// or carries trailing garbage; RecoverJSON salvages what parses.
func DecryptStream(wire string) string {
	encrypted, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		return ""
	}

	plain, err := cbcDecrypt(encrypted, streamKey, streamIV)
	if err != nil {
		// Padding did not verify; fall back to the raw block output and
		// let JSON recovery trim whatever trails the payload.
		plain = rawCBC(encrypted)
		if plain == nil {
			return ""
		}
	}
	return RecoverJSON(string(plain))
}

// DecodeStreamJSON decrypts a navigation envelope and parses the recovered
// object, returning nil on failure.
func DecodeStreamJSON(wire string) map[string]any {
	recovered := DecryptStream(wire)
	if recovered == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(recovered), &obj); err != nil {
		return nil
	}
	return obj
}

// RecoverJSON returns the longest prefix of s that parses as JSON, trimmed
// back to its final closing brace. Empty string when nothing parses.
func RecoverJSON(s string) string {
	cleaned := ""
	for i := range s {
		if json.Valid([]byte(s[:i+1])) {
			cleaned = s[:i+1]
		}
	}

	if idx := strings.LastIndexByte(cleaned, '}'); idx >= 0 {
		cleaned = cleaned[:idx+1]
	}
	return cleaned
}

// cbcEncrypt runs AES-CBC over PKCS#7-padded plaintext.
func cbcEncrypt(plain, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// cbcDecrypt reverses cbcEncrypt and verifies the padding.
func cbcDecrypt(encrypted, key, iv []byte) ([]byte, error) {
	raw := rawCBCWith(encrypted, key, iv)
	if raw == nil {
		return nil, fmt.Errorf("ciphertext not a whole number of blocks")
	}
	return pkcs7Unpad(raw, aes.BlockSize)
}

// rawCBC decrypts under the stream pair without unpadding.
func rawCBC(encrypted []byte) []byte {
	return rawCBCWith(encrypted, streamKey, streamIV)
}

func rawCBCWith(encrypted, key, iv []byte) []byte {
	if len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return nil
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil
	}
	out := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, encrypted)
	return out
}

// pkcs7Pad appends 1..blockSize bytes, each holding the pad length.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad strips and verifies PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padLen], nil
}
