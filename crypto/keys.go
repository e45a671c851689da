package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

const (
	// SchemeSecp256k1 is the signature scheme flag prepended to public keys,
	// serialized signatures and exported private keys.
	SchemeSecp256k1 byte = 0x01

	// PrivateKeyHRP is the bech32 prefix used by wallet exports.
	PrivateKeyHRP = "suiprivkey"

	// AddressLength is the byte length of a ledger account address.
	AddressLength = 32
)

// transactionIntent prefixes every transaction payload before hashing:
// scope TransactionData, version V0, app id Sui.
var transactionIntent = []byte{0x00, 0x00, 0x00}

// Address is a 32-byte ledger account or object identifier.
type Address [AddressLength]byte

// String renders the address as a 0x-prefixed lowercase hex string.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// ParseAddress decodes a 0x-prefixed hex identifier. Short forms such as 0x6
// are left padded with zeros to the full address width.
func ParseAddress(raw string) (Address, error) {
	var addr Address
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return addr, fmt.Errorf("crypto: address %q must start with 0x", raw)
	}
	digits := trimmed[2:]
	if digits == "" || len(digits) > AddressLength*2 {
		return addr, fmt.Errorf("crypto: address %q has invalid length", raw)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	decoded, err := hex.DecodeString(digits)
	if err != nil {
		return addr, fmt.Errorf("crypto: address %q: %w", raw, err)
	}
	copy(addr[AddressLength-len(decoded):], decoded)
	return addr, nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the 32-byte scalar of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Compressed returns the 33-byte SEC1 compressed encoding of the key.
func (k *PublicKey) Compressed() []byte {
	return crypto.CompressPubkey(k.PublicKey)
}

// Address derives the account address: blake2b-256 over the scheme flag
// followed by the compressed public key.
func (k *PublicKey) Address() Address {
	payload := make([]byte, 0, 1+33)
	payload = append(payload, SchemeSecp256k1)
	payload = append(payload, k.Compressed()...)
	return Address(blake2b.Sum256(payload))
}

// EncodePrivateKey exports the key in the bech32 wallet format.
func EncodePrivateKey(key *PrivateKey) (string, error) {
	if key == nil || key.PrivateKey == nil {
		return "", fmt.Errorf("crypto: nil private key")
	}
	payload := append([]byte{SchemeSecp256k1}, key.Bytes()...)
	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("crypto: convert key bits: %w", err)
	}
	return bech32.Encode(PrivateKeyHRP, conv)
}

// DecodePrivateKey imports a bech32 wallet export. Only secp256k1 keys are
// supported.
func DecodePrivateKey(encoded string) (*PrivateKey, error) {
	hrp, data, err := bech32.Decode(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid bech32 key: %w", err)
	}
	if hrp != PrivateKeyHRP {
		return nil, fmt.Errorf("crypto: unexpected key prefix %q", hrp)
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("crypto: convert key bits: %w", err)
	}
	if len(conv) != 33 {
		return nil, fmt.Errorf("crypto: key payload must be 33 bytes, got %d", len(conv))
	}
	if conv[0] != SchemeSecp256k1 {
		return nil, fmt.Errorf("crypto: unsupported signature scheme 0x%02x", conv[0])
	}
	return PrivateKeyFromBytes(conv[1:])
}

// TransactionDigest hashes transaction bytes under the transaction intent.
func TransactionDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

// SignTransaction signs the intent digest of txBytes and returns the
// serialized signature: flag || r || s || compressed public key.
func (k *PrivateKey) SignTransaction(txBytes []byte) ([]byte, error) {
	if k == nil || k.PrivateKey == nil {
		return nil, fmt.Errorf("crypto: nil private key")
	}
	if len(txBytes) == 0 {
		return nil, fmt.Errorf("crypto: empty transaction bytes")
	}
	digest := TransactionDigest(txBytes)
	hash := sha256.Sum256(digest[:])
	sig, err := crypto.Sign(hash[:], k.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: sign transaction: %w", err)
	}
	pub := k.PubKey().Compressed()
	out := make([]byte, 0, 1+64+len(pub))
	out = append(out, SchemeSecp256k1)
	out = append(out, sig[:64]...)
	out = append(out, pub...)
	return out, nil
}

// VerifyTransaction checks a serialized signature produced by SignTransaction.
func VerifyTransaction(txBytes, serialized []byte) bool {
	if len(serialized) != 1+64+33 || serialized[0] != SchemeSecp256k1 {
		return false
	}
	digest := TransactionDigest(txBytes)
	hash := sha256.Sum256(digest[:])
	return crypto.VerifySignature(serialized[65:], hash[:], serialized[1:65])
}
