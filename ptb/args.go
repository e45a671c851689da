package ptb

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"onecoupon/crypto"
)

// ArgKind identifies the on-ledger type of a call argument.
type ArgKind int

const (
	KindAddress ArgKind = iota + 1
	KindBytes
	KindU8
	KindU16
	KindU64
	KindObject
)

func (k ArgKind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindBytes:
		return "vector<u8>"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU64:
		return "u64"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Arg is one positional argument of a call descriptor. Exactly one of the
// value fields is meaningful, selected by Kind.
type Arg struct {
	Kind  ArgKind
	Text  string // address or object id
	Bytes []byte
	Uint  uint64
}

func AddressArg(addr string) Arg { return Arg{Kind: KindAddress, Text: addr} }

func BytesArg(b []byte) Arg {
	return Arg{Kind: KindBytes, Bytes: append([]byte(nil), b...)}
}

func U8Arg(v uint8) Arg   { return Arg{Kind: KindU8, Uint: uint64(v)} }
func U16Arg(v uint16) Arg { return Arg{Kind: KindU16, Uint: uint64(v)} }
func U64Arg(v uint64) Arg { return Arg{Kind: KindU64, Uint: v} }

// ObjectArg references an on-ledger object by id. Objects are passed as
// handles and resolved by the node, never as raw values.
func ObjectArg(id string) Arg { return Arg{Kind: KindObject, Text: id} }

// Pure reports whether the argument is a pure value rather than an object
// handle.
func (a Arg) Pure() bool { return a.Kind != KindObject }

// Encode returns the canonical BCS encoding of the argument. Object handles
// encode as their 32-byte id.
func (a Arg) Encode() ([]byte, error) {
	switch a.Kind {
	case KindAddress, KindObject:
		addr, err := crypto.ParseAddress(a.Text)
		if err != nil {
			return nil, fmt.Errorf("ptb: encode %s: %w", a.Kind, err)
		}
		return addr.Bytes(), nil
	case KindBytes:
		out := appendULEB128(nil, uint64(len(a.Bytes)))
		return append(out, a.Bytes...), nil
	case KindU8:
		return []byte{uint8(a.Uint)}, nil
	case KindU16:
		return binary.LittleEndian.AppendUint16(nil, uint16(a.Uint)), nil
	case KindU64:
		return binary.LittleEndian.AppendUint64(nil, a.Uint), nil
	default:
		return nil, fmt.Errorf("ptb: encode: unknown argument kind %d", a.Kind)
	}
}

// DecodeArg parses a BCS payload produced by Encode back into an argument of
// the given kind. Trailing bytes are rejected.
func DecodeArg(kind ArgKind, data []byte) (Arg, error) {
	switch kind {
	case KindAddress, KindObject:
		if len(data) != crypto.AddressLength {
			return Arg{}, fmt.Errorf("ptb: decode %s: want %d bytes, got %d", kind, crypto.AddressLength, len(data))
		}
		var addr crypto.Address
		copy(addr[:], data)
		return Arg{Kind: kind, Text: addr.String()}, nil
	case KindBytes:
		n, read, err := readULEB128(data)
		if err != nil {
			return Arg{}, fmt.Errorf("ptb: decode %s: %w", kind, err)
		}
		if uint64(len(data)-read) != n {
			return Arg{}, fmt.Errorf("ptb: decode %s: length prefix %d does not match payload %d", kind, n, len(data)-read)
		}
		return BytesArg(data[read:]), nil
	case KindU8:
		if len(data) != 1 {
			return Arg{}, fmt.Errorf("ptb: decode u8: want 1 byte, got %d", len(data))
		}
		return U8Arg(data[0]), nil
	case KindU16:
		if len(data) != 2 {
			return Arg{}, fmt.Errorf("ptb: decode u16: want 2 bytes, got %d", len(data))
		}
		return U16Arg(binary.LittleEndian.Uint16(data)), nil
	case KindU64:
		if len(data) != 8 {
			return Arg{}, fmt.Errorf("ptb: decode u64: want 8 bytes, got %d", len(data))
		}
		return U64Arg(binary.LittleEndian.Uint64(data)), nil
	default:
		return Arg{}, fmt.Errorf("ptb: decode: unknown argument kind %d", kind)
	}
}

// JSONValue renders the argument the way the node's move-call builder
// expects it: u64 as a decimal string, byte vectors as number arrays,
// addresses and objects as their id strings.
func (a Arg) JSONValue() interface{} {
	switch a.Kind {
	case KindAddress, KindObject:
		return a.Text
	case KindBytes:
		out := make([]int, len(a.Bytes))
		for i, b := range a.Bytes {
			out[i] = int(b)
		}
		return out
	case KindU8, KindU16:
		return a.Uint
	case KindU64:
		return strconv.FormatUint(a.Uint, 10)
	default:
		return nil
	}
}

// String renders the argument for command lines.
func (a Arg) String() string {
	switch a.Kind {
	case KindAddress, KindObject:
		return a.Text
	case KindBytes:
		parts := make([]string, len(a.Bytes))
		for i, b := range a.Bytes {
			parts[i] = strconv.Itoa(int(b))
		}
		return "'[" + strings.Join(parts, ",") + "]'"
	default:
		return strconv.FormatUint(a.Uint, 10)
	}
}

func appendULEB128(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func readULEB128(data []byte) (uint64, int, error) {
	var (
		value uint64
		shift uint
	)
	for i, b := range data {
		if shift >= 63 && b > 1 {
			return 0, 0, fmt.Errorf("uleb128 overflow")
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("truncated uleb128")
}
