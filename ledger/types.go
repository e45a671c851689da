package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Uint is a u64 the node renders either as a JSON number or as a decimal
// string.
type Uint uint64

func (u *Uint) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || len(trimmed) == 0 {
		*u = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		trimmed = []byte(strings.TrimSpace(s))
		if len(trimmed) == 0 {
			*u = 0
			return nil
		}
	}
	v, err := strconv.ParseUint(string(trimmed), 10, 64)
	if err != nil {
		return fmt.Errorf("ledger: invalid unsigned value %q: %w", string(trimmed), err)
	}
	*u = Uint(v)
	return nil
}

// Int is a signed amount rendered as a decimal string.
type Int int64

func (i *Int) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || len(trimmed) == 0 {
		*i = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		trimmed = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return fmt.Errorf("ledger: invalid integer %q: %w", string(trimmed), err)
	}
	*i = Int(v)
	return nil
}

// ByteVector is a vector<u8> field. The node renders it as an array of
// numbers; a plain string is accepted as its UTF-8 bytes.
type ByteVector []byte

func (b *ByteVector) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*b = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*b = []byte(s)
		return nil
	}
	var nums []uint8
	if err := json.Unmarshal(trimmed, &nums); err != nil {
		return fmt.Errorf("ledger: invalid byte vector: %w", err)
	}
	*b = nums
	return nil
}

// OwnerKind discriminates object ownership.
type OwnerKind string

const (
	OwnerAddress   OwnerKind = "AddressOwner"
	OwnerObject    OwnerKind = "ObjectOwner"
	OwnerShared    OwnerKind = "Shared"
	OwnerImmutable OwnerKind = "Immutable"
)

// Owner is the ownership of an object or the subject of a balance change.
type Owner struct {
	Kind    OwnerKind
	Address string
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*o = Owner{Kind: OwnerKind(s)}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("ledger: invalid owner: %w", err)
	}
	for _, kind := range []OwnerKind{OwnerAddress, OwnerObject} {
		if v, ok := raw[string(kind)]; ok {
			var addr string
			if err := json.Unmarshal(v, &addr); err != nil {
				return fmt.Errorf("ledger: invalid %s: %w", kind, err)
			}
			*o = Owner{Kind: kind, Address: addr}
			return nil
		}
	}
	if _, ok := raw[string(OwnerShared)]; ok {
		*o = Owner{Kind: OwnerShared}
		return nil
	}
	*o = Owner{}
	return nil
}
