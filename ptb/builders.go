// Package ptb assembles move-call descriptors for the coupon contract. The
// builders are pure: no network access, no business rules beyond the numeric
// ranges the contract's argument types can carry.
package ptb

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClockObjectID is the well-known shared clock object.
const ClockObjectID = "0x6"

const (
	MinValueBps = 1
	MaxValueBps = 10_000
	MinMaxUses  = 1
	MaxMaxUses  = 255
)

// ErrMissingPackage is returned when no contract package is configured.
// Callers must surface it before collecting any other input.
var ErrMissingPackage = errors.New("ptb: contract package id not configured")

// ValidationError reports a field rejected locally before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ptb: invalid %s: %s", e.Field, e.Reason)
}

// Action names the contract entry point a descriptor targets.
type Action string

const (
	IssueCoupon    Action = "IssueCoupon"
	RedeemCoupon   Action = "RedeemCoupon"
	TransferCoupon Action = "TransferCoupon"
	CreateMerchant Action = "CreateMerchant"
)

// Function returns the contract function name for the action.
func (a Action) Function() string {
	switch a {
	case IssueCoupon:
		return "issue"
	case RedeemCoupon:
		return "redeem"
	case TransferCoupon:
		return "transfer_to"
	case CreateMerchant:
		return "register_merchant"
	default:
		return ""
	}
}

// Config locates the coupon contract.
type Config struct {
	PackageID string
	Module    string
}

// CallDescriptor is a fully specified, not yet submitted call.
type CallDescriptor struct {
	Action    Action
	Package   string
	Module    string
	Function  string
	Arguments []Arg
}

// Target returns package::module::function.
func (d *CallDescriptor) Target() string {
	return d.Package + "::" + d.Module + "::" + d.Function
}

// EncodeArguments returns the BCS encoding of every argument in order.
func (d *CallDescriptor) EncodeArguments() ([][]byte, error) {
	out := make([][]byte, 0, len(d.Arguments))
	for i, arg := range d.Arguments {
		encoded, err := arg.Encode()
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, encoded)
	}
	return out, nil
}

// JSONArguments renders every argument for the node's move-call builder.
func (d *CallDescriptor) JSONArguments() []interface{} {
	out := make([]interface{}, len(d.Arguments))
	for i, arg := range d.Arguments {
		out[i] = arg.JSONValue()
	}
	return out
}

// Fields is implemented by the per-action input records.
type Fields interface {
	Action() Action
	arguments() ([]Arg, error)
}

// IssueFields are the inputs of IssueCoupon. ValueBps and MaxUses are plain
// ints so out-of-range form input is caught here rather than wrapped.
type IssueFields struct {
	MerchantID string
	Recipient  string
	Code       string
	ValueBps   int
	MaxUses    int
	ExpiresAt  time.Time
}

func (IssueFields) Action() Action { return IssueCoupon }

func (f IssueFields) arguments() ([]Arg, error) {
	merchant := strings.TrimSpace(f.MerchantID)
	if merchant == "" {
		return nil, &ValidationError{Field: "merchant", Reason: "merchant object id required"}
	}
	recipient := strings.TrimSpace(f.Recipient)
	if recipient == "" {
		return nil, &ValidationError{Field: "recipient", Reason: "recipient address required"}
	}
	if f.Code == "" {
		return nil, &ValidationError{Field: "code", Reason: "coupon code required"}
	}
	if f.ValueBps < MinValueBps || f.ValueBps > MaxValueBps {
		return nil, &ValidationError{Field: "value_bps", Reason: fmt.Sprintf("%d outside [%d,%d]", f.ValueBps, MinValueBps, MaxValueBps)}
	}
	if f.MaxUses < MinMaxUses || f.MaxUses > MaxMaxUses {
		return nil, &ValidationError{Field: "max_uses", Reason: fmt.Sprintf("%d outside [%d,%d]", f.MaxUses, MinMaxUses, MaxMaxUses)}
	}
	if f.ExpiresAt.IsZero() {
		return nil, &ValidationError{Field: "expires_at", Reason: "expiry required"}
	}
	expiresAtMs := f.ExpiresAt.UnixMilli()
	if expiresAtMs < 0 {
		return nil, &ValidationError{Field: "expires_at", Reason: "expiry before epoch"}
	}
	return []Arg{
		ObjectArg(merchant),
		AddressArg(recipient),
		BytesArg([]byte(f.Code)),
		U16Arg(uint16(f.ValueBps)),
		U8Arg(uint8(f.MaxUses)),
		U64Arg(uint64(expiresAtMs)),
		ObjectArg(ClockObjectID),
	}, nil
}

// RedeemFields are the inputs of RedeemCoupon. OrderTotal is in MIST.
type RedeemFields struct {
	CouponID   string
	OrderTotal uint64
}

func (RedeemFields) Action() Action { return RedeemCoupon }

func (f RedeemFields) arguments() ([]Arg, error) {
	id := strings.TrimSpace(f.CouponID)
	if id == "" {
		return nil, &ValidationError{Field: "coupon", Reason: "coupon object id required"}
	}
	return []Arg{ObjectArg(id), U64Arg(f.OrderTotal), ObjectArg(ClockObjectID)}, nil
}

// TransferFields are the inputs of TransferCoupon.
type TransferFields struct {
	CouponID string
	NewOwner string
}

func (TransferFields) Action() Action { return TransferCoupon }

func (f TransferFields) arguments() ([]Arg, error) {
	id := strings.TrimSpace(f.CouponID)
	if id == "" {
		return nil, &ValidationError{Field: "coupon", Reason: "coupon object id required"}
	}
	owner := strings.TrimSpace(f.NewOwner)
	if owner == "" {
		return nil, &ValidationError{Field: "new_owner", Reason: "new owner address required"}
	}
	return []Arg{ObjectArg(id), AddressArg(owner)}, nil
}

// MerchantFields are the inputs of CreateMerchant.
type MerchantFields struct {
	Owner string
}

func (MerchantFields) Action() Action { return CreateMerchant }

func (f MerchantFields) arguments() ([]Arg, error) {
	owner := strings.TrimSpace(f.Owner)
	if owner == "" {
		return nil, &ValidationError{Field: "owner", Reason: "merchant owner address required"}
	}
	return []Arg{AddressArg(owner)}, nil
}

// Build produces the call descriptor for fields under cfg.
func Build(cfg Config, fields Fields) (*CallDescriptor, error) {
	pkg := strings.TrimSpace(cfg.PackageID)
	if pkg == "" {
		return nil, ErrMissingPackage
	}
	module := strings.TrimSpace(cfg.Module)
	if module == "" {
		return nil, errors.New("ptb: contract module name not configured")
	}
	if fields == nil {
		return nil, errors.New("ptb: fields required")
	}
	args, err := fields.arguments()
	if err != nil {
		return nil, err
	}
	action := fields.Action()
	return &CallDescriptor{
		Action:    action,
		Package:   pkg,
		Module:    module,
		Function:  action.Function(),
		Arguments: args,
	}, nil
}
