package coupon

import (
	"strconv"
	"time"
	"unicode/utf8"
)

// BasisPointsScale is the basis point value representing 100%.
const BasisPointsScale = 10_000

// ConnectionStatus captures whether a wallet account is attached.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connected
)

func (s ConnectionStatus) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Account is the wallet account the client acts for. It lives only for the
// duration of a connection.
type Account struct {
	Address string
	Status  ConnectionStatus
}

// Connected reports whether the account is attached and addressable.
func (a Account) Connected() bool {
	return a.Status == Connected && a.Address != ""
}

// Merchant is the on-ledger authorization object. Owning one is the sole
// signal that an account may issue coupons.
type Merchant struct {
	ID    string
	Owner string
}

// Status is the derived lifecycle label of a coupon.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusUsed    Status = "used"
)

// Label returns the badge text shown next to a coupon.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusExpired:
		return "Expired"
	case StatusUsed:
		return "Used Up"
	default:
		return "Unknown"
	}
}

// Coupon is the client projection of an on-ledger coupon object.
type Coupon struct {
	ID        string
	Code      []byte
	ValueBps  uint16
	MaxUses   uint8
	Used      uint8
	ExpiresAt time.Time
	Merchant  string
	Owner     string
}

// CodeText decodes the coupon code as UTF-8. Invalid sequences are replaced
// rather than rejected so a malformed on-ledger code still renders.
func (c Coupon) CodeText() string {
	if utf8.Valid(c.Code) {
		return string(c.Code)
	}
	return string([]rune(string(c.Code)))
}

// Redeemable reports whether the coupon can still be used at now.
func (c Coupon) Redeemable(now time.Time) bool {
	return now.Before(c.ExpiresAt) && c.Used < c.MaxUses
}

// Status derives the coupon status at now. Expiry wins over exhaustion.
func (c Coupon) Status(now time.Time) Status {
	if !now.Before(c.ExpiresAt) {
		return StatusExpired
	}
	if c.Used >= c.MaxUses {
		return StatusUsed
	}
	return StatusActive
}

// UsesLabel renders the usage counter as "used/max".
func (c Coupon) UsesLabel() string {
	return strconv.Itoa(int(c.Used)) + "/" + strconv.Itoa(int(c.MaxUses))
}

// PercentLabel renders basis points as a percentage with two decimals.
func PercentLabel(bps uint16) string {
	return strconv.FormatFloat(float64(bps)/100, 'f', 2, 64) + "%"
}

// Discount returns the discount granted on orderTotal at bps.
func Discount(orderTotal float64, bps uint16) float64 {
	return orderTotal * float64(bps) / BasisPointsScale
}

// FinalTotal returns orderTotal minus the bps discount.
func FinalTotal(orderTotal float64, bps uint16) float64 {
	return orderTotal - Discount(orderTotal, bps)
}

// FormatOCT3 renders an OCT amount with three decimals.
func FormatOCT3(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 3, 64)
}
