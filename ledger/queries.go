package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"onecoupon/coupon"
)

// DefaultHistoryLimit is the page size used by the activity screen.
const DefaultHistoryLimit = 20

// BalanceResult is the decoded suix_getBalance response.
type BalanceResult struct {
	CoinType        string
	CoinObjectCount uint64
	// TotalBalance is the raw MIST amount as returned by the node.
	TotalBalance string
}

// Balance fetches the total balance of coinType held by owner.
func (c *Client) Balance(ctx context.Context, owner, coinType string) (BalanceResult, error) {
	if !Enabled(owner) {
		return BalanceResult{}, ErrDisabled
	}
	params := []interface{}{owner}
	if strings.TrimSpace(coinType) != "" {
		params = append(params, coinType)
	}
	var raw struct {
		CoinType        string `json:"coinType"`
		CoinObjectCount Uint   `json:"coinObjectCount"`
		TotalBalance    string `json:"totalBalance"`
	}
	if err := c.read(ctx, "suix_getBalance", params, &raw); err != nil {
		return BalanceResult{}, err
	}
	return BalanceResult{
		CoinType:        raw.CoinType,
		CoinObjectCount: uint64(raw.CoinObjectCount),
		TotalBalance:    raw.TotalBalance,
	}, nil
}

// Object is an owned object with its Move content.
type Object struct {
	ID      string
	Version uint64
	Digest  string
	Type    string
	Owner   Owner
	// Content holds the raw Move struct fields.
	Content json.RawMessage
}

// OwnedObjectsResult is one page of suix_getOwnedObjects.
type OwnedObjectsResult struct {
	Objects     []Object
	NextCursor  string
	HasNextPage bool
}

type objectResponse struct {
	Data *struct {
		ObjectID string `json:"objectId"`
		Version  Uint   `json:"version"`
		Digest   string `json:"digest"`
		Type     string `json:"type"`
		Owner    Owner  `json:"owner"`
		Content  *struct {
			DataType string          `json:"dataType"`
			Type     string          `json:"type"`
			Fields   json.RawMessage `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// OwnedObjects lists objects of structType owned by owner. An empty cursor
// starts from the first page; limit 0 lets the node choose.
func (c *Client) OwnedObjects(ctx context.Context, owner, structType, cursor string, limit int) (OwnedObjectsResult, error) {
	if !Enabled(owner, structType) {
		return OwnedObjectsResult{}, ErrDisabled
	}
	query := map[string]interface{}{
		"filter":  map[string]string{"StructType": structType},
		"options": map[string]bool{"showContent": true, "showType": true, "showOwner": true},
	}
	var cursorParam interface{}
	if cursor != "" {
		cursorParam = cursor
	}
	var limitParam interface{}
	if limit > 0 {
		limitParam = limit
	}
	var raw struct {
		Data        []objectResponse `json:"data"`
		NextCursor  *string          `json:"nextCursor"`
		HasNextPage bool             `json:"hasNextPage"`
	}
	if err := c.read(ctx, "suix_getOwnedObjects", []interface{}{owner, query, cursorParam, limitParam}, &raw); err != nil {
		return OwnedObjectsResult{}, err
	}
	result := OwnedObjectsResult{HasNextPage: raw.HasNextPage}
	if raw.NextCursor != nil {
		result.NextCursor = *raw.NextCursor
	}
	for _, entry := range raw.Data {
		if entry.Data == nil {
			continue
		}
		obj := Object{
			ID:      entry.Data.ObjectID,
			Version: uint64(entry.Data.Version),
			Digest:  entry.Data.Digest,
			Type:    entry.Data.Type,
			Owner:   entry.Data.Owner,
		}
		if entry.Data.Content != nil {
			if obj.Type == "" {
				obj.Type = entry.Data.Content.Type
			}
			obj.Content = entry.Data.Content.Fields
		}
		result.Objects = append(result.Objects, obj)
	}
	return result, nil
}

type uidField struct {
	ID string `json:"id"`
}

type couponFields struct {
	ID          uidField   `json:"id"`
	Code        ByteVector `json:"code"`
	ValueBps    Uint       `json:"value_bps"`
	MaxUses     Uint       `json:"max_uses"`
	Used        Uint       `json:"used"`
	ExpiresAtMs Uint       `json:"expires_at_ms"`
	Merchant    string     `json:"merchant"`
}

type merchantFields struct {
	ID    uidField `json:"id"`
	Owner string   `json:"owner"`
}

// Coupons projects every object whose type is a Coupon struct. Objects with
// malformed content are skipped.
func (r OwnedObjectsResult) Coupons() []coupon.Coupon {
	out := make([]coupon.Coupon, 0, len(r.Objects))
	for _, obj := range r.Objects {
		if !isStruct(obj.Type, "Coupon") || len(obj.Content) == 0 {
			continue
		}
		var f couponFields
		if err := json.Unmarshal(obj.Content, &f); err != nil {
			continue
		}
		if f.ValueBps > 0xFFFF || f.MaxUses > 0xFF || f.Used > 0xFF {
			continue
		}
		id := obj.ID
		if id == "" {
			id = f.ID.ID
		}
		out = append(out, coupon.Coupon{
			ID:        id,
			Code:      []byte(f.Code),
			ValueBps:  uint16(f.ValueBps),
			MaxUses:   uint8(f.MaxUses),
			Used:      uint8(f.Used),
			ExpiresAt: unixMilli(uint64(f.ExpiresAtMs)),
			Merchant:  f.Merchant,
			Owner:     obj.Owner.Address,
		})
	}
	return out
}

// unixMilli converts a u64 millisecond timestamp, saturating values past
// math.MaxInt64 instead of wrapping into the past.
func unixMilli(ms uint64) time.Time {
	if ms > math.MaxInt64 {
		ms = math.MaxInt64
	}
	return time.UnixMilli(int64(ms))
}

// Merchants projects every object whose type is a Merchant struct.
func (r OwnedObjectsResult) Merchants() []coupon.Merchant {
	out := make([]coupon.Merchant, 0, len(r.Objects))
	for _, obj := range r.Objects {
		if !isStruct(obj.Type, "Merchant") {
			continue
		}
		var f merchantFields
		if len(obj.Content) > 0 {
			_ = json.Unmarshal(obj.Content, &f)
		}
		owner := f.Owner
		if owner == "" {
			owner = obj.Owner.Address
		}
		out = append(out, coupon.Merchant{ID: obj.ID, Owner: owner})
	}
	return out
}

func isStruct(typ, name string) bool {
	return strings.HasSuffix(typ, "::"+name) || strings.Contains(typ, "::"+name+"<")
}

// StructType returns package::module::name.
func StructType(packageID, module, name string) string {
	if packageID == "" || module == "" {
		return ""
	}
	return packageID + "::" + module + "::" + name
}

// TxOptions selects which sub-fields the node populates.
type TxOptions struct {
	ShowInput          bool `json:"showInput"`
	ShowEffects        bool `json:"showEffects"`
	ShowEvents         bool `json:"showEvents"`
	ShowObjectChanges  bool `json:"showObjectChanges"`
	ShowBalanceChanges bool `json:"showBalanceChanges"`
}

// FullTxOptions requests every sub-field.
func FullTxOptions() TxOptions {
	return TxOptions{
		ShowInput:          true,
		ShowEffects:        true,
		ShowEvents:         true,
		ShowObjectChanges:  true,
		ShowBalanceChanges: true,
	}
}

// HistoryQuery selects transactions sent from an address. The zero Options
// requests every sub-field; results are newest first unless Ascending.
type HistoryQuery struct {
	FromAddress string
	Cursor      string
	Limit       int
	Ascending   bool
	Options     TxOptions
}

// HistoryResult is one page of suix_queryTransactionBlocks.
type HistoryResult struct {
	Transactions []Transaction
	NextCursor   string
	HasNextPage  bool
}

// Transaction is a decoded transaction block.
type Transaction struct {
	Digest         string
	Timestamp      time.Time
	Status         string
	Error          string
	Gas            GasSummary
	Commands       []Command
	BalanceChanges []BalanceChange
	Events         []Event
	ObjectChanges  []ObjectChange
}

// Succeeded reports whether the effects status is success.
func (t Transaction) Succeeded() bool {
	return t.Status == StatusSuccess
}

// Functions returns the MoveCall function names in command order.
func (t Transaction) Functions() []string {
	var out []string
	for _, cmd := range t.Commands {
		if cmd.MoveCall != nil {
			out = append(out, cmd.MoveCall.Function)
		}
	}
	return out
}

// Execution statuses reported in transaction effects.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// GasSummary is the gas cost breakdown in MIST.
type GasSummary struct {
	ComputationCost         uint64
	StorageCost             uint64
	StorageRebate           uint64
	NonRefundableStorageFee uint64
}

// Total returns computation plus storage minus rebate, floored at zero.
func (g GasSummary) Total() uint64 {
	spent := g.ComputationCost + g.StorageCost
	if g.StorageRebate >= spent {
		return 0
	}
	return spent - g.StorageRebate
}

// CommandKind discriminates programmable transaction commands.
type CommandKind string

const (
	CommandMoveCall        CommandKind = "MoveCall"
	CommandTransferObjects CommandKind = "TransferObjects"
	CommandSplitCoins      CommandKind = "SplitCoins"
	CommandMergeCoins      CommandKind = "MergeCoins"
	CommandOther           CommandKind = "Other"
)

// MoveCallCommand identifies the invoked function.
type MoveCallCommand struct {
	Package  string `json:"package"`
	Module   string `json:"module"`
	Function string `json:"function"`
}

// Command is one programmable transaction command.
type Command struct {
	Kind     CommandKind
	MoveCall *MoveCallCommand
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Unit variants are rendered as bare strings.
		*c = Command{Kind: CommandOther}
		return nil
	}
	if mc, ok := raw[string(CommandMoveCall)]; ok {
		var call MoveCallCommand
		if err := json.Unmarshal(mc, &call); err != nil {
			return fmt.Errorf("ledger: invalid MoveCall command: %w", err)
		}
		*c = Command{Kind: CommandMoveCall, MoveCall: &call}
		return nil
	}
	for _, kind := range []CommandKind{CommandTransferObjects, CommandSplitCoins, CommandMergeCoins} {
		if _, ok := raw[string(kind)]; ok {
			*c = Command{Kind: kind}
			return nil
		}
	}
	*c = Command{Kind: CommandOther}
	return nil
}

// BalanceChange is a signed MIST delta for one owner and coin type.
type BalanceChange struct {
	Owner    Owner  `json:"owner"`
	CoinType string `json:"coinType"`
	Amount   Int    `json:"amount"`
}

// Event is an emitted Move event.
type Event struct {
	Type   string `json:"type"`
	Sender string `json:"sender"`
}

// ObjectChange records a created, mutated, transferred or deleted object.
type ObjectChange struct {
	Type       string `json:"type"`
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
}

type effectsResponse struct {
	Status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	} `json:"status"`
	GasUsed struct {
		ComputationCost         Uint `json:"computationCost"`
		StorageCost             Uint `json:"storageCost"`
		StorageRebate           Uint `json:"storageRebate"`
		NonRefundableStorageFee Uint `json:"nonRefundableStorageFee"`
	} `json:"gasUsed"`
}

type transactionResponse struct {
	Digest      string `json:"digest"`
	TimestampMs Uint   `json:"timestampMs"`
	Transaction *struct {
		Data struct {
			Transaction struct {
				Kind         string    `json:"kind"`
				Transactions []Command `json:"transactions"`
				Commands     []Command `json:"commands"`
			} `json:"transaction"`
		} `json:"data"`
	} `json:"transaction"`
	Effects        *effectsResponse `json:"effects"`
	Events         []Event          `json:"events"`
	ObjectChanges  []ObjectChange   `json:"objectChanges"`
	BalanceChanges []BalanceChange  `json:"balanceChanges"`
}

func (r transactionResponse) decode() Transaction {
	tx := Transaction{
		Digest:         r.Digest,
		Events:         r.Events,
		ObjectChanges:  r.ObjectChanges,
		BalanceChanges: r.BalanceChanges,
	}
	if r.TimestampMs > 0 {
		tx.Timestamp = unixMilli(uint64(r.TimestampMs))
	}
	if r.Transaction != nil && r.Transaction.Data.Transaction.Kind == "ProgrammableTransaction" {
		inner := r.Transaction.Data.Transaction
		tx.Commands = append(tx.Commands, inner.Transactions...)
		tx.Commands = append(tx.Commands, inner.Commands...)
	}
	if r.Effects != nil {
		tx.Status = r.Effects.Status.Status
		tx.Error = r.Effects.Status.Error
		tx.Gas = GasSummary{
			ComputationCost:         uint64(r.Effects.GasUsed.ComputationCost),
			StorageCost:             uint64(r.Effects.GasUsed.StorageCost),
			StorageRebate:           uint64(r.Effects.GasUsed.StorageRebate),
			NonRefundableStorageFee: uint64(r.Effects.GasUsed.NonRefundableStorageFee),
		}
	}
	return tx
}

// TransactionHistory lists transactions sent from q.FromAddress.
func (c *Client) TransactionHistory(ctx context.Context, q HistoryQuery) (HistoryResult, error) {
	if !Enabled(q.FromAddress) {
		return HistoryResult{}, ErrDisabled
	}
	opts := q.Options
	if opts == (TxOptions{}) {
		opts = FullTxOptions()
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var cursor interface{}
	if q.Cursor != "" {
		cursor = q.Cursor
	}
	query := map[string]interface{}{
		"filter":  map[string]string{"FromAddress": q.FromAddress},
		"options": opts,
	}
	var raw struct {
		Data        []transactionResponse `json:"data"`
		NextCursor  *string               `json:"nextCursor"`
		HasNextPage bool                  `json:"hasNextPage"`
	}
	if err := c.read(ctx, "suix_queryTransactionBlocks", []interface{}{query, cursor, limit, !q.Ascending}, &raw); err != nil {
		return HistoryResult{}, err
	}
	result := HistoryResult{HasNextPage: raw.HasNextPage}
	if raw.NextCursor != nil {
		result.NextCursor = *raw.NextCursor
	}
	result.Transactions = make([]Transaction, 0, len(raw.Data))
	for _, entry := range raw.Data {
		result.Transactions = append(result.Transactions, entry.decode())
	}
	return result, nil
}

// ChainIdentifier returns the node's chain identifier.
func (c *Client) ChainIdentifier(ctx context.Context) (string, error) {
	var id string
	if err := c.read(ctx, "sui_getChainIdentifier", nil, &id); err != nil {
		return "", err
	}
	return id, nil
}
