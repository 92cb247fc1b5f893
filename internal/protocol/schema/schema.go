package schema

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Union identifies one tagged union on the wire.
type Union uint8

const (
	UnionRequest Union = iota + 1
	UnionEvent
	UnionFTokenAction
	UnionFTLogicAction
	UnionFTokenEvent
	UnionStoreAction
	UnionStoreEvent
)

func (u Union) String() string {
	switch u {
	case UnionRequest:
		return "request"
	case UnionEvent:
		return "event"
	case UnionFTokenAction:
		return "ftoken.action"
	case UnionFTLogicAction:
		return "ftoken.logic"
	case UnionFTokenEvent:
		return "ftoken.event"
	case UnionStoreAction:
		return "store.action"
	case UnionStoreEvent:
		return "store.event"
	default:
		return fmt.Sprintf("union(%d)", uint8(u))
	}
}

// Request discriminants.
const (
	ReqName uint8 = iota
	ReqAge
	ReqFeed
	ReqPlay
	ReqSleep
	ReqTransfer
	ReqApprove
	ReqRevokeApproval
	ReqApproveTokens
	ReqSetFTokenContract
	ReqBuyAttribute
	ReqCheckState
	ReqReserveGas
	ReqOwner
)

// Event discriminants.
const (
	EvtName uint8 = iota
	EvtAge
	EvtFed
	EvtEntertained
	EvtSlept
	EvtTransfer
	EvtApprove
	EvtRevokeApproval
	EvtApproveTokens
	EvtApprovalError
	EvtSetFTokenContract
	EvtAttributeBought
	EvtCompletePrevPurchase
	EvtErrorDuringPurchase
	EvtFeedMe
	EvtPlayWithMe
	EvtWantToSleep
	EvtMakeReservation
	EvtGasReserved
	EvtOwner
)

// Collaborator discriminants.
const (
	FTokenMessage uint8 = 0

	FTLogicMint     uint8 = 0
	FTLogicBurn     uint8 = 1
	FTLogicTransfer uint8 = 2
	FTLogicApprove  uint8 = 3

	FTokenOk  uint8 = 0
	FTokenErr uint8 = 1

	StoreCreateAttribute uint8 = 0
	StoreBuyAttribute    uint8 = 1

	StoreAttributeCreated uint8 = 0
	StoreAttributeSold    uint8 = 1
	StoreCompletePrevTx   uint8 = 2
)

// FieldType is the wire shape of one variant field.
type FieldType uint8

const (
	FieldID FieldType = iota + 1
	FieldU32
	FieldU64
	FieldU128
	FieldBool
	FieldText
	FieldBytes
)

// minSize is the smallest encoded size of one field.
func (t FieldType) minSize() int {
	switch t {
	case FieldID:
		return 32
	case FieldU32:
		return 4
	case FieldU64:
		return 8
	case FieldU128:
		return 16
	case FieldBool, FieldText, FieldBytes:
		return 1
	default:
		return 0
	}
}

// Variant declares one union member: its name and fields in declared order.
type Variant struct {
	Name   string
	Fields []FieldType
}

type ValidationError struct {
	Union        Union
	Discriminant uint8
	Reason       string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: %s discriminant=%d: %s", e.Union, e.Discriminant, e.Reason)
}

var variants = map[Union][]Variant{
	UnionRequest: {
		ReqName:              {Name: "Name"},
		ReqAge:               {Name: "Age"},
		ReqFeed:              {Name: "Feed"},
		ReqPlay:              {Name: "Play"},
		ReqSleep:             {Name: "Sleep"},
		ReqTransfer:          {Name: "Transfer", Fields: []FieldType{FieldID}},
		ReqApprove:           {Name: "Approve", Fields: []FieldType{FieldID}},
		ReqRevokeApproval:    {Name: "RevokeApproval"},
		ReqApproveTokens:     {Name: "ApproveTokens", Fields: []FieldType{FieldID, FieldU128}},
		ReqSetFTokenContract: {Name: "SetFTokenContract", Fields: []FieldType{FieldID}},
		ReqBuyAttribute:      {Name: "BuyAttribute", Fields: []FieldType{FieldID, FieldU32}},
		ReqCheckState:        {Name: "CheckState"},
		ReqReserveGas:        {Name: "ReserveGas", Fields: []FieldType{FieldU64, FieldU32}},
		ReqOwner:             {Name: "Owner"},
	},
	UnionEvent: {
		EvtName:                 {Name: "Name", Fields: []FieldType{FieldText}},
		EvtAge:                  {Name: "Age", Fields: []FieldType{FieldU64}},
		EvtFed:                  {Name: "Fed"},
		EvtEntertained:          {Name: "Entertained"},
		EvtSlept:                {Name: "Slept"},
		EvtTransfer:             {Name: "Transfer", Fields: []FieldType{FieldID}},
		EvtApprove:              {Name: "Approve", Fields: []FieldType{FieldID}},
		EvtRevokeApproval:       {Name: "RevokeApproval"},
		EvtApproveTokens:        {Name: "ApproveTokens", Fields: []FieldType{FieldID, FieldU128}},
		EvtApprovalError:        {Name: "ApprovalError"},
		EvtSetFTokenContract:    {Name: "SetFTokenContract"},
		EvtAttributeBought:      {Name: "AttributeBought", Fields: []FieldType{FieldU32}},
		EvtCompletePrevPurchase: {Name: "CompletePrevPurchase", Fields: []FieldType{FieldU32}},
		EvtErrorDuringPurchase:  {Name: "ErrorDuringPurchase"},
		EvtFeedMe:               {Name: "FeedMe"},
		EvtPlayWithMe:           {Name: "PlayWithMe"},
		EvtWantToSleep:          {Name: "WantToSleep"},
		EvtMakeReservation:      {Name: "MakeReservation"},
		EvtGasReserved:          {Name: "GasReserved"},
		EvtOwner:                {Name: "Owner", Fields: []FieldType{FieldID}},
	},
	UnionFTokenAction: {
		FTokenMessage: {Name: "Message", Fields: []FieldType{FieldU64, FieldBytes}},
	},
	UnionFTLogicAction: {
		FTLogicMint:     {Name: "Mint", Fields: []FieldType{FieldID, FieldU128}},
		FTLogicBurn:     {Name: "Burn", Fields: []FieldType{FieldID, FieldU128}},
		FTLogicTransfer: {Name: "Transfer", Fields: []FieldType{FieldID, FieldID, FieldU128}},
		FTLogicApprove:  {Name: "Approve", Fields: []FieldType{FieldID, FieldU128}},
	},
	UnionFTokenEvent: {
		FTokenOk:  {Name: "Ok"},
		FTokenErr: {Name: "Err"},
	},
	UnionStoreAction: {
		StoreCreateAttribute: {Name: "CreateAttribute", Fields: []FieldType{FieldU32, FieldU128}},
		StoreBuyAttribute:    {Name: "BuyAttribute", Fields: []FieldType{FieldU32}},
	},
	UnionStoreEvent: {
		StoreAttributeCreated: {Name: "AttributeCreated", Fields: []FieldType{FieldU32}},
		StoreAttributeSold:    {Name: "AttributeSold", Fields: []FieldType{FieldBool}},
		StoreCompletePrevTx:   {Name: "CompletePrevTx", Fields: []FieldType{FieldU32}},
	},
}

// Lookup returns the variant declared for a discriminant.
func Lookup(union Union, discriminant uint8) (Variant, bool) {
	list, ok := variants[union]
	if !ok || int(discriminant) >= len(list) {
		return Variant{}, false
	}
	return list[discriminant], true
}

// Name returns the variant name or a placeholder for unknown discriminants.
func Name(union Union, discriminant uint8) string {
	v, ok := Lookup(union, discriminant)
	if !ok {
		return fmt.Sprintf("unknown(%d)", discriminant)
	}
	return v.Name
}

// NameOf labels an encoded payload by its leading discriminant.
func NameOf(union Union, payload []byte) string {
	if len(payload) == 0 {
		return "empty"
	}
	return Name(union, payload[0])
}

// Validate checks the leading discriminant and the minimum body size of payload.
// Exact decoding (text, trailing bytes) is left to the typed decoders.
func Validate(union Union, payload []byte) error {
	if len(payload) == 0 {
		return ValidationError{Union: union, Reason: "empty payload"}
	}
	disc := payload[0]
	v, ok := Lookup(union, disc)
	if !ok {
		log.Debug().Msgf("schema.Validate unknown union=%s discriminant=%d", union, disc)
		return ValidationError{Union: union, Discriminant: disc, Reason: "unknown discriminant"}
	}
	min := 0
	for _, f := range v.Fields {
		min += f.minSize()
	}
	if len(payload)-1 < min {
		log.Debug().Msgf(
			"schema.Validate short body union=%s variant=%s got=%d want>=%d",
			union,
			v.Name,
			len(payload)-1,
			min,
		)
		return ValidationError{Union: union, Discriminant: disc, Reason: "short body"}
	}
	return nil
}
