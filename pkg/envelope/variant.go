package envelope

import "fmt"

// Variant selects how synthetic key and iv terms wrap a payload when a
// checksum is computed. Each one is tied to a specific gateway API.
type Variant string

const (
	// VariantDefault is CheckCode for the credit card API and CheckValue for QueryTradeInfo.
	VariantDefault Variant = "default"
	// VariantQueryTradeInfo is CheckValue for the trade status query API.
	VariantQueryTradeInfo Variant = "query_trade_info"
	// VariantMPGGateway is CheckValue for MPG gateway versions before 1.2.
	VariantMPGGateway Variant = "mpg_gateway"
	// VariantWinningRequest hashes an already encrypted invoice lottery query.
	VariantWinningRequest Variant = "winning_request"
	// VariantInvoiceNumber is CheckCode for invoice number management.
	VariantInvoiceNumber Variant = "invoice_number"
)

// ParseVariant converts a token into a Variant. The empty token is rejected;
// callers must always say which API they are talking to.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantDefault, VariantQueryTradeInfo, VariantMPGGateway, VariantWinningRequest, VariantInvoiceNumber:
		return v, nil
	}
	return "", newError("parse_variant", ErrInvalidVariant, fmt.Errorf("unknown variant %q", s))
}

type secret int

const (
	hashKey secret = iota
	hashIV
)

type term struct {
	name   string
	secret secret
}

// layout is the canonical form of one variant within a checksum family.
type layout struct {
	opaque bool
	lead   term
	trail  term
}

var checkCodeLayouts = map[Variant]layout{
	VariantDefault:        {lead: term{"HashIV", hashIV}, trail: term{"HashKey", hashKey}},
	VariantInvoiceNumber:  {lead: term{"HashIv", hashIV}, trail: term{"HashKey", hashKey}},
	VariantWinningRequest: {opaque: true, lead: term{"HashIV", hashIV}, trail: term{"HashKey", hashKey}},
}

var checkValueLayouts = map[Variant]layout{
	VariantDefault:        {lead: term{"IV", hashIV}, trail: term{"Key", hashKey}},
	VariantQueryTradeInfo: {lead: term{"IV", hashIV}, trail: term{"Key", hashKey}},
	VariantMPGGateway:     {lead: term{"HashKey", hashKey}, trail: term{"HashIV", hashIV}},
	VariantWinningRequest: {opaque: true, lead: term{"HashKey", hashKey}, trail: term{"HashIV", hashIV}},
}
