package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Split carries the GST percentage components applied to one order line.
type Split struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
	// ReviewRequired flags a split computed without a usable region pair.
	// The order still carries the conservative inter-region rate.
	ReviewRequired bool
}

// RateSum returns the combined percentage applied to the taxable base.
func (s Split) RateSum() decimal.Decimal {
	return s.CGST.Add(s.SGST).Add(s.IGST)
}

// Resolver decides the GST split from the buyer and seller regions.
type Resolver struct {
	intraCGST decimal.Decimal
	intraSGST decimal.Decimal
	interIGST decimal.Decimal
}

// NewResolver builds a resolver with the given percentage rates.
func NewResolver(intraCGST, intraSGST, interIGST decimal.Decimal) *Resolver {
	return &Resolver{
		intraCGST: intraCGST,
		intraSGST: intraSGST,
		interIGST: interIGST,
	}
}

// NewDefaultResolver returns the resolver with the statutory rates
// (CGST 1.5%, SGST 1.5% intra-region; IGST 3% inter-region).
func NewDefaultResolver() *Resolver {
	return NewResolver(
		decimal.NewFromFloat(1.5),
		decimal.NewFromFloat(1.5),
		decimal.NewFromInt(3),
	)
}

// Resolve maps a buyer/seller region pair onto a Split. A blank region on
// either side falls back to the inter-region rate and flags the split for
// review rather than silently taxing at zero.
func (r *Resolver) Resolve(buyerRegion, sellerRegion string) Split {
	buyer := normalizeRegion(buyerRegion)
	seller := normalizeRegion(sellerRegion)

	if buyer == "" || seller == "" {
		return Split{
			IGST:           r.interIGST,
			CGST:           decimal.Zero,
			SGST:           decimal.Zero,
			ReviewRequired: true,
		}
	}

	if buyer == seller {
		return Split{
			CGST: r.intraCGST,
			SGST: r.intraSGST,
			IGST: decimal.Zero,
		}
	}

	return Split{
		CGST: decimal.Zero,
		SGST: decimal.Zero,
		IGST: r.interIGST,
	}
}

func normalizeRegion(region string) string {
	return strings.ToLower(strings.TrimSpace(region))
}
