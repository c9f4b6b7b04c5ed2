// Package statutory holds the Moroccan tax and social contribution tables
// and the payroll arithmetic built on them. Pure data and pure functions.
package statutory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type TvaRate string

const (
	TVA_0  TvaRate = "TVA_0"
	TVA_7  TvaRate = "TVA_7"
	TVA_10 TvaRate = "TVA_10"
	TVA_14 TvaRate = "TVA_14"
	TVA_20 TvaRate = "TVA_20"
)

var tvaFractions = map[TvaRate]decimal.Decimal{
	TVA_0:  decimal.Zero,
	TVA_7:  decimal.RequireFromString("0.07"),
	TVA_10: decimal.RequireFromString("0.10"),
	TVA_14: decimal.RequireFromString("0.14"),
	TVA_20: decimal.RequireFromString("0.20"),
}

func (r TvaRate) IsValid() bool {
	_, ok := tvaFractions[r]
	return ok
}

// Fraction returns the multiplier for r, e.g. 0.20 for TVA_20.
func (r TvaRate) Fraction() (decimal.Decimal, error) {
	f, ok := tvaFractions[r]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown TVA rate %q", r)
	}
	return f, nil
}

// ResolveTvaRate picks the line rate, else the invoice default, else TVA_0.
func ResolveTvaRate(lineRate *TvaRate, invoiceDefault *TvaRate) TvaRate {
	if lineRate != nil && *lineRate != "" {
		return *lineRate
	}
	if invoiceDefault != nil && *invoiceDefault != "" {
		return *invoiceDefault
	}
	return TVA_0
}

// CNSS and AMO rates (fractions of the monthly base).
var (
	CnssCeiling      = decimal.NewFromInt(6000)
	CnssEmployeeRate = decimal.RequireFromString("0.0448")
	CnssEmployerRate = decimal.RequireFromString("0.0898")
	AmoEmployeeRate  = decimal.RequireFromString("0.0226")
	AmoEmployerRate  = decimal.RequireFromString("0.0411")
)

// Payroll constants.
var (
	HoursPerDay        = decimal.NewFromInt(8)
	OvertimeMultiplier = decimal.RequireFromString("1.25")
	FraisProRate       = decimal.RequireFromString("0.20")
	FraisProAnnualCap  = decimal.NewFromInt(30000)
	MonthsPerYear      = decimal.NewFromInt(12)
)

// IrBracket is one band of the annual progressive income tax.
// Max nil means unbounded.
type IrBracket struct {
	Min       decimal.Decimal
	Max       *decimal.Decimal
	Rate      decimal.Decimal
	Deduction decimal.Decimal
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// IrBrackets in MAD/year.
var IrBrackets = []IrBracket{
	{Min: decimal.NewFromInt(0), Max: bound(30000), Rate: decimal.Zero, Deduction: decimal.Zero},
	{Min: decimal.NewFromInt(30001), Max: bound(50000), Rate: decimal.RequireFromString("0.10"), Deduction: decimal.NewFromInt(3000)},
	{Min: decimal.NewFromInt(50001), Max: bound(60000), Rate: decimal.RequireFromString("0.20"), Deduction: decimal.NewFromInt(8000)},
	{Min: decimal.NewFromInt(60001), Max: bound(80000), Rate: decimal.RequireFromString("0.30"), Deduction: decimal.NewFromInt(14000)},
	{Min: decimal.NewFromInt(80001), Max: bound(180000), Rate: decimal.RequireFromString("0.34"), Deduction: decimal.NewFromInt(17200)},
	{Min: decimal.NewFromInt(180001), Max: nil, Rate: decimal.RequireFromString("0.38"), Deduction: decimal.NewFromInt(24400)},
}

// LookupIrBracket returns the first bracket whose upper bound is not below
// annualTaxable. The published bands leave one-dirham gaps (30000..30001);
// a fractional income inside a gap falls into the next band.
func LookupIrBracket(annualTaxable decimal.Decimal) IrBracket {
	for _, b := range IrBrackets {
		if b.Max == nil || annualTaxable.LessThanOrEqual(*b.Max) {
			return b
		}
	}
	return IrBrackets[len(IrBrackets)-1]
}
