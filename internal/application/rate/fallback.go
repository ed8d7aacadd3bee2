package rate

import (
	"github.com/currency-exchange-api/internal/domain"
	"github.com/shopspring/decimal"
)

// fallbackUSD is the static table used when the oracle is unreachable.
// Every other pair is crossed through USD.
var fallbackUSD = map[domain.CurrencyCode]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.91"),
	"GBP": decimal.RequireFromString("0.78"),
	"JPY": decimal.RequireFromString("155"),
	"CNY": decimal.RequireFromString("7.25"),
	"KRW": decimal.RequireFromString("1340"),
	"MXN": decimal.RequireFromString("18.5"),
	"CAD": decimal.RequireFromString("1.36"),
	"AUD": decimal.RequireFromString("1.49"),
	"CHF": decimal.RequireFromString("0.89"),
	"SGD": decimal.RequireFromString("1.35"),
	"HKD": decimal.RequireFromString("7.8"),
	"INR": decimal.RequireFromString("83.2"),
	"BRL": decimal.RequireFromString("5.4"),
	"RUB": decimal.RequireFromString("88"),
	"PLN": decimal.RequireFromString("4"),
	"TRY": decimal.RequireFromString("34"),
	"NOK": decimal.RequireFromString("10.8"),
	"SEK": decimal.RequireFromString("10.9"),
	"DKK": decimal.RequireFromString("6.8"),
}

const ratePlaces = 6

// fallbackRate prices pair from the static table.
func fallbackRate(pair domain.Pair) (decimal.Decimal, bool) {
	from, ok := fallbackUSD[pair.From]
	if !ok {
		return decimal.Zero, false
	}
	to, ok := fallbackUSD[pair.To]
	if !ok {
		return decimal.Zero, false
	}
	return to.Div(from).Round(ratePlaces), true
}

// fallbackTable rebases the static table onto base.
func fallbackTable(base domain.CurrencyCode) (map[domain.CurrencyCode]decimal.Decimal, bool) {
	b, ok := fallbackUSD[base]
	if !ok {
		return nil, false
	}
	out := make(map[domain.CurrencyCode]decimal.Decimal, len(fallbackUSD))
	for code, r := range fallbackUSD {
		out[code] = r.Div(b).Round(ratePlaces)
	}
	return out, true
}
