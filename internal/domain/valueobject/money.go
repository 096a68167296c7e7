package valueobject

import (
	"fmt"

	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "usd"

// CommissionRate — фиксированная комиссия платформы.
var CommissionRate = decimal.RequireFromString("0.15")

// Money хранит сумму с точностью до цента.
type Money struct {
	Amount decimal.Decimal
}

func NewMoney(amount decimal.Decimal) (Money, error) {
	if !amount.IsPositive() {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма должна быть больше нуля")
	}
	if !amount.Equal(amount.Round(2)) {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма указывается с точностью до цента")
	}
	return Money{Amount: amount}, nil
}

// ParseMoney разбирает сумму из строки вида "800.00".
func ParseMoney(raw string) (Money, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректная сумма")
	}
	return NewMoney(amount)
}

// Commission считает round(amount * 0.15, 2).
func Commission(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(CommissionRate).Round(2)
}

// Cents переводит сумму в минимальные единицы для платёжного шлюза.
func Cents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// Payout — разбивка платежа на комиссию и выплату продавцу.
type Payout struct {
	Amount     decimal.Decimal `json:"amount"`
	Commission decimal.Decimal `json:"commission"`
	Net        decimal.Decimal `json:"net"`
}

func (p Payout) String() string {
	return fmt.Sprintf("%s (commission %s, net %s)", p.Amount.StringFixed(2), p.Commission.StringFixed(2), p.Net.StringFixed(2))
}
