// Package forecast projeta o fluxo de caixa futuro de um usuário a partir
// do histórico de transações. É aritmética determinística sobre médias
// diárias; nenhuma chamada a LLM acontece aqui.
package forecast

import (
	"time"

	"github.com/shopspring/decimal"
)

// Horizonte da projeção, em dias.
const (
	DefaultDays = 30
	MinDays     = 1
	MaxDays     = 90
)

// MinHistoryDays é o histórico mínimo para uma projeção fazer sentido.
// Abaixo disso a resposta ainda é 200, mas com a série vazia e uma
// mensagem explicando: o front trata como estado vazio, não como erro.
const MinHistoryDays = 7

// Transaction é uma transação do extrato do usuário. Amount positivo é
// receita, negativo é despesa.
type Transaction struct {
	Date     time.Time
	Amount   decimal.Decimal
	Category string
}

// Point é um dia projetado da série.
type Point struct {
	Date             string          `json:"date"`
	ProjectedIncome  decimal.Decimal `json:"projected_income"`
	ProjectedExpense decimal.Decimal `json:"projected_expenses"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
}

// Result é o corpo serializado da resposta do endpoint de forecast.
type Result struct {
	Forecast    []Point   `json:"forecast"`
	Message     string    `json:"message,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ClampDays normaliza o horizonte pedido pelo cliente para [MinDays, MaxDays],
// com DefaultDays quando não informado.
func ClampDays(days int) int {
	if days == 0 {
		return DefaultDays
	}
	if days < MinDays {
		return MinDays
	}
	if days > MaxDays {
		return MaxDays
	}
	return days
}

// Project calcula a série projetada: média diária de receitas e despesas
// sobre o histórico observado, extrapolada dia a dia com saldo acumulado.
//
// Com menos de MinHistoryDays de histórico retorna a série vazia com
// mensagem, nunca um erro.
func Project(txs []Transaction, days int, from time.Time) Result {
	days = ClampDays(days)
	res := Result{Forecast: []Point{}, GeneratedAt: from}

	span := historySpanDays(txs)
	if span < MinHistoryDays {
		res.Message = "Not enough transaction history to generate a forecast"
		return res
	}

	var income, expense decimal.Decimal
	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			expense = expense.Add(tx.Amount.Neg())
		} else {
			income = income.Add(tx.Amount)
		}
	}

	spanDec := decimal.NewFromInt(int64(span))
	dailyIncome := income.Div(spanDec).Round(2)
	dailyExpense := expense.Div(spanDec).Round(2)

	balance := decimal.Zero
	res.Forecast = make([]Point, 0, days)
	for i := 1; i <= days; i++ {
		balance = balance.Add(dailyIncome).Sub(dailyExpense)
		res.Forecast = append(res.Forecast, Point{
			Date:             from.AddDate(0, 0, i).Format("2006-01-02"),
			ProjectedIncome:  dailyIncome,
			ProjectedExpense: dailyExpense,
			ProjectedBalance: balance,
		})
	}
	return res
}

// historySpanDays mede o intervalo coberto pelas transações, em dias
// inteiros, no mínimo 1 quando há alguma transação.
func historySpanDays(txs []Transaction) int {
	if len(txs) == 0 {
		return 0
	}
	oldest, newest := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(oldest) {
			oldest = tx.Date
		}
		if tx.Date.After(newest) {
			newest = tx.Date
		}
	}
	span := int(newest.Sub(oldest).Hours()/24) + 1
	if span < 1 {
		span = 1
	}
	return span
}
