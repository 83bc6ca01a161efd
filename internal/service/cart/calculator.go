package cart

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

// Calculator вычисляет производные величины корзины. Состояния не хранит.
type Calculator struct{}

// NewCalculator возвращает калькулятор корзины.
func NewCalculator() Calculator {
	return Calculator{}
}

// CalculateTotal возвращает сумму price * quantity по всем позициям.
func (Calculator) CalculateTotal(products []domain.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(p.Quantity)))
	}
	return total
}

// CalculateItemsCount возвращает количество единиц товара (а не позиций).
func (Calculator) CalculateItemsCount(products []domain.Product) int64 {
	var count int64
	for _, p := range products {
		count += p.Quantity
	}
	return count
}

// Snapshot собирает снимок корзины из списка позиций.
func (c Calculator) Snapshot(products []domain.Product) domain.CartSnapshot {
	items := domain.CloneProducts(products)
	if items == nil {
		items = []domain.Product{}
	}
	return domain.CartSnapshot{
		Products:      items,
		TotalAmount:   c.CalculateTotal(items),
		ProductsCount: c.CalculateItemsCount(items),
	}
}
