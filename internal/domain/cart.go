package domain

import "github.com/shopspring/decimal"

// CartSnapshot - неизменяемое представление содержимого корзины.
// TotalAmount и ProductsCount всегда вычисляются из Products и никогда
// не хранятся отдельно от них.
type CartSnapshot struct {
	Products      []Product       `json:"products"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ProductsCount int64           `json:"productsCount"`
}

// EmptySnapshot возвращает снимок пустой корзины.
func EmptySnapshot() CartSnapshot {
	return CartSnapshot{
		Products:    []Product{},
		TotalAmount: decimal.Zero,
	}
}

// Clone возвращает глубокую копию снимка.
func (s CartSnapshot) Clone() CartSnapshot {
	s.Products = CloneProducts(s.Products)
	return s
}

// Find возвращает позицию корзины по идентификатору товара.
func (s CartSnapshot) Find(id ProductID) (Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
