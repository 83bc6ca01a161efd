package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ProductID - идентификатор товара в каталоге.
// Нулевое значение считается отсутствующим идентификатором.
type ProductID int64

// IsZero сообщает, что идентификатор не задан.
func (id ProductID) IsZero() bool {
	return id == 0
}

// String возвращает десятичное представление идентификатора.
func (id ProductID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseProductID разбирает идентификатор из строки.
// Пустая строка, "null" и "0" дают нулевой (отсутствующий) идентификатор без ошибки.
func ParseProductID(raw string) (ProductID, error) {
	switch raw {
	case "", "null", "0":
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidProductID
	}
	return ProductID(v), nil
}

// Rating - оценка товара из каталога.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int64   `json:"count"`
}

// Product описывает товар каталога. В корзине он же выступает позицией
// (line item): Quantity хранит количество единиц.
type Product struct {
	ID          ProductID       `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Image       string          `json:"image,omitempty"`
	Rating      *Rating         `json:"rating,omitempty"`
	// Quantity на входе необязательно; значение выставляет корзина.
	Quantity int64 `json:"quantity,omitempty"`
}

// Clone возвращает независимую копию товара.
func (p Product) Clone() Product {
	if p.Rating != nil {
		rating := *p.Rating
		p.Rating = &rating
	}
	return p
}

// CloneProducts копирует список позиций, чтобы вызывающий не мог изменить чужое состояние.
func CloneProducts(products []Product) []Product {
	if products == nil {
		return nil
	}
	result := make([]Product, len(products))
	for i, p := range products {
		result[i] = p.Clone()
	}
	return result
}
