package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/service/cart"
)

// Client - клиент cart.v1.CartService для одной сессии.
type Client struct {
	conn      grpc.ClientConnInterface
	sessionID string
}

// NewClient создаёт клиента, привязанного к сессии.
func NewClient(conn grpc.ClientConnInterface, sessionID string) *Client {
	return &Client{conn: conn, sessionID: sessionID}
}

// GetCart возвращает снимок корзины.
func (c *Client) GetCart(ctx context.Context, opts ...grpc.CallOption) (domain.CartSnapshot, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.WithSession(ctx), methodGetCart, &emptypb.Empty{}, out, opts...); err != nil {
		return domain.CartSnapshot{}, err
	}
	return structToSnapshot(out)
}

// AddToCart добавляет товар.
func (c *Client) AddToCart(ctx context.Context, product domain.Product, opts ...grpc.CallOption) (domain.CartSnapshot, error) {
	in, err := productToStruct(product)
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.WithSession(ctx), methodAddToCart, in, out, opts...); err != nil {
		return domain.CartSnapshot{}, err
	}
	return structToSnapshot(out)
}

// RemoveFromCart удаляет позицию и возвращает исход операции.
func (c *Client) RemoveFromCart(ctx context.Context, id domain.ProductID, opts ...grpc.CallOption) (cart.RemoveResult, domain.CartSnapshot, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.WithSession(ctx), methodRemoveFromCart, wrapperspb.Int64(int64(id)), out, opts...); err != nil {
		return "", domain.CartSnapshot{}, err
	}
	result := cart.RemoveResult(out.GetFields()[resultField].GetStringValue())
	snapshot, err := structToSnapshot(out)
	return result, snapshot, err
}

// ClearCart очищает корзину.
func (c *Client) ClearCart(ctx context.Context, opts ...grpc.CallOption) (domain.CartSnapshot, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.WithSession(ctx), methodClearCart, &emptypb.Empty{}, out, opts...); err != nil {
		return domain.CartSnapshot{}, err
	}
	return structToSnapshot(out)
}

// WithSession добавляет идентификатор сессии в исходящие metadata.
func (c *Client) WithSession(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, SessionMetadataKey, c.sessionID)
}
