package grpcsvc

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/service/cart"
)

// SessionMetadataKey - заголовок с идентификатором сессии корзины.
const SessionMetadataKey = "x-session-id"

// CartService реализует gRPC API поверх реестра корзин.
type CartService struct {
	registry *cart.Registry
	logger   *log.Entry
}

// NewCartService конструирует сервис с зависимостями.
func NewCartService(registry *cart.Registry, logger *log.Entry) *CartService {
	if logger == nil {
		logger = log.New().WithField("component", "cart-service")
	}
	return &CartService{registry: registry, logger: logger}
}

// GetCart возвращает текущий снимок корзины.
func (s *CartService) GetCart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	store, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.respond(store.Snapshot(), "")
}

// AddToCart добавляет товар. Тело запроса - товар каталога в JSON-представлении.
func (s *CartService) AddToCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "product is required")
	}
	product, err := structToProduct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid product: %v", err)
	}
	if product.ID.IsZero() {
		return nil, status.Error(codes.InvalidArgument, domain.ErrInvalidProductID.Error())
	}
	if product.Price.IsNegative() {
		return nil, status.Error(codes.InvalidArgument, "price must be >= 0")
	}

	store, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := store.AddToCart(product)
	s.logger.WithFields(log.Fields{
		"operation":  "AddToCart",
		"product_id": product.ID,
	}).Debug("product added")
	return s.respond(snapshot, "")
}

// RemoveFromCart удаляет позицию. Исход операции возвращается в поле "result":
// отсутствие товара или нулевой id не являются ошибкой вызова.
func (s *CartService) RemoveFromCart(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	store, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	id := domain.ProductID(req.GetValue())
	result, snapshot := store.RemoveFromCart(id)
	s.logger.WithFields(log.Fields{
		"operation":  "RemoveFromCart",
		"product_id": id,
		"result":     result,
	}).Debug("remove handled")
	return s.respond(snapshot, result)
}

// ClearCart очищает корзину.
func (s *CartService) ClearCart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	store, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.respond(store.ClearCart(), "")
}

func (s *CartService) session(ctx context.Context) (*cart.Store, error) {
	sessionID := sessionFromContext(ctx)
	store, err := s.registry.Session(sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionRequired) {
			return nil, status.Error(codes.InvalidArgument, SessionMetadataKey+" metadata is required")
		}
		s.logger.WithError(err).Error("failed to open cart session")
		return nil, status.Error(codes.Internal, "failed to open cart session")
	}
	return store, nil
}

func (s *CartService) respond(snapshot domain.CartSnapshot, result cart.RemoveResult) (*structpb.Struct, error) {
	out, err := snapshotToStruct(snapshot)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode cart snapshot")
		return nil, status.Error(codes.Internal, "failed to encode cart")
	}
	if result != "" {
		out.Fields[resultField] = structpb.NewStringValue(string(result))
	}
	return out, nil
}

func sessionFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(SessionMetadataKey)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

var _ CartServiceServer = (*CartService)(nil)
