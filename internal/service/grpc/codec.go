package grpcsvc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

// resultField - ключ ответа RemoveFromCart с исходом операции.
const resultField = "result"

// toStruct переводит значение с json-тегами в google.protobuf.Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("to struct: %w", err)
	}
	return out, nil
}

// fromStruct разбирает google.protobuf.Struct в значение с json-тегами.
func fromStruct(in *structpb.Struct, out any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("from struct: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

func snapshotToStruct(snapshot domain.CartSnapshot) (*structpb.Struct, error) {
	return toStruct(snapshot)
}

func structToSnapshot(in *structpb.Struct) (domain.CartSnapshot, error) {
	var snapshot domain.CartSnapshot
	if err := fromStruct(in, &snapshot); err != nil {
		return domain.CartSnapshot{}, err
	}
	if snapshot.Products == nil {
		snapshot.Products = []domain.Product{}
	}
	return snapshot, nil
}

func productToStruct(p domain.Product) (*structpb.Struct, error) {
	return toStruct(p)
}

func structToProduct(in *structpb.Struct) (domain.Product, error) {
	var p domain.Product
	if err := fromStruct(in, &p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}
