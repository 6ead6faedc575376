package models

import (
	"bytes"
	"encoding/json"
)

// Optional はJSONでキーが存在したかどうかを保持する値です。
// null はキーが無い場合と同じ扱いになります。
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some は値がセットされた Optional を返します。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = v
	o.Set = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
