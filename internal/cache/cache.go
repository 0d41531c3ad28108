package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// DefaultTTL is used when a store is created without one.
const DefaultTTL = 5 * time.Minute

// Store is a best-effort key/value cache. Failures behave like misses; nothing
// may rely on a cached value being fresher than its TTL.
type Store interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{})
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
	Clear(ctx context.Context)
}

// Stats is a diagnostic snapshot of a cache.
type Stats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// Key builds a deterministic cache key from a function name and its arguments.
// Arguments are rendered with their dynamic type so that 1 and "1" differ.
// Pointers are rendered by the value they point to, never by address.
func Key(name string, args ...interface{}) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%T:%s", a, keyValue(a))
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

func keyValue(a interface{}) string {
	v := reflect.ValueOf(a)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "nil"
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return "nil"
	}
	return fmt.Sprintf("%+v", v.Interface())
}

// Memoize wraps fn so that results are served from store for ttl. Errors are
// never cached. A ttl of zero uses the store's default.
func Memoize[A any, T any](store Store, name string, ttl time.Duration, fn func(ctx context.Context, arg A) (T, error)) func(ctx context.Context, arg A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		key := Key(name, arg)
		if cached, ok := store.Get(ctx, key); ok {
			if v, ok := decode[T](cached); ok {
				return v, nil
			}
		}

		v, err := fn(ctx, arg)
		if err != nil {
			return v, err
		}
		if ttl > 0 {
			store.SetWithTTL(ctx, key, v, ttl)
		} else {
			store.Set(ctx, key, v)
		}
		return v, nil
	}
}

// decode accepts either the value itself (in-process stores) or its JSON
// encoding (remote stores).
func decode[T any](cached interface{}) (T, bool) {
	var zero T
	switch v := cached.(type) {
	case T:
		return v, true
	case []byte:
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return zero, false
		}
		return out, true
	default:
		return zero, false
	}
}
