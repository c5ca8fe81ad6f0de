package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"

	"go.uber.org/zap"

	"github.com/nour-az/portfolio-cms/internal/fallback"
	"github.com/nour-az/portfolio-cms/internal/kv"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrCorrupt       = errors.New("stored value is corrupt")
)

type Validator interface {
	Validate() error
}

// Record is an element of a list entity.
type Record interface {
	Validator
	RecordID() string
}

func isEmpty(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || raw == "null"
}

func decode[T any](raw string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, nil
}

// merge applies patch, a JSON object, on top of current one top-level field at a time.
func merge[T any](current T, patch []byte) (T, error) {
	var zero T
	base, err := json.Marshal(current)
	if err != nil {
		return zero, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return zero, err
	}
	var updates map[string]json.RawMessage
	if err := json.Unmarshal(patch, &updates); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	maps.Copy(fields, updates)

	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return out, nil
}

func validate(v Validator) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// fileTier reads key from the local files and decodes it. Missing files are
// an empty tier, not a failure.
func fileTier[T any](files *LocalFiles, key string, found func(T) bool) fallback.Resolver[T] {
	return fallback.Resolver[T]{
		Name: "file",
		Fetch: func(context.Context) (T, bool, error) {
			var zero T
			raw, err := files.Read(key)
			if errors.Is(err, fs.ErrNotExist) {
				return zero, false, nil
			}
			if err != nil {
				return zero, false, err
			}
			if isEmpty(string(raw)) {
				return zero, false, nil
			}
			v, err := decode[T](string(raw))
			if err != nil {
				return zero, false, err
			}
			return v, found(v), nil
		},
	}
}

// Singleton stores one value of T under a single key.
type Singleton[T Validator] struct {
	key     string
	store   kv.Store
	files   *LocalFiles
	builtin func() *T
	log     *zap.SugaredLogger
}

// Get reads the stored value directly. It returns nil when there is no data.
func (s *Singleton[T]) Get(ctx context.Context) (*T, error) {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if isEmpty(raw) {
		return nil, nil
	}
	v, err := decode[T](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.key, err)
	}
	return &v, nil
}

// Resolve reads through the fallback chain: store, local file, built-in
// default. It never fails; nil means no tier had data.
func (s *Singleton[T]) Resolve(ctx context.Context) (*T, string) {
	tiers := []fallback.Resolver[*T]{
		{
			Name: "remote",
			Fetch: func(ctx context.Context) (*T, bool, error) {
				v, err := s.Get(ctx)
				return v, v != nil, err
			},
		},
		fileTier(s.files, s.key, func(v *T) bool { return v != nil }),
	}
	if s.builtin != nil {
		tiers = append(tiers, fallback.Resolver[*T]{
			Name: "builtin",
			Fetch: func(context.Context) (*T, bool, error) {
				v := s.builtin()
				return v, v != nil, nil
			},
		})
	}
	v, src, _ := fallback.FirstOf(ctx, s.log.With("key", s.key), tiers...)
	return v, src
}

func (s *Singleton[T]) Set(ctx context.Context, v T) error {
	if err := validate(v); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.key, string(b), 0)
}

// Update shallow-merges patch into the current value. It does not create:
// with nothing stored it returns ErrNotFound and writes nothing.
func (s *Singleton[T]) Update(ctx context.Context, patch []byte) (*T, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	updated, err := merge(*current, patch)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Clear resets the key to the empty-string sentinel.
func (s *Singleton[T]) Clear(ctx context.Context) error {
	return s.store.Put(ctx, s.key, "", 0)
}

// List stores an ordered slice of records under a single key. Every mutation
// reads the whole list, changes it and writes the whole list back.
type List[T Record] struct {
	key   string
	store kv.Store
	files *LocalFiles
	log   *zap.SugaredLogger
}

func (l *List[T]) Get(ctx context.Context) ([]T, error) {
	raw, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, err
	}
	if isEmpty(raw) {
		return []T{}, nil
	}
	items, err := decode[[]T](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Resolve reads through the fallback chain and ends in an empty list.
func (l *List[T]) Resolve(ctx context.Context) ([]T, string) {
	v, src, _ := fallback.FirstOf(ctx, l.log.With("key", l.key),
		fallback.Resolver[[]T]{
			Name: "remote",
			Fetch: func(ctx context.Context) ([]T, bool, error) {
				raw, err := l.store.Get(ctx, l.key)
				if err != nil || isEmpty(raw) {
					return nil, false, err
				}
				items, err := decode[[]T](raw)
				return items, err == nil, err
			},
		},
		fileTier(l.files, l.key, func([]T) bool { return true }),
		fallback.Static("builtin", []T(nil)),
	)
	if v == nil {
		v = []T{}
	}
	return v, src
}

func (l *List[T]) Set(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, l.key, string(b), 0)
}

// Add appends rec and returns the new list. Ids are not checked for
// uniqueness here; lookups by id use the first match.
func (l *List[T]) Add(ctx context.Context, rec T) ([]T, error) {
	if err := validate(rec); err != nil {
		return nil, err
	}
	items, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	items = append(items, rec)
	if err := l.Set(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (l *List[T]) index(items []T, id string) int {
	for i, it := range items {
		if it.RecordID() == id {
			return i
		}
	}
	return -1
}

// Update shallow-merges patch into the first record with the given id.
func (l *List[T]) Update(ctx context.Context, id string, patch []byte) (T, error) {
	var zero T
	items, err := l.Get(ctx)
	if err != nil {
		return zero, err
	}
	i := l.index(items, id)
	if i == -1 {
		return zero, ErrNotFound
	}
	updated, err := merge(items[i], patch)
	if err != nil {
		return zero, err
	}
	if err := validate(updated); err != nil {
		return zero, err
	}
	items[i] = updated
	if err := l.Set(ctx, items); err != nil {
		return zero, err
	}
	return updated, nil
}

// Delete removes the first record with the given id and returns it.
func (l *List[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	items, err := l.Get(ctx)
	if err != nil {
		return zero, err
	}
	i := l.index(items, id)
	if i == -1 {
		return zero, ErrNotFound
	}
	deleted := items[i]
	items = append(items[:i], items[i+1:]...)
	if err := l.Set(ctx, items); err != nil {
		return zero, err
	}
	return deleted, nil
}

func (l *List[T]) Clear(ctx context.Context) error {
	return l.store.Put(ctx, l.key, "[]", 0)
}
