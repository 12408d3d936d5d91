package services

import (
	"fmt"
)

// IdentityMap は移行元エンティティのキーから移行先エンティティへの対応を
// 1回の実行の間だけ記憶する汎用キャッシュです。
//
// 基本的に次の戦略を取ります：
//   - あればキャッシュして返す
//   - なければ作成し、再取得してからキャッシュする
//
// 同一キーに対する作成呼び出しは1回の実行で最大1回であることを保証します。
type IdentityMap[K comparable, V any] struct {
	entries map[K]V
}

// NewIdentityMap は空のIdentityMapを作成します
func NewIdentityMap[K comparable, V any]() *IdentityMap[K, V] {
	return &IdentityMap[K, V]{
		entries: make(map[K]V),
	}
}

// Resolve はキーに対応する移行先エンティティを返します。
//
// 初回呼び出しではlookupで移行先を検索し、見つかればキャッシュします。
// 見つからなければcreateを実行し、サーバー側で採番されたフィールドを
// 取り込むため再度lookupしてからキャッシュします。
// 2回目以降の呼び出しはリモートアクセスなしでキャッシュを返します。
func (m *IdentityMap[K, V]) Resolve(key K, lookup func() (*V, error), create func() error) (V, error) {
	var zero V

	if cached, ok := m.entries[key]; ok {
		return cached, nil
	}

	found, err := lookup()
	if err != nil {
		return zero, err
	}

	if found == nil {
		if err := create(); err != nil {
			return zero, err
		}

		found, err = lookup()
		if err != nil {
			return zero, err
		}
		if found == nil {
			return zero, fmt.Errorf("作成したエンティティの再取得に失敗しました")
		}
	}

	m.entries[key] = *found
	return *found, nil
}

// Get はキャッシュ済みのエンティティを返します。リモートアクセスは行いません。
func (m *IdentityMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Len はキャッシュ済みエントリの数を返します
func (m *IdentityMap[K, V]) Len() int {
	return len(m.entries)
}
