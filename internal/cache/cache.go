// Package cache - потокобезопасный кэш представлений навигации с TTL.
// Обертка над expirable LRU: TTL здесь страховка на случай пропущенной
// инвалидации, основной механизм актуальности - явный сброс ключей
// после мутаций дерева.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store хранит готовые представления под строковыми ключами.
// Дженерик LRU зафиксирован на any: в одном кэше живут три формы
// ответов (список корней, раздел, документ).
type Store struct {
	lru *expirable.LRU[string, any]
}

// New создает кэш на size записей со временем жизни ttl.
func New(size int, ttl time.Duration) *Store {
	return &Store{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Get возвращает значение по ключу, если оно есть и не протухло.
func (s *Store) Get(key string) (any, bool) {
	return s.lru.Get(key)
}

// Set кладет значение под ключ.
func (s *Store) Set(key string, value any) {
	s.lru.Add(key, value)
}

// Remove сбрасывает ключ.
func (s *Store) Remove(key string) {
	s.lru.Remove(key)
}

// Purge полностью очищает кэш.
func (s *Store) Purge() {
	s.lru.Purge()
}
