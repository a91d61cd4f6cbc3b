package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// questionCacheSize is generous: question sets are small and immutable.
const questionCacheSize = 256

// CachedStore wraps a Store with an LRU over question lookups. Questions
// are read on every turn but only ever written by seeding, so the cache is
// purged on PutQuestion and otherwise never invalidated.
type CachedStore struct {
	Store
	byOrder *lru.Cache[int, Question]
	next    *lru.Cache[int, Question]
}

func NewCached(inner Store) (*CachedStore, error) {
	byOrder, err := lru.New[int, Question](questionCacheSize)
	if err != nil {
		return nil, err
	}
	next, err := lru.New[int, Question](questionCacheSize)
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: inner, byOrder: byOrder, next: next}, nil
}

func (s *CachedStore) QuestionByOrder(ctx context.Context, order int) (Question, bool, error) {
	if q, ok := s.byOrder.Get(order); ok {
		return q, true, nil
	}
	q, ok, err := s.Store.QuestionByOrder(ctx, order)
	if err == nil && ok {
		s.byOrder.Add(order, q)
	}
	return q, ok, err
}

func (s *CachedStore) NextQuestionAfter(ctx context.Context, order int) (Question, bool, error) {
	if q, ok := s.next.Get(order); ok {
		return q, true, nil
	}
	q, ok, err := s.Store.NextQuestionAfter(ctx, order)
	if err == nil && ok {
		s.next.Add(order, q)
	}
	return q, ok, err
}

func (s *CachedStore) PutQuestion(ctx context.Context, q Question) error {
	if err := s.Store.PutQuestion(ctx, q); err != nil {
		return err
	}
	s.byOrder.Purge()
	s.next.Purge()
	return nil
}
