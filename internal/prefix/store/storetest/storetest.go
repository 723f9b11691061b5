// Package storetest is the behavioural contract every prefix registry backend
// must satisfy. Backends run it from their own tests:
//
//	suite.Run(t, &storetest.Suite{NewStore: func(t *testing.T) storetest.Store { ... }})
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"postcheck/internal/prefix/models"
	"postcheck/internal/prefix/store"
)

// Store is the backend contract under test.
type Store interface {
	List(ctx context.Context) ([]models.Prefix, error)
	Exists(ctx context.Context, prefix models.Prefix) (bool, error)
	Add(ctx context.Context, prefix models.Prefix) error
	Remove(ctx context.Context, prefix models.Prefix) error
	Bootstrap(ctx context.Context, seed []models.Prefix) (bool, error)
	Ping(ctx context.Context) error
}

// Suite runs the contract. NewStore must return an empty, never-bootstrapped store.
type Suite struct {
	suite.Suite
	NewStore func(t *testing.T) Store

	store Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore(s.T())
}

func (s *Suite) TestRoundTrip() {
	s.Require().NoError(s.store.Add(s.ctx, "99"))

	exists, err := s.store.Exists(s.ctx, "99")
	s.Require().NoError(err)
	s.True(exists, "added prefix should exist")

	s.Require().NoError(s.store.Remove(s.ctx, "99"))

	exists, err = s.store.Exists(s.ctx, "99")
	s.Require().NoError(err)
	s.False(exists, "removed prefix should not exist")
}

func (s *Suite) TestDuplicateAdd() {
	s.Require().NoError(s.store.Add(s.ctx, "99"))

	err := s.store.Add(s.ctx, "99")
	s.Require().Error(err)
	s.ErrorIs(err, store.ErrAlreadyUsed)

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.Prefix{"99"}, list, "a rejected add must not leave a second row")
}

func (s *Suite) TestAddAfterRemove() {
	s.Require().NoError(s.store.Add(s.ctx, "99"))
	s.Require().NoError(s.store.Remove(s.ctx, "99"))
	s.NoError(s.store.Add(s.ctx, "99"), "a removed prefix can be added again")
}

func (s *Suite) TestRemoveMissing() {
	err := s.store.Remove(s.ctx, "42")
	s.Require().Error(err)
	s.ErrorIs(err, store.ErrNotFound)

	s.Require().NoError(s.store.Add(s.ctx, "42"))
	s.Require().NoError(s.store.Remove(s.ctx, "42"))
	s.ErrorIs(s.store.Remove(s.ctx, "42"), store.ErrNotFound, "second remove should fail")
}

func (s *Suite) TestListIsTheSet() {
	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)

	for _, p := range []models.Prefix{"30", "10", "1011", "ab"} {
		s.Require().NoError(s.store.Add(s.ctx, p))
	}

	list, err = s.store.List(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]models.Prefix{"10", "30", "1011", "ab"}, list)
}

func (s *Suite) TestKeysAreExact() {
	s.Require().NoError(s.store.Add(s.ctx, "ab"))

	exists, err := s.store.Exists(s.ctx, "AB")
	s.Require().NoError(err)
	s.False(exists, "keys are compared by exact value")

	exists, err = s.store.Exists(s.ctx, "a")
	s.Require().NoError(err)
	s.False(exists, "keys are not matched by prefix")
}

func (s *Suite) TestBootstrapRunsOnce() {
	seed := []models.Prefix{"10", "11", "20"}

	seeded, err := s.store.Bootstrap(s.ctx, seed)
	s.Require().NoError(err)
	s.True(seeded)

	s.Require().NoError(s.store.Remove(s.ctx, "10"))

	seeded, err = s.store.Bootstrap(s.ctx, seed)
	s.Require().NoError(err)
	s.False(seeded, "second bootstrap must be a no-op")

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]models.Prefix{"11", "20"}, list, "removed seed prefix must not come back")
}

func (s *Suite) TestBootstrapSkipsExistingData() {
	s.Require().NoError(s.store.Add(s.ctx, "77"))

	seeded, err := s.store.Bootstrap(s.ctx, []models.Prefix{"10", "11"})
	s.Require().NoError(err)
	s.False(seeded)

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.Prefix{"77"}, list)
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

// TestConcurrentAddSamePrefix verifies that concurrent inserts of one key
// produce exactly one success and conflicts for everyone else.
func (s *Suite) TestConcurrentAddSamePrefix() {
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount, otherCount atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Add(s.ctx, "99")
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, store.ErrAlreadyUsed):
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one add should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should conflict")
	s.Zero(otherCount.Load())

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.Prefix{"99"}, list)
}

// TestConcurrentRemoveSamePrefix verifies that only one of many concurrent
// removals of one key observes the key.
func (s *Suite) TestConcurrentRemoveSamePrefix() {
	s.Require().NoError(s.store.Add(s.ctx, "99"))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, notFoundCount atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Remove(s.ctx, "99")
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, store.ErrNotFound) {
				notFoundCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), notFoundCount.Load())
}

// TestConcurrentAddDistinctPrefixes verifies concurrent inserts of different
// keys all land.
func (s *Suite) TestConcurrentAddDistinctPrefixes() {
	const goroutines = 30
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Add(s.ctx, models.Prefix(fmt.Sprintf("p%02d", i))); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Zero(failures.Load())
	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(list, goroutines)
}
