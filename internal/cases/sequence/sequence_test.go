package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"caseflow/internal/cases/models"
	dErrors "caseflow/pkg/domain-errors"
)

var march = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type RedisCounterSuite struct {
	suite.Suite
	mr        *miniredis.Miniredis
	client    *redis.Client
	allocator *Allocator
}

func TestRedisCounterSuite(t *testing.T) {
	suite.Run(t, new(RedisCounterSuite))
}

func (s *RedisCounterSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.allocator = NewAllocator(NewRedisCounter(s.client), 400*24*time.Hour)
}

func (s *RedisCounterSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *RedisCounterSuite) TestNextFormatsNumbers() {
	ctx := context.Background()

	first, err := s.allocator.Next(ctx, models.CaseTypeFraud, "T1", march)
	s.Require().NoError(err)
	s.Equal("FRD-202403-000001-P120", first)

	second, err := s.allocator.Next(ctx, models.CaseTypeFraud, "T1", march)
	s.Require().NoError(err)
	s.Equal("FRD-202403-000002-P120", second)
}

func (s *RedisCounterSuite) TestKeysAreIndependent() {
	ctx := context.Background()

	_, err := s.allocator.Next(ctx, models.CaseTypeFraud, "T1", march)
	s.Require().NoError(err)

	aml, err := s.allocator.Next(ctx, models.CaseTypeAML, "T1", march)
	s.Require().NoError(err)
	s.Contains(aml, "-000001-")

	otherTenant, err := s.allocator.Next(ctx, models.CaseTypeFraud, "T2", march)
	s.Require().NoError(err)
	s.Contains(otherTenant, "-000001-")

	april, err := s.allocator.Next(ctx, models.CaseTypeFraud, "T1", march.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Equal("FRD-202404-000001-P120", april)
}

func (s *RedisCounterSuite) TestKeySetsExpiry() {
	_, err := s.allocator.Next(context.Background(), models.CaseTypeKYC, "T1", march)
	s.Require().NoError(err)

	key := Key(models.CaseTypeKYC, "202403", "T1")
	s.Equal("case_sequence:KYC:202403:T1", key)
	s.Equal(400*24*time.Hour, s.mr.TTL(key))
}

func (s *RedisCounterSuite) TestConcurrentAllocationIsGapFree() {
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := s.allocator.Next(ctx, models.CaseTypeFraud, "T1", march)
			if err == nil {
				numbers <- num
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool)
	for num := range numbers {
		parsed, err := models.ParseCaseNumber(num)
		s.Require().NoError(err)
		s.False(seen[parsed.Sequence], "duplicate %s", num)
		seen[parsed.Sequence] = true
	}
	s.Len(seen, n)
	for i := int64(1); i <= n; i++ {
		s.True(seen[i], "missing sequence %d", i)
	}
}

func (s *RedisCounterSuite) TestStoreUnavailable() {
	s.mr.SetError("ERR server unavailable")

	_, err := s.allocator.Next(context.Background(), models.CaseTypeFraud, "T1", march)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAllocationFailure))
}

func (s *RedisCounterSuite) TestSequenceOverflow() {
	s.Require().NoError(s.mr.Set(Key(models.CaseTypeFraud, "202403", "T1"), "999999"))

	_, err := s.allocator.Next(context.Background(), models.CaseTypeFraud, "T1", march)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAllocationFailure))
}

type failingCounter struct{}

func (failingCounter) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestAllocatorRejectsUnknownType(t *testing.T) {
	a := NewAllocator(failingCounter{}, time.Hour)
	_, err := a.Next(context.Background(), models.CaseType("PHISHING"), "T1", march)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestInMemoryCounter(t *testing.T) {
	c := NewInMemoryCounter()
	ctx := context.Background()

	v, err := c.Increment(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, _ = c.Increment(ctx, "k", time.Hour)
	assert.Equal(t, int64(2), v)

	t.Run("expired keys restart", func(t *testing.T) {
		now := time.Now()
		c.now = func() time.Time { return now.Add(2 * time.Hour) }
		v, err := c.Increment(ctx, "k", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Increment(cctx, "k", time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
