package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
)

type RedirectUseCaseTestSuite struct {
	suite.Suite
	errUnknown error
	now        time.Time
	repoMock   *mockURLMappingRepository
	clicksMock *mockClickRecorder
	uc         *RedirectUseCase
}

func (suite *RedirectUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.now = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func (suite *RedirectUseCaseTestSuite) SetupSubTest() {
	suite.repoMock = new(mockURLMappingRepository)
	suite.clicksMock = new(mockClickRecorder)
	suite.uc = NewRedirectUseCase(shortcode.New(), suite.repoMock, suite.clicksMock)
	suite.uc.now = func() time.Time { return suite.now }
	suite.uc.newKey = func() string { return "click-key" }
}

func (suite *RedirectUseCaseTestSuite) TearDownSubTest() {
	suite.repoMock.AssertExpectations(suite.T())
	suite.clicksMock.AssertExpectations(suite.T())
}

func (suite *RedirectUseCaseTestSuite) mapping() *entity.URLMapping {
	return &entity.URLMapping{
		ID:          1,
		ShortCode:   "Ab3dE8kP",
		OriginalURL: "https://example.com",
		Owner:       "alice",
	}
}

func (suite *RedirectUseCaseTestSuite) TestResolve() {
	ctx := context.Background()

	suite.Run("malformed code", func() {
		notFound := testutil.ToFloat64(metrics.Redirects.WithLabelValues(metrics.ResultNotFound))

		for _, code := range []string{"", "abc", "Ab3dE8kP9", "Ab3d-8kP"} {
			url, err := suite.uc.Resolve(ctx, code)

			suite.ErrorIs(err, entity.ErrURLNotFound)
			suite.Empty(url)
		}

		suite.Equal(notFound+4, testutil.ToFloat64(metrics.Redirects.WithLabelValues(metrics.ResultNotFound)))
	})

	suite.Run("url not found", func() {
		suite.repoMock.
			On("RetrieveByShortCode", ctx, "Ab3dE8kP").
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Empty(url)
	})

	suite.Run("retrieve error", func() {
		suite.repoMock.
			On("RetrieveByShortCode", ctx, "Ab3dE8kP").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Empty(url)
	})

	suite.Run("increment not applied is retried", func() {
		notApplied := fmt.Errorf("%w: %w", entity.ErrNotApplied, suite.errUnknown)

		suite.repoMock.On("RetrieveByShortCode", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Once().Return(nil, notApplied)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.clicksMock.On("RecordClick", ctx, "click-key", int64(1), suite.now).Once().Return(nil)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.NoError(err)
		suite.Equal("https://example.com", url)
	})

	suite.Run("increment error is not retried", func() {
		suite.repoMock.On("RetrieveByShortCode", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Once().Return(nil, suite.errUnknown)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Empty(url)
	})

	suite.Run("increment not applied twice", func() {
		suite.repoMock.On("RetrieveByShortCode", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Twice().Return(nil, entity.ErrNotApplied)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.ErrorIs(err, entity.ErrNotApplied)
		suite.Empty(url)
	})

	suite.Run("record click retried with the same key", func() {
		suite.repoMock.On("RetrieveByShortCode", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.clicksMock.On("RecordClick", ctx, "click-key", int64(1), suite.now).Once().Return(suite.errUnknown)
		suite.clicksMock.On("RecordClick", ctx, "click-key", int64(1), suite.now).Once().Return(nil)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.NoError(err)
		suite.Equal("https://example.com", url)
	})

	suite.Run("record click error", func() {
		failures := testutil.ToFloat64(metrics.ClickRecordFailures)

		suite.repoMock.On("RetrieveByShortCode", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.clicksMock.On("RecordClick", ctx, "click-key", int64(1), suite.now).Twice().Return(suite.errUnknown)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Empty(url)
		suite.Equal(failures+1, testutil.ToFloat64(metrics.ClickRecordFailures))
	})

	suite.Run("canceled context is not retried", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		suite.repoMock.On("RetrieveByShortCode", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Once().Return(nil, context.Canceled)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.ErrorIs(err, context.Canceled)
		suite.Empty(url)
	})

	suite.Run("success", func() {
		found := testutil.ToFloat64(metrics.Redirects.WithLabelValues(metrics.ResultFound))

		suite.repoMock.On("RetrieveByShortCode", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.repoMock.On("IncrementClicks", ctx, "Ab3dE8kP").Once().Return(suite.mapping(), nil)
		suite.clicksMock.On("RecordClick", ctx, "click-key", int64(1), suite.now).Once().Return(nil)

		url, err := suite.uc.Resolve(ctx, "Ab3dE8kP")

		suite.NoError(err)
		suite.Equal("https://example.com", url)
		suite.Equal(found+1, testutil.ToFloat64(metrics.Redirects.WithLabelValues(metrics.ResultFound)))
	})
}

// memoryStore keeps mappings and click events in memory. Writes listed in
// lostReplies are applied and then reported as failed, the way a dropped
// connection loses the reply of a committed statement.
type memoryStore struct {
	mu          sync.Mutex
	mappings    map[string]*entity.URLMapping
	events      []entity.ClickEvent
	keys        map[string]struct{}
	lostReplies map[string]int
}

var errLostReply = errors.New("connection lost after commit")

func newMemoryStore(mappings ...entity.URLMapping) *memoryStore {
	s := &memoryStore{
		mappings:    make(map[string]*entity.URLMapping),
		keys:        make(map[string]struct{}),
		lostReplies: make(map[string]int),
	}
	for i := range mappings {
		m := mappings[i]
		s.mappings[m.ShortCode] = &m
	}

	return s
}

func (s *memoryStore) loseReply(method string) error {
	if s.lostReplies[method] == 0 {
		return nil
	}

	s.lostReplies[method]--
	return errLostReply
}

func (s *memoryStore) RetrieveByShortCode(_ context.Context, shortCode string) (*entity.URLMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mappings[shortCode]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	mCopy := *m
	return &mCopy, nil
}

func (s *memoryStore) IncrementClicks(_ context.Context, shortCode string) (*entity.URLMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mappings[shortCode]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	m.ClickCount++

	if err := s.loseReply("IncrementClicks"); err != nil {
		return nil, err
	}

	mCopy := *m
	return &mCopy, nil
}

func (s *memoryStore) RecordClick(_ context.Context, key string, mappingID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; !ok {
		s.keys[key] = struct{}{}
		s.events = append(s.events, entity.ClickEvent{
			ID:        int64(len(s.events) + 1),
			Key:       key,
			MappingID: mappingID,
			ClickedAt: at,
		})
	}

	return s.loseReply("RecordClick")
}

func (suite *RedirectUseCaseTestSuite) TestResolveCountsEveryClick() {
	suite.Run("sequential clicks", func() {
		store := newMemoryStore(entity.URLMapping{ID: 7, ShortCode: "Ab3dE8kP", OriginalURL: "https://example.com"})
		uc := NewRedirectUseCase(shortcode.New(), store, store)

		for i := 0; i < 3; i++ {
			url, err := uc.Resolve(context.Background(), "Ab3dE8kP")
			suite.Require().NoError(err)
			suite.Equal("https://example.com", url)
		}

		m, err := store.RetrieveByShortCode(context.Background(), "Ab3dE8kP")
		suite.Require().NoError(err)
		suite.EqualValues(3, m.ClickCount)
		suite.Len(store.events, 3)
	})

	suite.Run("concurrent clicks", func() {
		const clicks = 100

		store := newMemoryStore(entity.URLMapping{ID: 7, ShortCode: "Ab3dE8kP", OriginalURL: "https://example.com"})
		uc := NewRedirectUseCase(shortcode.New(), store, store)

		var wg sync.WaitGroup
		for i := 0; i < clicks; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = uc.Resolve(context.Background(), "Ab3dE8kP")
			}()
		}
		wg.Wait()

		m, err := store.RetrieveByShortCode(context.Background(), "Ab3dE8kP")
		suite.Require().NoError(err)
		suite.EqualValues(clicks, m.ClickCount)
		suite.Len(store.events, clicks)
		for _, e := range store.events {
			suite.EqualValues(7, e.MappingID)
		}
	})

	suite.Run("unknown code writes nothing", func() {
		store := newMemoryStore()
		uc := NewRedirectUseCase(shortcode.New(), store, store)

		_, err := uc.Resolve(context.Background(), "Zx9yW7vU")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Empty(store.events)
	})

	suite.Run("lost increment reply is not counted twice", func() {
		store := newMemoryStore(entity.URLMapping{ID: 7, ShortCode: "Ab3dE8kP", OriginalURL: "https://example.com"})
		store.lostReplies["IncrementClicks"] = 1
		uc := NewRedirectUseCase(shortcode.New(), store, store)

		_, err := uc.Resolve(context.Background(), "Ab3dE8kP")
		suite.ErrorIs(err, errLostReply)

		m, err := store.RetrieveByShortCode(context.Background(), "Ab3dE8kP")
		suite.Require().NoError(err)
		suite.EqualValues(1, m.ClickCount)
		suite.Empty(store.events)
	})

	suite.Run("lost record reply stores one event", func() {
		store := newMemoryStore(entity.URLMapping{ID: 7, ShortCode: "Ab3dE8kP", OriginalURL: "https://example.com"})
		store.lostReplies["RecordClick"] = 1
		uc := NewRedirectUseCase(shortcode.New(), store, store)

		url, err := uc.Resolve(context.Background(), "Ab3dE8kP")
		suite.Require().NoError(err)
		suite.Equal("https://example.com", url)

		m, err := store.RetrieveByShortCode(context.Background(), "Ab3dE8kP")
		suite.Require().NoError(err)
		suite.EqualValues(1, m.ClickCount)
		suite.Len(store.events, 1)
	})
}

func TestRedirectUseCase(t *testing.T) {
	suite.Run(t, new(RedirectUseCaseTestSuite))
}
