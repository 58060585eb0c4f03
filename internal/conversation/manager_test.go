package conversation

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayashida/spotbot/internal/catalog"
	observemetrics "github.com/hayashida/spotbot/internal/observability/metrics"
	"github.com/hayashida/spotbot/internal/places"
)

const (
	restaurantTrigger = "Find restaurants nearby"
	cafeTrigger       = "Find cafes nearby"
)

type stubFetcher struct {
	results   []places.Place
	err       error
	lastQuery places.SearchQuery
	calls     int
}

func (f *stubFetcher) Search(ctx context.Context, query places.SearchQuery) ([]places.Place, error) {
	f.calls++
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func threePlaces() []places.Place {
	return []places.Place{
		{ID: "p1", Name: "Sushi Yamato", Rating: 4.4, RatingCount: 120},
		{ID: "p2", Name: "Ramen Koji", Rating: 3.9, RatingCount: 58},
		{ID: "p3", Name: "Tempura Hana", Rating: 4.8, RatingCount: 210},
	}
}

func newTestManager(t *testing.T, fetcher places.Fetcher) (*Manager, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	m := NewManager(ManagerConfig{
		Repository: repo,
		Catalog:    catalog.Default(),
		Fetcher:    fetcher,
		Picker:     places.NewPicker(rand.New(rand.NewSource(1))),
		MaxResults: 3,
	})
	return m, repo
}

// Walks every built-in question set end to end with valid answers.
func TestProgressionEndsAwaitingLocation(t *testing.T) {
	triggers := map[string]string{
		catalog.TypeRestaurant: restaurantTrigger,
		catalog.TypeCafe:       cafeTrigger,
	}

	for searchType, trigger := range triggers {
		t.Run(searchType, func(t *testing.T) {
			m, repo := newTestManager(t, &stubFetcher{})
			ctx := context.Background()
			userID := "user-" + searchType

			set, err := catalog.Default().SetFor(searchType)
			require.NoError(t, err)

			reply, err := m.HandleText(ctx, userID, trigger)
			require.NoError(t, err)
			firstQ, err := set.Question(set.First())
			require.NoError(t, err)
			require.Equal(t, TextWithOptions{Prompt: firstQ.Prompt, Options: firstQ.Labels()}, reply)

			wantAnswers := map[string]string{}
			for i, id := range set.Order {
				q, err := set.Question(id)
				require.NoError(t, err)
				label := q.Options[0].Label
				wantAnswers[q.Property] = q.Options[0].Value

				reply, err := m.HandleText(ctx, userID, label)
				require.NoError(t, err)

				rec, err := repo.GetByUserID(ctx, userID)
				require.NoError(t, err)
				assert.Equal(t, wantAnswers, rec.Answers)

				if i == len(set.Order)-1 {
					assert.Equal(t, LocationRequest{Prompt: msgShareLocation}, reply)
					assert.True(t, rec.AwaitingLocation())
				} else {
					next, err := set.Question(set.Order[i+1])
					require.NoError(t, err)
					assert.Equal(t, TextWithOptions{Prompt: next.Prompt, Options: next.Labels()}, reply)
					assert.Equal(t, next.ID, rec.CurrentStatus)
				}
			}
		})
	}
}

func TestInvalidAnswerLeavesRecordUntouched(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	_, err := m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)
	before, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)

	reply, err := m.HandleText(ctx, "u1", "Thai")
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgPickOption}, reply)

	after, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestResetIsIdempotent(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	// No record: same confirmation, no error.
	reply, err := m.HandleText(ctx, "u1", catalog.ResetPhrase)
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgResetDone}, reply)

	_, err = m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)

	reply, err = m.HandleText(ctx, "u1", catalog.ResetPhrase)
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgResetDone}, reply)

	_, err = repo.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartTriggerMidConversationIsAnAnswer(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	_, err := m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)

	// The trigger phrase is not one of question 1's options, so it is an
	// invalid answer, not a fresh start.
	reply, err := m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgPickOption}, reply)

	rec, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CurrentStatus)
	assert.Empty(t, rec.Answers)
}

func TestUnrecognizedTextWithoutRecordIsGuidance(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	reply, err := m.HandleText(ctx, "u1", "hello?")
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgPickTrigger}, reply)

	_, err = repo.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocationGating(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{results: threePlaces()})
	ctx := context.Background()

	// No conversation at all.
	reply, err := m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgNoConversation}, reply)

	// Mid-questionnaire: location is premature and mutates nothing.
	_, err = m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)
	before, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)

	reply, err = m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgQuestionsRemain}, reply)

	after, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTextWhileAwaitingLocationReasksForLocation(t *testing.T) {
	m, _ := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	completeQuestionnaire(t, m, "u1")

	reply, err := m.HandleText(ctx, "u1", "Japanese")
	require.NoError(t, err)
	assert.Equal(t, LocationRequest{Prompt: msgShareLocation}, reply)
}

func TestSuccessfulSearchDeletesRecordOnce(t *testing.T) {
	fetcher := &stubFetcher{results: threePlaces()}
	m, repo := newTestManager(t, fetcher)
	ctx := context.Background()

	completeQuestionnaire(t, m, "u1")

	reply, err := m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	carousel, ok := reply.(ResultCarousel)
	require.True(t, ok, "expected ResultCarousel, got %T", reply)
	assert.Len(t, carousel.Places, 3)

	assert.Equal(t, "restaurant", fetcher.lastQuery.Type)
	assert.Equal(t, "japanese", fetcher.lastQuery.Keyword)
	assert.Equal(t, 500, fetcher.lastQuery.Radius)
	assert.Equal(t, 35.0, fetcher.lastQuery.Latitude)
	assert.Equal(t, 139.0, fetcher.lastQuery.Longitude)

	_, err = repo.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	// A second location event behaves as "no conversation".
	reply, err = m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgNoConversation}, reply)
	assert.Equal(t, 1, fetcher.calls)
}

func TestFetchFailureKeepsRecordForRetry(t *testing.T) {
	fetcher := &stubFetcher{err: places.ErrUnavailable}
	m, repo := newTestManager(t, fetcher)
	ctx := context.Background()

	completeQuestionnaire(t, m, "u1")

	_, err := m.HandleLocation(ctx, "u1", 35.0, 139.0)
	assert.ErrorIs(t, err, places.ErrUnavailable)

	rec, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.AwaitingLocation())

	// Retry succeeds once the provider recovers.
	fetcher.err = nil
	fetcher.results = threePlaces()
	reply, err := m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	assert.IsType(t, ResultCarousel{}, reply)
}

func TestEmptyResultsKeepRecord(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	completeQuestionnaire(t, m, "u1")

	reply, err := m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	assert.Equal(t, PlainText{Text: msgNoResults}, reply)

	rec, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.AwaitingLocation())
}

func TestCarouselIsCappedAtMaxResults(t *testing.T) {
	many := make([]places.Place, 10)
	for i := range many {
		many[i] = places.Place{ID: string(rune('a' + i))}
	}
	fetcher := &stubFetcher{results: many}
	m, _ := newTestManager(t, fetcher)
	ctx := context.Background()

	completeQuestionnaire(t, m, "u1")

	reply, err := m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	carousel := reply.(ResultCarousel)
	assert.Len(t, carousel.Places, 3)
}

func TestConcurrentAnswerLosesWithConflict(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	_, err := m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)

	// Simulate a duplicate delivery racing ahead of this handler's read.
	stale, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.SetAnswer(ctx, "u1", AnswerMutation{
		Property:          "keyword",
		Value:             "japanese",
		NextStatus:        2,
		ExpectedUpdatedAt: stale.UpdatedAt,
	}))

	err = repo.SetAnswer(ctx, "u1", AnswerMutation{
		Property:          "keyword",
		Value:             "italian",
		NextStatus:        2,
		ExpectedUpdatedAt: stale.UpdatedAt,
	})
	assert.ErrorIs(t, err, ErrConflict)

	rec, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "japanese", rec.Answers["keyword"])
}

// completeQuestionnaire walks the restaurant set: trigger, "Japanese", "500m".
func completeQuestionnaire(t *testing.T, m *Manager, userID string) {
	t.Helper()
	ctx := context.Background()
	for _, text := range []string{restaurantTrigger, "Japanese", "500m"} {
		_, err := m.HandleText(ctx, userID, text)
		require.NoError(t, err)
	}
}

func TestLifecycleRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	botMetrics := observemetrics.NewBotMetrics(reg)
	repo := NewInMemoryRepository()
	m := NewManager(ManagerConfig{
		Repository: repo,
		Catalog:    catalog.Default(),
		Fetcher:    &stubFetcher{results: threePlaces()},
		Picker:     places.NewPicker(rand.New(rand.NewSource(1))),
		MaxResults: 3,
		Metrics:    botMetrics,
	})
	ctx := context.Background()

	// One abandoned session, then one carried through to the carousel.
	_, err := m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)
	_, err = m.HandleText(ctx, "u1", catalog.ResetPhrase)
	require.NoError(t, err)

	completeQuestionnaire(t, m, "u1")
	reply, err := m.HandleLocation(ctx, "u1", 35.0, 139.0)
	require.NoError(t, err)
	require.IsType(t, ResultCarousel{}, reply)

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, families, "spotbot_conversation_sessions_total", "outcome", "started"))
	assert.Equal(t, 1.0, counterValue(t, families, "spotbot_conversation_sessions_total", "outcome", "reset"))
	assert.Equal(t, 1.0, counterValue(t, families, "spotbot_conversation_sessions_total", "outcome", "completed"))
	assert.Equal(t, uint64(1), histogramCount(t, families, "spotbot_places_search_latency_seconds", "search_type", "restaurant"))
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name, labelName, labelValue string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func histogramCount(t *testing.T, families []*dto.MetricFamily, name, labelName, labelValue string) uint64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestDoubleStartRaceSurfacesConflict(t *testing.T) {
	m, repo := newTestManager(t, &stubFetcher{})
	ctx := context.Background()

	// First delivery creates the record.
	_, err := m.HandleText(ctx, "u1", restaurantTrigger)
	require.NoError(t, err)

	// A racing create against the same user loses.
	err = repo.Create(ctx, &Record{UserID: "u1", Type: catalog.TypeRestaurant, CurrentStatus: 1})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestStoreFailurePropagates(t *testing.T) {
	boom := errors.New("store down")
	m := NewManager(ManagerConfig{
		Repository: failingRepo{err: boom},
		Catalog:    catalog.Default(),
		Fetcher:    &stubFetcher{},
	})

	_, err := m.HandleText(context.Background(), "u1", restaurantTrigger)
	assert.ErrorIs(t, err, boom)
}

type failingRepo struct{ err error }

func (r failingRepo) Create(ctx context.Context, rec *Record) error { return r.err }
func (r failingRepo) GetByUserID(ctx context.Context, userID string) (*Record, error) {
	return nil, r.err
}
func (r failingRepo) SetAnswer(ctx context.Context, userID string, mut AnswerMutation) error {
	return r.err
}
func (r failingRepo) Delete(ctx context.Context, userID string) error { return r.err }
