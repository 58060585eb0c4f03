package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hayashida/spotbot/internal/catalog"
	observemetrics "github.com/hayashida/spotbot/internal/observability/metrics"
	"github.com/hayashida/spotbot/internal/places"
	"github.com/hayashida/spotbot/pkg/logging"
)

// Reply texts for user-recoverable situations. These are conversation
// guidance, not faults.
const (
	msgResetDone       = "Your conversation has been reset."
	msgPickTrigger     = "Tap one of the menu options to start a search."
	msgPickOption      = "Please select one of the offered choices."
	msgShareLocation   = "Please share your current location."
	msgQuestionsRemain = "Please answer the remaining questions before sharing your location."
	msgNoConversation  = "There is no search in progress. Start one from the menu."
	msgNoResults       = "No places found nearby. Try sharing your location again."
)

const defaultMaxResults = 3

// Manager is the conversation state machine. It holds no session state of its
// own: every decision is a function of the stored record and one inbound
// event.
type Manager struct {
	repo       Repository
	catalog    *catalog.Catalog
	fetcher    places.Fetcher
	picker     *places.Picker
	maxResults int
	logger     *logging.Logger
	metrics    *observemetrics.BotMetrics
	tracer     trace.Tracer
}

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Repository Repository
	Catalog    *catalog.Catalog
	Fetcher    places.Fetcher
	Picker     *places.Picker
	MaxResults int
	Logger     *logging.Logger
	Metrics    *observemetrics.BotMetrics
}

// NewManager builds a state machine around the given collaborators.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Repository == nil {
		panic("conversation: repository cannot be nil")
	}
	if cfg.Catalog == nil {
		panic("conversation: catalog cannot be nil")
	}
	if cfg.Fetcher == nil {
		panic("conversation: fetcher cannot be nil")
	}
	picker := cfg.Picker
	if picker == nil {
		picker = places.NewPicker(nil)
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		repo:       cfg.Repository,
		catalog:    cfg.Catalog,
		fetcher:    cfg.Fetcher,
		picker:     picker,
		maxResults: maxResults,
		logger:     logger,
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer("spotbot.internal.conversation.manager"),
	}
}

// HandleText advances the conversation with a free-form text event and
// returns the reply descriptor. User-input problems come back as guidance
// messages with a nil error; only configuration and collaborator faults are
// returned as errors.
func (m *Manager) HandleText(ctx context.Context, userID, text string) (OutboundMessage, error) {
	ctx, span := m.tracer.Start(ctx, "conversation.handle_text")
	defer span.End()

	if text == catalog.ResetPhrase {
		if err := m.repo.Delete(ctx, userID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: reset: %w", err)
		}
		m.logger.Info("conversation reset", "user_id", userID)
		m.metrics.ObserveSession("reset")
		return PlainText{Text: msgResetDone}, nil
	}

	rec, err := m.repo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return m.handleAnswer(ctx, rec, text)
	case errors.Is(err, ErrNotFound):
		return m.startConversation(ctx, userID, text)
	default:
		span.RecordError(err)
		return nil, err
	}
}

func (m *Manager) startConversation(ctx context.Context, userID, text string) (OutboundMessage, error) {
	searchType, ok := m.catalog.TypeForTrigger(text)
	if !ok {
		return PlainText{Text: msgPickTrigger}, nil
	}
	set, err := m.catalog.SetFor(searchType)
	if err != nil {
		return nil, err
	}
	first, err := set.Question(set.First())
	if err != nil {
		return nil, err
	}

	rec := &Record{
		UserID:        userID,
		Type:          searchType,
		CurrentStatus: first.ID,
		Answers:       map[string]string{},
	}
	if err := m.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	m.logger.Info("conversation started", "user_id", userID, "search_type", searchType)
	m.metrics.ObserveSession("started")
	return TextWithOptions{Prompt: first.Prompt, Options: first.Labels()}, nil
}

func (m *Manager) handleAnswer(ctx context.Context, rec *Record, text string) (OutboundMessage, error) {
	if rec.AwaitingLocation() {
		// The questionnaire is done; the only useful text here is a reset,
		// which was handled earlier. Re-ask for the location.
		return LocationRequest{Prompt: msgShareLocation}, nil
	}

	set, err := m.catalog.SetFor(rec.Type)
	if err != nil {
		return nil, err
	}
	q, err := set.Question(rec.CurrentStatus)
	if err != nil {
		return nil, err
	}

	value, ok := q.Resolve(text)
	if !ok {
		return PlainText{Text: msgPickOption}, nil
	}

	next, hasNext, err := set.Next(rec.CurrentStatus)
	if err != nil {
		return nil, err
	}
	nextStatus := StatusAwaitingLocation
	if hasNext {
		nextStatus = next
	}

	mut := AnswerMutation{
		Property:          q.Property,
		Value:             value,
		NextStatus:        nextStatus,
		ExpectedUpdatedAt: rec.UpdatedAt,
	}
	if err := m.repo.SetAnswer(ctx, rec.UserID, mut); err != nil {
		return nil, err
	}

	if !hasNext {
		return LocationRequest{Prompt: msgShareLocation}, nil
	}
	nextQ, err := set.Question(next)
	if err != nil {
		return nil, err
	}
	return TextWithOptions{Prompt: nextQ.Prompt, Options: nextQ.Labels()}, nil
}

// HandleLocation completes the conversation with a shared location: it runs
// the nearby search, deletes the record on success, and returns the carousel
// descriptor. Premature locations are guidance messages, not faults.
func (m *Manager) HandleLocation(ctx context.Context, userID string, latitude, longitude float64) (OutboundMessage, error) {
	ctx, span := m.tracer.Start(ctx, "conversation.handle_location")
	defer span.End()

	rec, err := m.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return PlainText{Text: msgNoConversation}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !rec.AwaitingLocation() {
		return PlainText{Text: msgQuestionsRemain}, nil
	}

	query, err := buildQuery(rec, latitude, longitude)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	searchStart := time.Now()
	results, err := m.fetcher.Search(ctx, query)
	if err != nil {
		// Record stays so the user can retry by sharing again.
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: search failed: %w", err)
	}
	m.metrics.ObserveSearchLatency(rec.Type, time.Since(searchStart).Seconds())
	if len(results) == 0 {
		return PlainText{Text: msgNoResults}, nil
	}

	if err := m.repo.Delete(ctx, userID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	picked := m.picker.Pick(results, m.maxResults)
	m.logger.Info("conversation completed",
		"user_id", userID,
		"search_type", rec.Type,
		"results", len(results),
		"shown", len(picked),
	)
	m.metrics.ObserveSession("completed")
	return ResultCarousel{Places: picked}, nil
}

func buildQuery(rec *Record, latitude, longitude float64) (places.SearchQuery, error) {
	radiusStr, ok := rec.Answers["radius"]
	if !ok {
		return places.SearchQuery{}, fmt.Errorf("conversation: record for %s has no radius answer", rec.UserID)
	}
	radius, err := strconv.Atoi(radiusStr)
	if err != nil {
		return places.SearchQuery{}, fmt.Errorf("conversation: invalid radius answer %q: %w", radiusStr, err)
	}
	return places.SearchQuery{
		Type:      rec.Type,
		Keyword:   rec.Answers["keyword"],
		Radius:    radius,
		Latitude:  latitude,
		Longitude: longitude,
	}, nil
}
