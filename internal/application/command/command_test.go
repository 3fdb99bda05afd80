package command

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/progress"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
	"github.com/bizhub-io/gamification-engine/internal/domain/stats"
)

const (
	testUser      = shared.UserID("6f1d2c3b-4a5e-4f60-8b7c-9d0e1f2a3b4c")
	testWorkspace = shared.WorkspaceID("0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memProgressRepo struct {
	mu      sync.Mutex
	records map[progress.Key]*progress.Progress
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: make(map[progress.Key]*progress.Progress)}
}

func (m *memProgressRepo) Get(ctx context.Context, key progress.Key) (*progress.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[key]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProgressRepo) Mutate(ctx context.Context, key progress.Key, fn progress.MutateFn) (*progress.Progress, progress.ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.records[key]
	if !ok {
		p = progress.New(key, time.Time{})
	}
	cp := *p
	res, err := fn(&cp)
	if err != nil {
		return nil, progress.ApplyResult{}, err
	}
	m.records[key] = &cp
	out := cp
	return &out, res, nil
}

func (m *memProgressRepo) ListByUser(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, module string) ([]*progress.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*progress.Progress
	for key, p := range m.records {
		if key.UserID == userID && key.WorkspaceID == workspaceID && (module == "" || key.Module == module) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memProgressRepo) ListByUserAction(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, action shared.Action) ([]*progress.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*progress.Progress
	for key, p := range m.records {
		if key.UserID == userID && key.WorkspaceID == workspaceID && key.Action == action {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memProgressRepo) RecentlyActiveUsers(ctx context.Context, workspaceID shared.WorkspaceID, withinHours int, page shared.Pagination) ([]shared.UserID, error) {
	return nil, nil
}

type memCatalog struct {
	mu     sync.Mutex
	byName map[string]*achievement.Achievement
}

func newMemCatalog() *memCatalog {
	return &memCatalog{byName: make(map[string]*achievement.Achievement)}
}

func (m *memCatalog) List(ctx context.Context, filter achievement.CatalogFilter) ([]*achievement.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*achievement.Achievement
	for _, a := range m.byName {
		if filter.ActiveOnly && !a.Active {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCatalog) GetByID(ctx context.Context, id string) (*achievement.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byName {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrAchievementNotFound
}

func (m *memCatalog) UpsertByName(ctx context.Context, a *achievement.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byName[a.Name]; ok {
		cp := *a
		cp.ID = existing.ID
		m.byName[a.Name] = &cp
		return nil
	}
	cp := *a
	m.byName[a.Name] = &cp
	return nil
}

func (m *memCatalog) idByName(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byName[name]; ok {
		return a.ID
	}
	return ""
}

type memState struct {
	mu      sync.Mutex
	catalog *memCatalog
	states  map[string]*achievement.UserAchievement
}

func newMemState(catalog *memCatalog) *memState {
	return &memState{catalog: catalog, states: make(map[string]*achievement.UserAchievement)}
}

func stateKey(userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string) string {
	return fmt.Sprintf("%s|%s|%s", userID, workspaceID, achievementID)
}

func (m *memState) ListByUser(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID) ([]*achievement.UserAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*achievement.UserAchievement
	for _, ua := range m.states {
		if ua.UserID == userID && ua.WorkspaceID == workspaceID {
			cp := *ua
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memState) Get(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string) (*achievement.UserAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.states[stateKey(userID, workspaceID, achievementID)]
	if !ok {
		return nil, shared.NewDomainError("achievement", "GetState", shared.ErrNotFound, "state row not found")
	}
	cp := *ua
	return &cp, nil
}

func (m *memState) TryComplete(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string, earnedAt time.Time, metadata map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(userID, workspaceID, achievementID)
	ua, ok := m.states[key]
	if !ok {
		ua = achievement.NewUserAchievement(userID, workspaceID, achievementID, earnedAt)
		m.states[key] = ua
	}
	if ua.IsCompleted {
		return false, nil
	}
	if err := ua.Complete(earnedAt); err != nil {
		return false, err
	}
	ua.Metadata = metadata
	return true, nil
}

func (m *memState) UpdateProgress(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string, pct shared.Percent, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(userID, workspaceID, achievementID)
	ua, ok := m.states[key]
	if !ok {
		ua = achievement.NewUserAchievement(userID, workspaceID, achievementID, now)
		m.states[key] = ua
	}
	ua.UpdateProgress(pct, now)
	return nil
}

func (m *memState) CompletedTotals(ctx context.Context, workspaceID shared.WorkspaceID, limit int) ([]achievement.CompletedTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byUser := make(map[shared.UserID]*achievement.CompletedTotal)
	for _, ua := range m.states {
		if ua.WorkspaceID != workspaceID || !ua.IsCompleted {
			continue
		}
		t, ok := byUser[ua.UserID]
		if !ok {
			t = &achievement.CompletedTotal{UserID: ua.UserID}
			byUser[ua.UserID] = t
		}
		t.TotalAchievements++
		if def, err := m.catalog.GetByID(ctx, ua.AchievementID); err == nil {
			t.TotalPoints += def.Points.Int()
		}
		if ua.EarnedAt != nil && ua.EarnedAt.After(t.LastEarnedAt) {
			t.LastEarnedAt = *ua.EarnedAt
		}
	}

	out := make([]achievement.CompletedTotal, 0, len(byUser))
	for _, t := range byUser {
		out = append(out, *t)
	}
	return out, nil
}

type memHistory struct {
	mu   sync.Mutex
	sums map[shared.Action]float64
}

func newMemHistory() *memHistory {
	return &memHistory{sums: make(map[shared.Action]float64)}
}

func (m *memHistory) Append(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, module string, action shared.Action, value float64, metadata map[string]interface{}, occurredAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sums[action] += value
	return nil
}

func (m *memHistory) SumValues(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID) (map[shared.Action]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[shared.Action]float64, len(m.sums))
	for k, v := range m.sums {
		out[k] = v
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type fixture struct {
	clock        *shared.FixedClock
	progressRepo *memProgressRepo
	catalog      *memCatalog
	state        *memState
	history      *memHistory
	record       *RecordActionHandler
	evaluate     *EvaluateHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := shared.NewFixedClock(time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC))
	progressRepo := newMemProgressRepo()
	catalog := newMemCatalog()
	state := newMemState(catalog)
	history := newMemHistory()

	seeded, err := NewInitializeCatalogHandler(catalog, clock, nil).Handle(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(achievement.DefaultCatalog()), seeded)

	aggregator := stats.NewAggregator(progressRepo, history)
	return &fixture{
		clock:        clock,
		progressRepo: progressRepo,
		catalog:      catalog,
		state:        state,
		history:      history,
		record:       NewRecordActionHandler(progressRepo, history, nil, clock, nil),
		evaluate:     NewEvaluateHandler(catalog, state, aggregator, nil, clock, nil),
	}
}

func (f *fixture) recordAction(t *testing.T, action string, increment float64, metadata map[string]interface{}) *RecordActionResult {
	t.Helper()
	res, err := f.record.Handle(context.Background(), RecordActionCommand{
		UserID:      testUser,
		WorkspaceID: testWorkspace,
		Module:      "social",
		Action:      shared.Action(action),
		Increment:   increment,
		Metadata:    metadata,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) evaluateAll(t *testing.T) []achievement.Earned {
	t.Helper()
	earned, err := f.evaluate.Handle(context.Background(), EvaluateCommand{
		UserID:      testUser,
		WorkspaceID: testWorkspace,
	})
	require.NoError(t, err)
	return earned
}

func earnedNames(earned []achievement.Earned) []string {
	names := make([]string, 0, len(earned))
	for _, e := range earned {
		names = append(names, e.Achievement.Name)
	}
	return names
}

// ─────────────────────────────────────────────────────────────────────────────
// Scenarios
// ─────────────────────────────────────────────────────────────────────────────

func TestFirstActionEarnsFirstPost(t *testing.T) {
	f := newFixture(t)

	res := f.recordAction(t, "post_created", 1, nil)
	assert.Equal(t, 1.0, res.Progress.CurrentValue)
	assert.Equal(t, 1, res.Progress.StreakCount)
	assert.True(t, res.StreakExtended)

	earned := f.evaluateAll(t)
	assert.Contains(t, earnedNames(earned), "First Post")
}

func TestTenthPostCompletesVolumeAchievement(t *testing.T) {
	f := newFixture(t)

	f.recordAction(t, "post_created", 9, nil)
	earned := f.evaluateAll(t)
	assert.NotContains(t, earnedNames(earned), "Power Poster")

	// Threshold crossed within this pass; both checks see the final counter.
	f.recordAction(t, "post_created", 1, nil)
	earned = f.evaluateAll(t)
	assert.Contains(t, earnedNames(earned), "Power Poster")
}

func TestNegativeIncrementRejectedWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.recordAction(t, "post_created", 3, nil)

	_, err := f.record.Handle(context.Background(), RecordActionCommand{
		UserID:      testUser,
		WorkspaceID: testWorkspace,
		Module:      "social",
		Action:      "post_created",
		Increment:   -1,
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	p, err := f.progressRepo.Get(context.Background(), progress.Key{
		UserID: testUser, WorkspaceID: testWorkspace, Module: "social", Action: "post_created",
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, p.CurrentValue)
}

func TestEvaluationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.recordAction(t, "post_created", 1, nil)

	first := f.evaluateAll(t)
	require.NotEmpty(t, first)

	second := f.evaluateAll(t)
	assert.Empty(t, second)
}

func TestConcurrentEvaluationAwardsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.recordAction(t, "post_created", 1, nil)

	const evaluators = 10
	results := make(chan int, evaluators)

	var wg sync.WaitGroup
	for i := 0; i < evaluators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			earned, err := f.evaluate.Handle(context.Background(), EvaluateCommand{
				UserID:      testUser,
				WorkspaceID: testWorkspace,
			})
			if err != nil {
				results <- 0
				return
			}
			count := 0
			for _, e := range earned {
				if e.Achievement.Name == "First Post" {
					count++
				}
			}
			results <- count
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for c := range results {
		total += c
	}
	assert.Equal(t, 1, total, "exactly one evaluator must win the completion")
}

func TestValueCriterionSumsEventHistory(t *testing.T) {
	f := newFixture(t)

	// Two closed deals worth $6,000 and $5,000: count is 2, value is 11,000.
	f.record.Handle(context.Background(), RecordActionCommand{
		UserID: testUser, WorkspaceID: testWorkspace, Module: "crm",
		Action: "deal_closed", Increment: 1,
		Metadata: map[string]interface{}{"value": 6000.0},
	})
	f.record.Handle(context.Background(), RecordActionCommand{
		UserID: testUser, WorkspaceID: testWorkspace, Module: "crm",
		Action: "deal_closed", Increment: 1,
		Metadata: map[string]interface{}{"value": 5000.0},
	})

	earned := f.evaluateAll(t)
	names := earnedNames(earned)
	assert.Contains(t, names, "Rainmaker", "value threshold of 10000 is met by summed payloads")
	assert.NotContains(t, names, "Deal Maker", "count is 2, below the 5-deal threshold")
}

func TestStreakCriterionAcrossConsecutiveDays(t *testing.T) {
	f := newFixture(t)

	for day := 0; day < 7; day++ {
		f.recordAction(t, "post_created", 1, nil)
		f.clock.AdvanceDays(1)
	}

	earned := f.evaluateAll(t)
	assert.Contains(t, earnedNames(earned), "Daily Habit")
}

func TestMissedDayResetsStreakProgress(t *testing.T) {
	f := newFixture(t)

	for day := 0; day < 3; day++ {
		f.recordAction(t, "post_created", 1, nil)
		f.clock.AdvanceDays(1)
	}
	f.clock.AdvanceDays(1) // gap day

	res := f.recordAction(t, "post_created", 1, nil)
	assert.True(t, res.StreakReset)
	assert.Equal(t, 1, res.Progress.StreakCount)
}

func TestTargetOnlyUpdateKeepsCounter(t *testing.T) {
	f := newFixture(t)
	f.recordAction(t, "post_created", 5, nil)

	target := 10.0
	res, err := f.record.Handle(context.Background(), RecordActionCommand{
		UserID:      testUser,
		WorkspaceID: testWorkspace,
		Module:      "social",
		Action:      "post_created",
		Increment:   0,
		Target:      &target,
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Progress.CurrentValue)
	require.NotNil(t, res.Progress.TargetValue)
	assert.Equal(t, 10.0, *res.Progress.TargetValue)
	assert.Equal(t, 50.0, res.Progress.Percentage.Float64())
}

func TestInitializeCatalogIsIdempotent(t *testing.T) {
	f := newFixture(t)

	firstID := f.catalog.idByName("First Post")
	require.NotEmpty(t, firstID)

	seeded, err := NewInitializeCatalogHandler(f.catalog, f.clock, nil).Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(achievement.DefaultCatalog()), seeded)

	// Re-seeding keeps existing IDs and does not duplicate.
	assert.Equal(t, firstID, f.catalog.idByName("First Post"))
	all, err := f.catalog.List(context.Background(), achievement.CatalogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(achievement.DefaultCatalog()))
}

type conflictingRepo struct {
	memProgressRepo
	attempts int
}

func (c *conflictingRepo) Mutate(ctx context.Context, key progress.Key, fn progress.MutateFn) (*progress.Progress, progress.ApplyResult, error) {
	c.attempts++
	return nil, progress.ApplyResult{}, shared.ErrLockNotAcquired
}

func TestExhaustedLockBudgetSurfacesRetryableConflict(t *testing.T) {
	repo := &conflictingRepo{memProgressRepo: *newMemProgressRepo()}
	clock := shared.NewFixedClock(time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC))
	handler := NewRecordActionHandler(repo, nil, nil, clock, nil)

	_, err := handler.Handle(context.Background(), RecordActionCommand{
		UserID:      testUser,
		WorkspaceID: testWorkspace,
		Module:      "social",
		Action:      "post_created",
		Increment:   1,
	})
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.Greater(t, repo.attempts, 1, "conflicts are retried before surfacing")
}

func TestProgressFeedbackRecordedForIncomplete(t *testing.T) {
	f := newFixture(t)
	f.recordAction(t, "post_created", 5, nil)
	f.evaluateAll(t)

	powerPosterID := f.catalog.idByName("Power Poster")
	st, err := f.state.Get(context.Background(), testUser, testWorkspace, powerPosterID)
	require.NoError(t, err)
	assert.False(t, st.IsCompleted)
	assert.Equal(t, 50.0, st.Progress.Float64())
}
