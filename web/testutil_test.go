package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dagwatch/dagwatch/core"
	"github.com/dagwatch/dagwatch/notify"
)

type testLogger struct{}

func (testLogger) Criticalf(string, ...interface{}) {}
func (testLogger) Debugf(string, ...interface{})    {}
func (testLogger) Errorf(string, ...interface{})    {}
func (testLogger) Noticef(string, ...interface{})   {}
func (testLogger) Warningf(string, ...interface{})  {}

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	configs  map[string]*core.JobConfig
	runs     map[uuid.UUID]*core.JobRun
	channels map[string]*core.Channel
	settings core.Settings
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs:  make(map[string]*core.JobConfig),
		runs:     make(map[uuid.UUID]*core.JobRun),
		channels: make(map[string]*core.Channel),
		settings: core.Settings{
			SuccessRetentionDays:  7,
			FailureRetentionDays:  30,
			MaxStageDurationHours: 24,
		},
	}
}

func (s *fakeStore) GetConfig(_ context.Context, appName, jobName string) (*core.JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[appName+"-"+jobName]
	if !ok {
		return nil, core.NotFoundf("job config not found for: %s-%s", appName, jobName)
	}
	cp := *cfg
	return &cp, nil
}

func (s *fakeStore) ListEnabledConfigs(_ context.Context) ([]*core.JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.JobConfig
	for _, cfg := range s.configs {
		if cfg.Enabled {
			cp := *cfg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) SaveConfig(_ context.Context, cfg *core.JobConfig) (*core.JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.Key()]; !ok {
		return nil, core.NotFoundf("job config not found for: %s-%s", cfg.AppName, cfg.JobName)
	}
	cp := *cfg
	s.configs[cfg.Key()] = &cp
	return &cp, nil
}

func (s *fakeStore) ListConfigs(_ context.Context) ([]*core.JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.JobConfig
	for _, cfg := range s.configs {
		cp := *cfg
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) ListConfigsByApp(_ context.Context, appName string) ([]*core.JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.JobConfig
	for _, cfg := range s.configs {
		if cfg.AppName == appName {
			cp := *cfg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAppNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for _, cfg := range s.configs {
		seen[cfg.AppName] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeStore) InsertConfig(_ context.Context, cfg *core.JobConfig) (*core.JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.Key()]; ok {
		return nil, core.Conflictf("job config already exists for: %s-%s", cfg.AppName, cfg.JobName)
	}
	cp := *cfg
	s.configs[cfg.Key()] = &cp
	return &cp, nil
}

func (s *fakeStore) GetRun(_ context.Context, id uuid.UUID) (*core.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, core.NotFoundf("job run not found for id: %s", id)
	}
	cp := *run
	return &cp, nil
}

func (s *fakeStore) LatestRunSince(_ context.Context, appName, jobName string, since time.Time) (*core.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *core.JobRun
	for _, run := range s.runs {
		if run.AppName != appName || run.JobName != jobName || run.TriggeredAt.Before(since) {
			continue
		}
		if latest == nil || run.TriggeredAt.After(latest.TriggeredAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, core.NotFoundf("no job run since %s for: %s-%s", since, appName, jobName)
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeStore) PendingRuns(_ context.Context, updatedSince time.Time) ([]*core.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.JobRun
	for _, run := range s.runs {
		if !run.UpdatedAt.Before(updatedSince) {
			cp := *run
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) RecentRuns(_ context.Context, limit int) ([]*core.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.JobRun
	for _, run := range s.runs {
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.After(out[j].TriggeredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) CreateRun(_ context.Context, appName, jobName string, triggeredAt time.Time) (*core.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := &core.JobRun{
		ID:          uuid.New(),
		AppName:     appName,
		JobName:     jobName,
		TriggeredAt: triggeredAt,
		Status:      core.RunInProgress,
		Stages:      []core.JobRunStage{},
		CreatedAt:   triggeredAt,
		UpdatedAt:   triggeredAt,
	}
	s.runs[run.ID] = run
	cp := *run
	return &cp, nil
}

func (s *fakeStore) SaveRun(_ context.Context, run *core.JobRun) (*core.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeStore) ChannelByName(_ context.Context, name string) (*core.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return nil, core.NotFoundf("channel not found: %s", name)
	}
	cp := *ch
	return &cp, nil
}

func (s *fakeStore) ListChannels(_ context.Context) ([]*core.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Channel
	for _, ch := range s.channels {
		cp := *ch
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) InsertChannel(_ context.Context, ch *core.Channel) (*core.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[ch.Name]; ok {
		return nil, core.Conflictf("channel already exists: %s", ch.Name)
	}
	cp := *ch
	s.channels[ch.Name] = &cp
	return &cp, nil
}

func (s *fakeStore) UpdateChannel(_ context.Context, ch *core.Channel) (*core.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[ch.Name]; !ok {
		return nil, core.NotFoundf("channel not found: %s", ch.Name)
	}
	cp := *ch
	s.channels[ch.Name] = &cp
	return &cp, nil
}

func (s *fakeStore) GetSettings(_ context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *fakeStore) SaveSettings(_ context.Context, in core.Settings) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = in
	return s.settings, nil
}

func (s *fakeStore) channelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

type serverFixture struct {
	server *Server
	store  *fakeStore
	cache  *core.SettingsCache
	clock  *core.FakeClock
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	st := newFakeStore()
	cache := core.NewSettingsCache(st.settings)
	clock := core.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 30, 0, time.UTC))
	dispatcher := notify.NewDispatcher(st, testLogger{}, notify.NewGchatPlugin(), notify.NewEmailPlugin())
	ingestor := core.NewIngestor(st, st, dispatcher, cache, testLogger{}, clock)

	srv := NewServer("127.0.0.1:0", st, dispatcher, ingestor, cache, testLogger{}, clock)
	return &serverFixture{server: srv, store: st, cache: cache, clock: clock}
}

type jsendResponse struct {
	Status  string                     `json:"status"`
	Data    map[string]json.RawMessage `json:"data"`
	Reasons map[string]string          `json:"reasons"`
	Message string                     `json:"message"`
	Code    int                        `json:"code"`
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var resp jsendResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp),
			"response was not valid JSON: %s", rec.Body.String())
	}
	return rec, resp
}

func (f *serverFixture) seedConfig(t *testing.T, cfg *core.JobConfig) {
	t.Helper()
	_, err := f.store.InsertConfig(context.Background(), cfg)
	require.NoError(t, err)
}

func (f *serverFixture) seedChannel(t *testing.T, ch *core.Channel) {
	t.Helper()
	_, err := f.store.InsertChannel(context.Background(), ch)
	require.NoError(t, err)
}

func scheduledConfig() *core.JobConfig {
	schedule := "0 0 5 * * *"
	zone := "America/Los_Angeles"
	start, complete := int64(60), int64(600)
	return &core.JobConfig{
		AppName:  "acme",
		JobName:  "nightly",
		Schedule: &schedule,
		ZoneID:   &zone,
		Enabled:  true,
		Stages:   []core.JobStageConfig{{Name: "ingest", Start: &start, Complete: &complete}},
	}
}
