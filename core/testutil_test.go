package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type testLogger struct{}

func (testLogger) Criticalf(string, ...interface{}) {}
func (testLogger) Debugf(string, ...interface{})    {}
func (testLogger) Errorf(string, ...interface{})    {}
func (testLogger) Noticef(string, ...interface{})   {}
func (testLogger) Warningf(string, ...interface{})  {}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }
func newRunID() uuid.UUID     { return uuid.New() }

func mustZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type fakeConfigStore struct {
	mu        sync.Mutex
	configs   map[string]*JobConfig
	listErr   error
	listCalls int
	saved     []*JobConfig
}

func newFakeConfigStore(configs ...*JobConfig) *fakeConfigStore {
	s := &fakeConfigStore{configs: make(map[string]*JobConfig)}
	for _, cfg := range configs {
		s.configs[cfg.Key()] = cfg
	}
	return s
}

func (s *fakeConfigStore) GetConfig(_ context.Context, appName, jobName string) (*JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[appName+"-"+jobName]
	if !ok {
		return nil, NotFoundf("job config not found for: %s-%s", appName, jobName)
	}
	cp := *cfg
	return &cp, nil
}

func (s *fakeConfigStore) ListEnabledConfigs(_ context.Context) ([]*JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*JobConfig
	for _, cfg := range s.configs {
		if cfg.Enabled {
			cp := *cfg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeConfigStore) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *fakeConfigStore) SaveConfig(_ context.Context, cfg *JobConfig) (*JobConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.configs[cfg.Key()] = &cp
	s.saved = append(s.saved, &cp)
	return &cp, nil
}

type fakeRunStore struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]*JobRun
	created int
}

func newFakeRunStore(runs ...*JobRun) *fakeRunStore {
	s := &fakeRunStore{runs: make(map[uuid.UUID]*JobRun)}
	for _, run := range runs {
		s.runs[run.ID] = run
	}
	return s
}

func (s *fakeRunStore) GetRun(_ context.Context, id uuid.UUID) (*JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, NotFoundf("job run not found for id: %s", id)
	}
	cp := *run
	return &cp, nil
}

func (s *fakeRunStore) LatestRunSince(_ context.Context, appName, jobName string, since time.Time) (*JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *JobRun
	for _, run := range s.runs {
		if run.AppName != appName || run.JobName != jobName || run.TriggeredAt.Before(since) {
			continue
		}
		if latest == nil || run.TriggeredAt.After(latest.TriggeredAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, NotFoundf("no job run since %s for: %s-%s", since, appName, jobName)
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeRunStore) PendingRuns(_ context.Context, updatedSince time.Time) ([]*JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*JobRun
	for _, run := range s.runs {
		if !run.UpdatedAt.Before(updatedSince) {
			cp := *run
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeRunStore) CreateRun(_ context.Context, appName, jobName string, triggeredAt time.Time) (*JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := &JobRun{
		ID:          uuid.New(),
		AppName:     appName,
		JobName:     jobName,
		TriggeredAt: triggeredAt,
		Status:      RunInProgress,
		Stages:      []JobRunStage{},
		CreatedAt:   triggeredAt,
		UpdatedAt:   triggeredAt,
	}
	s.runs[run.ID] = run
	s.created++
	cp := *run
	return &cp, nil
}

func (s *fakeRunStore) SaveRun(_ context.Context, run *JobRun) (*JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeRunStore) all() []*JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*JobRun
	for _, run := range s.runs {
		cp := *run
		out = append(out, &cp)
	}
	return out
}

type sentAlert struct {
	Alert      Alert
	ChannelIDs string
}

type fakeAlertSender struct {
	mu    sync.Mutex
	sent  []sentAlert
	errOn map[string]error
}

func newFakeAlertSender() *fakeAlertSender {
	return &fakeAlertSender{errOn: make(map[string]error)}
}

func (s *fakeAlertSender) Send(_ context.Context, alert Alert, channelIDs string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errOn[channelIDs]; ok {
		return err
	}
	s.sent = append(s.sent, sentAlert{Alert: alert, ChannelIDs: channelIDs})
	return nil
}

func (s *fakeAlertSender) alerts() []sentAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentAlert, len(s.sent))
	copy(out, s.sent)
	return out
}
