package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gmessner/simple-cr/internal/entities"
	"github.com/gmessner/simple-cr/internal/repository"

	"github.com/stretchr/testify/mock"
)

// memRepo is an in-memory ledger with the same guards as the SQL backends.
type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	pushes    []entities.Push
	configs   map[int]entities.ProjectConfig
	insertErr error
}

var _ repository.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{configs: make(map[int]entities.ProjectConfig)}
}

func (r *memRepo) OnStart(_ context.Context) error { return nil }
func (r *memRepo) OnStop(_ context.Context) error  { return nil }

func (r *memRepo) InsertPush(_ context.Context, key entities.PushKey, before, after string) (*entities.Push, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.pushes {
		if keyOf(p) == key && p.IsOpen() {
			return nil, entities.ErrDuplicatePush
		}
	}
	r.nextID++
	p := entities.Push{
		ID:         r.nextID,
		ReceivedAt: time.Now().UTC(),
		UserID:     key.UserID,
		ProjectID:  key.ProjectID,
		Branch:     key.Branch,
		BeforeSHA:  before,
		AfterSHA:   after,
	}
	r.pushes = append(r.pushes, p)
	return &p, nil
}

func (r *memRepo) FindOpenPush(_ context.Context, key entities.PushKey) (*entities.Push, error) {
	res := r.filter(func(p entities.Push) bool { return keyOf(p) == key && p.IsOpen() })
	if len(res) == 0 {
		return nil, nil
	}
	return &res[0], nil
}

func (r *memRepo) FindPendingReviews(_ context.Context, key entities.PushKey) ([]entities.Push, error) {
	return r.filter(func(p entities.Push) bool { return keyOf(p) == key && p.IsPendingReview() }), nil
}

func (r *memRepo) FindByMergeRequest(_ context.Context, key entities.PushKey, mrID int) ([]entities.Push, error) {
	return r.filter(func(p entities.Push) bool { return keyOf(p) == key && p.MergeRequestID == mrID }), nil
}

func (r *memRepo) PushHistory(_ context.Context, key entities.PushKey) ([]entities.Push, error) {
	return r.filter(func(p entities.Push) bool { return keyOf(p) == key }), nil
}

func (r *memRepo) AttachMergeRequest(_ context.Context, pushID int64, mrID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.pushes {
		if r.pushes[i].ID != pushID {
			continue
		}
		if !r.pushes[i].IsOpen() {
			return entities.ErrMergeRequestAttached
		}
		r.pushes[i].MergeRequestID = mrID
		return nil
	}
	return entities.ErrPushNotFound
}

func (r *memRepo) ResolvePush(
	_ context.Context,
	pushID int64,
	when time.Time,
	status string,
	state entities.MergeState,
	mergedByID int,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.pushes {
		p := &r.pushes[i]
		if p.ID != pushID {
			continue
		}
		if p.MergeState == state {
			return false, nil
		}
		if p.MergeState != entities.MergeStateNone {
			return false, entities.ErrPushResolved
		}
		p.MergeState = state
		p.MergeStatusDate = &when
		if status != "" {
			p.MergeStatus = &status
		}
		p.MergedByID = mergedByID
		return true, nil
	}
	return false, entities.ErrPushNotFound
}

func (r *memRepo) ProjectConfig(_ context.Context, projectID int) (*entities.ProjectConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[projectID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (r *memRepo) ListProjectConfigs(_ context.Context) ([]entities.ProjectConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]entities.ProjectConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		res = append(res, cfg)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ProjectID < res[j].ProjectID })
	return res, nil
}

func (r *memRepo) InsertProjectConfig(_ context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertErr != nil {
		return nil, r.insertErr
	}
	if _, ok := r.configs[cfg.ProjectID]; ok {
		return nil, entities.ErrProjectExists
	}
	cfg.ID = int64(len(r.configs) + 1)
	r.configs[cfg.ProjectID] = cfg
	return &cfg, nil
}

func (r *memRepo) UpdateProjectConfig(_ context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[cfg.ProjectID]; !ok {
		return nil, entities.ErrProjectNotManaged
	}
	r.configs[cfg.ProjectID] = cfg
	return &cfg, nil
}

func (r *memRepo) DeleteProjectConfig(_ context.Context, projectID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[projectID]; !ok {
		return entities.ErrProjectNotManaged
	}
	delete(r.configs, projectID)
	return nil
}

func (r *memRepo) filter(keep func(entities.Push) bool) []entities.Push {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []entities.Push
	for i := len(r.pushes) - 1; i >= 0; i-- {
		if keep(r.pushes[i]) {
			res = append(res, r.pushes[i])
		}
	}
	return res
}

func keyOf(p entities.Push) entities.PushKey {
	return entities.PushKey{UserID: p.UserID, ProjectID: p.ProjectID, Branch: p.Branch}
}

type gitlabMock struct{ mock.Mock }

var _ GitLab = (*gitlabMock)(nil)

func (m *gitlabMock) Project(ctx context.Context, projectID int) (*entities.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Project), args.Error(1)
}

func (m *gitlabMock) ProjectByPath(ctx context.Context, path string) (*entities.Project, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Project), args.Error(1)
}

func (m *gitlabMock) User(ctx context.Context, userID int) (*entities.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	u := *args.Get(0).(*entities.User)
	return &u, args.Error(1)
}

func (m *gitlabMock) FindUsersByUsername(ctx context.Context, username string) ([]entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.User), args.Error(1)
}

func (m *gitlabMock) BranchExists(ctx context.Context, projectID int, branch string) (bool, error) {
	args := m.Called(ctx, projectID, branch)
	return args.Bool(0), args.Error(1)
}

func (m *gitlabMock) GroupMembers(ctx context.Context, groupID int) ([]entities.Member, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Member), args.Error(1)
}

func (m *gitlabMock) ProjectMembers(ctx context.Context, projectID int) ([]entities.Member, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Member), args.Error(1)
}

func (m *gitlabMock) CreateMergeRequest(ctx context.Context, draft entities.MergeRequestDraft) (*entities.MergeRequest, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MergeRequest), args.Error(1)
}

func (m *gitlabMock) MergeRequest(ctx context.Context, projectID, iid int) (*entities.MergeRequest, error) {
	args := m.Called(ctx, projectID, iid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MergeRequest), args.Error(1)
}

func (m *gitlabMock) AddProjectHook(ctx context.Context, projectID int, hookURL, token string) (int, error) {
	args := m.Called(ctx, projectID, hookURL, token)
	return args.Int(0), args.Error(1)
}

func (m *gitlabMock) DeleteProjectHook(ctx context.Context, projectID, hookID int) error {
	args := m.Called(ctx, projectID, hookID)
	return args.Error(0)
}

// notifierStub records notifications.
type notifierStub struct {
	mu   sync.Mutex
	sent []entities.Notification
	err  error
}

func (n *notifierStub) Send(_ context.Context, notification entities.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, notification)
	return n.err
}
