package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/repository"
)

// =========================================================================
// IN-MEMORY STORE
// =========================================================================
//
// memStore implements every repository interface on top of plain maps so
// service tests run without SQLite. It copies values in and out so a test
// can never mutate stored state through a returned pointer.

type memStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	events map[string]*model.Event
	photos map[string]*model.Photo
	nextID int
	clock  time.Time

	// failWith makes the named method return the error.
	failWith map[string]error
	// updateUserNameCalls counts writes so tests can assert "no write".
	updateUserNameCalls int
	updateEventCalls    int
}

var (
	_ repository.UserRepository  = (*memStore)(nil)
	_ repository.EventRepository = (*memStore)(nil)
	_ repository.PhotoRepository = (*memStore)(nil)
	_ repository.UsageRepository = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*model.User),
		events:   make(map[string]*model.Event),
		photos:   make(map[string]*model.Photo),
		failWith: make(map[string]error),
		clock:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// tick returns a strictly increasing timestamp so ordering is deterministic.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) fail(method string) error {
	return m.failWith[method]
}

// ----- users -----

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("User", id)
	}
	c := *u
	return &c, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFoundMsg("user not found")
}

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return err
	}
	if _, ok := m.users[user.ID]; ok {
		return apperror.Conflict("User", "id", user.ID)
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("User", "email", user.Email)
		}
	}
	user.CreatedAt = m.tick()
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *memStore) UpdateUserName(_ context.Context, id string, name *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateUserNameCalls++
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("User", id)
	}
	u.Name = name
	return nil
}

func (m *memStore) UpdateUserEmail(_ context.Context, id, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateUserEmail"); err != nil {
		return err
	}
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("User", id)
	}
	for otherID, other := range m.users {
		if otherID != id && strings.EqualFold(other.Email, email) {
			return apperror.Conflict("User", "email", email)
		}
	}
	u.Email = email
	return nil
}

func (m *memStore) UpdateUserAvatar(_ context.Context, id, url string, size model.FileSize) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("User", id)
	}
	u.AvatarURL = &url
	u.AvatarFileSize = size
	return nil
}

// ----- events -----

func (m *memStore) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id("evt")
	e.CreatedAt = m.tick()
	c := *e
	m.events[e.ID] = &c
	return nil
}

func (m *memStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetEvent"); err != nil {
		return nil, err
	}
	e, ok := m.events[id]
	if !ok {
		return nil, apperror.NotFound("Event", id)
	}
	c := *e
	return &c, nil
}

func (m *memStore) ListEventsByHost(_ context.Context, hostID string, opts repository.ListOptions) ([]model.Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Event
	for _, e := range m.events {
		if e.HostID == hostID {
			all = append(all, *e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, opts), len(all), nil
}

func (m *memStore) UpdateEvent(_ context.Context, id string, apply func(*model.Event) error) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateEventCalls++
	e, ok := m.events[id]
	if !ok {
		return nil, apperror.NotFound("Event", id)
	}
	c := *e
	if err := apply(&c); err != nil {
		return nil, err
	}
	now := m.tick()
	c.UpdatedAt = &now
	m.events[id] = &c
	out := c
	return &out, nil
}

func (m *memStore) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return apperror.NotFound("Event", id)
	}
	delete(m.events, id)
	for pid, p := range m.photos {
		if p.EventID == id {
			delete(m.photos, pid)
		}
	}
	return nil
}

func (m *memStore) BulkUpdateEvents(_ context.Context, hostID string, ids []string, action model.EventBulkAction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		e, ok := m.events[id]
		if !ok || e.HostID != hostID {
			continue
		}
		switch action {
		case model.BulkArchive:
			e.IsArchived = true
		case model.BulkActivate:
			e.IsActive = true
		case model.BulkDeactivate:
			e.IsActive = false
		}
		n++
	}
	return n, nil
}

// ----- photos -----

func (m *memStore) CreatePhoto(_ context.Context, p *model.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id("pho")
	p.UploadedAt = m.tick()
	c := *p
	m.photos[p.ID] = &c
	return nil
}

func (m *memStore) GetPhoto(_ context.Context, eventID, photoID string) (*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[photoID]
	if !ok || p.EventID != eventID {
		return nil, apperror.NotFound("Photo", photoID)
	}
	c := *p
	return &c, nil
}

func (m *memStore) eventPhotos(eventID string, approvedOnly bool) []model.Photo {
	var out []model.Photo
	for _, p := range m.photos {
		if p.EventID == eventID && (!approvedOnly || p.Approved) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memStore) ListPhotos(_ context.Context, eventID string, approvedOnly bool, opts repository.ListOptions) ([]model.Photo, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.eventPhotos(eventID, approvedOnly)
	return window(all, opts), len(all), nil
}

func (m *memStore) ListAllPhotos(_ context.Context, eventID string) ([]model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventPhotos(eventID, false), nil
}

func (m *memStore) CountPhotos(_ context.Context, eventID string, approvedOnly bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.eventPhotos(eventID, approvedOnly)), nil
}

func (m *memStore) UpdatePhoto(_ context.Context, eventID, photoID string, apply func(*model.Photo)) (*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[photoID]
	if !ok || p.EventID != eventID {
		return nil, apperror.NotFound("Photo", photoID)
	}
	c := *p
	apply(&c)
	m.photos[photoID] = &c
	out := c
	return &out, nil
}

func (m *memStore) DeletePhoto(_ context.Context, eventID, photoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[photoID]
	if !ok || p.EventID != eventID {
		return apperror.NotFound("Photo", photoID)
	}
	delete(m.photos, photoID)
	return nil
}

func (m *memStore) DeletePhotos(_ context.Context, eventID string, ids []string) ([]model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted []model.Photo
	for _, id := range ids {
		p, ok := m.photos[id]
		if !ok || p.EventID != eventID {
			continue
		}
		deleted = append(deleted, *p)
		delete(m.photos, id)
	}
	return deleted, nil
}

// ----- usage -----

func (m *memStore) StorageUsage(_ context.Context, userID string) (model.StorageUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("StorageUsage"); err != nil {
		return model.StorageUsage{}, err
	}
	var u model.StorageUsage
	for _, e := range m.events {
		if e.HostID != userID {
			continue
		}
		u.Covers += e.CoverImageFileSize.Int64()
		for _, p := range m.photos {
			if p.EventID == e.ID && p.UploadedBy != nil && *p.UploadedBy == userID {
				u.Photos += p.FileSize.Int64()
			}
		}
	}
	if usr, ok := m.users[userID]; ok {
		u.Avatar = usr.AvatarFileSize.Int64()
	}
	return u, nil
}

func window[T any](all []T, opts repository.ListOptions) []T {
	if opts.Offset >= len(all) {
		return []T{}
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return slices.Clone(all)
}

// seedEvent stores an event directly and returns its id.
func (m *memStore) seedEvent(e model.Event) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = m.id("evt")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.tick()
	}
	m.events[e.ID] = &e
	return e.ID
}

func (m *memStore) seedPhoto(p model.Photo) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.id("pho")
	}
	if p.UploadedAt.IsZero() {
		p.UploadedAt = m.tick()
	}
	m.photos[p.ID] = &p
	return p.ID
}

// =========================================================================
// TESTIFY MOCKS
// =========================================================================

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendApproved(ctx context.Context, to, eventName, photoURL string) error {
	return m.Called(ctx, to, eventName, photoURL).Error(0)
}

func (m *mockNotifier) SendRejected(ctx context.Context, to, eventName, reason string) error {
	return m.Called(ctx, to, eventName, reason).Error(0)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, folder string, data []byte, contentType string) (model.Asset, error) {
	args := m.Called(ctx, folder, data, contentType)
	return args.Get(0).(model.Asset), args.Error(1)
}

func (m *mockUploader) Delete(ctx context.Context, publicID string) error {
	return m.Called(ctx, publicID).Error(0)
}

// plainHasher stands in for bcrypt: "hashed:" + plaintext.
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

func (plainHasher) Matches(hash, plaintext string) (bool, error) {
	if !strings.HasPrefix(hash, "hashed:") {
		return false, fmt.Errorf("malformed hash")
	}
	return hash == "hashed:"+plaintext, nil
}

// =========================================================================
// TEST HARNESS
// =========================================================================

const testFrontend = "https://photolog.test"

type harness struct {
	store    *memStore
	assets   *mockUploader
	notifier *mockNotifier
	quota    *QuotaService
	users    *UserService
	events   *EventService
	photos   *PhotoService
	public   *PublicService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness() *harness {
	store := newMemStore()
	assets := &mockUploader{}
	notifier := &mockNotifier{}
	logger := discardLogger()

	quota := NewQuotaService(store)
	events := NewEventService(store, store, quota, assets, plainHasher{}, testFrontend+"/", logger)
	return &harness{
		store:    store,
		assets:   assets,
		notifier: notifier,
		quota:    quota,
		users:    NewUserService(store, quota, assets, logger),
		events:   events,
		photos:   NewPhotoService(events, store, quota, assets, notifier, logger),
		public:   NewPublicService(store, store, assets, plainHasher{}, logger),
	}
}

func ptr[T any](v T) *T { return &v }

func pngUpload(n int) model.Upload {
	return model.Upload{Filename: "a.png", ContentType: "image/png", Data: make([]byte, n)}
}

func assetFor(folder, key string, size int64) model.Asset {
	return model.Asset{
		URL:          "http://cdn/photolog/" + folder + "/" + key,
		ThumbnailURL: "http://cdn/photolog/" + folder + "/" + key + "-thumb",
		PublicID:     folder + "/" + key,
		Size:         size,
	}
}
