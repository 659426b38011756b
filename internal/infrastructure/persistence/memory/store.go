// Package memory is an in-process implementation of every repository port.
// It backs the development server when no DATABASE_URL is configured and the
// application tests. A single mutex serializes writers; WithinTx snapshots the
// state and restores it when the unit of work fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

type topicKey struct {
	user  shared.UserID
	topic catalog.TopicID
}

type state struct {
	users     map[shared.UserID]user.User
	usernames map[shared.Username]shared.UserID
	profiles  map[shared.UserID]user.Profile
	records   map[shared.UserID]*progress.Record
	topicRows map[topicKey]progress.TopicProgress
	topics    map[catalog.TopicID]catalog.Topic
	templates map[catalog.TopicID][]catalog.ContentTemplate
	lessons   map[int]catalog.Lesson
	generated []catalog.GeneratedLesson
	nextTopic int64
	nextTmpl  int64
}

func newState() *state {
	return &state{
		users:     make(map[shared.UserID]user.User),
		usernames: make(map[shared.Username]shared.UserID),
		profiles:  make(map[shared.UserID]user.Profile),
		records:   make(map[shared.UserID]*progress.Record),
		topicRows: make(map[topicKey]progress.TopicProgress),
		topics:    make(map[catalog.TopicID]catalog.Topic),
		templates: make(map[catalog.TopicID][]catalog.ContentTemplate),
		lessons:   make(map[int]catalog.Lesson),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.usernames {
		c.usernames[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.records {
		c.records[k] = copyRecord(v)
	}
	for k, v := range s.topicRows {
		c.topicRows[k] = v
	}
	for k, v := range s.topics {
		c.topics[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = append([]catalog.ContentTemplate(nil), v...)
	}
	for k, v := range s.lessons {
		c.lessons[k] = v
	}
	c.generated = append([]catalog.GeneratedLesson(nil), s.generated...)
	c.nextTopic = s.nextTopic
	c.nextTmpl = s.nextTmpl
	return c
}

func copyRecord(r *progress.Record) *progress.Record {
	c := *r
	c.CompletedLessons = append(progress.LessonSet{}, r.CompletedLessons...)
	c.Details = make(progress.LessonDetails, len(r.Details))
	for k, v := range r.Details {
		c.Details[k] = v
	}
	if r.CertificationDate != nil {
		d := *r.CertificationDate
		c.CertificationDate = &d
	}
	return &c
}

// Store holds all data in memory.
type Store struct {
	mu    sync.Mutex
	data  *state
	clock timeutil.Clock
}

// NewStore creates an empty store.
func NewStore(clock timeutil.Clock) *Store {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Store{data: newState(), clock: clock}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store mutex unless ctx already holds it through WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx implements shared.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

// Repository accessors.
func (s *Store) Users() *UserRepository                       { return &UserRepository{s} }
func (s *Store) Profiles() *ProfileRepository                 { return &ProfileRepository{s} }
func (s *Store) Progress() *ProgressRepository                { return &ProgressRepository{s} }
func (s *Store) TopicProgress() *TopicProgressRepository      { return &TopicProgressRepository{s} }
func (s *Store) Catalog() *CatalogRepository                  { return &CatalogRepository{s} }
func (s *Store) GeneratedLessons() *GeneratedLessonRepository { return &GeneratedLessonRepository{s} }

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository.
type UserRepository struct{ s *Store }

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	defer r.s.lock(ctx)()
	d := r.s.data

	if _, taken := d.usernames[u.Username]; taken {
		return shared.ErrUsernameTaken
	}
	if _, exists := d.users[u.ID]; exists {
		return shared.NewDomainError("user", "Create", shared.ErrConflict, "user id already exists")
	}
	d.users[u.ID] = *u
	d.usernames[u.Username] = u.ID
	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id shared.UserID) (*user.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

// GetByUsername returns a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username shared.Username) (*user.User, error) {
	defer r.s.lock(ctx)()
	id, ok := r.s.data.usernames[username]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	u := r.s.data.users[id]
	return &u, nil
}

// ProfileRepository implements user.ProfileRepository.
type ProfileRepository struct{ s *Store }

// Create inserts a profile; an existing one is kept.
func (r *ProfileRepository) Create(ctx context.Context, p *user.Profile) error {
	defer r.s.lock(ctx)()
	d := r.s.data
	if _, ok := d.users[p.UserID]; !ok {
		return shared.ErrUserNotFound
	}
	if _, ok := d.profiles[p.UserID]; !ok {
		d.profiles[p.UserID] = *p
	}
	return nil
}

// GetByUserID returns the profile of a user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID shared.UserID) (*user.Profile, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return &p, nil
}

// Update applies fn to a copy of the profile and stores it when fn succeeds.
func (r *ProfileRepository) Update(ctx context.Context, userID shared.UserID, fn func(p *user.Profile) error) (*user.Profile, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	r.s.data.profiles[userID] = p
	out := p
	return &out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository.
type ProgressRepository struct{ s *Store }

// Create inserts the record unless one exists.
func (r *ProgressRepository) Create(ctx context.Context, rec *progress.Record) error {
	defer r.s.lock(ctx)()
	d := r.s.data
	if _, ok := d.users[rec.UserID]; !ok {
		return shared.ErrUserNotFound
	}
	if _, ok := d.records[rec.UserID]; !ok {
		d.records[rec.UserID] = copyRecord(rec)
	}
	return nil
}

func (r *ProgressRepository) ensure(userID shared.UserID) (*progress.Record, error) {
	d := r.s.data
	if rec, ok := d.records[userID]; ok {
		return rec, nil
	}
	if _, ok := d.users[userID]; !ok {
		return nil, shared.ErrUserNotFound
	}
	rec := progress.NewRecord(userID, r.s.now())
	d.records[userID] = rec
	return rec, nil
}

// GetOrCreate returns the record, creating the default one if absent.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID shared.UserID) (*progress.Record, error) {
	defer r.s.lock(ctx)()
	rec, err := r.ensure(userID)
	if err != nil {
		return nil, err
	}
	return copyRecord(rec), nil
}

// Update applies fn to a copy of the record and stores it when fn succeeds.
func (r *ProgressRepository) Update(ctx context.Context, userID shared.UserID, fn func(rec *progress.Record) error) (*progress.Record, error) {
	defer r.s.lock(ctx)()
	stored, err := r.ensure(userID)
	if err != nil {
		return nil, err
	}
	rec := copyRecord(stored)
	if err := fn(rec); err != nil {
		return nil, err
	}
	r.s.data.records[userID] = copyRecord(rec)
	return rec, nil
}

// TopicProgressRepository implements progress.TopicRepository.
type TopicProgressRepository struct{ s *Store }

// ListByUser returns the stored topic records ordered by topic.
func (r *TopicProgressRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*progress.TopicProgress, error) {
	defer r.s.lock(ctx)()
	var out []*progress.TopicProgress
	for k, v := range r.s.data.topicRows {
		if k.user == userID {
			tp := v
			out = append(out, &tp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

// GetOrDefault returns the stored record or an unsaved default one.
func (r *TopicProgressRepository) GetOrDefault(ctx context.Context, userID shared.UserID, topicID catalog.TopicID) (*progress.TopicProgress, error) {
	defer r.s.lock(ctx)()
	if tp, ok := r.s.data.topicRows[topicKey{userID, topicID}]; ok {
		return &tp, nil
	}
	return progress.NewTopicProgress(userID, topicID), nil
}

// Update applies fn to the (user, topic) record, creating the default one.
func (r *TopicProgressRepository) Update(ctx context.Context, userID shared.UserID, topicID catalog.TopicID, fn func(tp *progress.TopicProgress) error) (*progress.TopicProgress, error) {
	defer r.s.lock(ctx)()
	d := r.s.data

	if _, ok := d.topics[topicID]; !ok {
		return nil, shared.ErrTopicNotFound
	}
	if _, err := (&ProgressRepository{r.s}).ensure(userID); err != nil {
		return nil, err
	}

	key := topicKey{userID, topicID}
	tp, ok := d.topicRows[key]
	if !ok {
		tp = *progress.NewTopicProgress(userID, topicID)
	}
	if err := fn(&tp); err != nil {
		return nil, err
	}
	d.topicRows[key] = tp
	out := tp
	return &out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.Repository and catalog.Seeder.
type CatalogRepository struct{ s *Store }

// ListTopics returns all topics ordered by difficulty, then name.
func (r *CatalogRepository) ListTopics(ctx context.Context) ([]*catalog.Topic, error) {
	defer r.s.lock(ctx)()
	out := make([]*catalog.Topic, 0, len(r.s.data.topics))
	for _, t := range r.s.data.topics {
		topic := t
		out = append(out, &topic)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DifficultyLevel != out[j].DifficultyLevel {
			return out[i].DifficultyLevel < out[j].DifficultyLevel
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// GetTopic returns a topic by ID.
func (r *CatalogRepository) GetTopic(ctx context.Context, id catalog.TopicID) (*catalog.Topic, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.data.topics[id]
	if !ok {
		return nil, shared.ErrTopicNotFound
	}
	return &t, nil
}

// GetTopicBySlug returns a topic by slug.
func (r *CatalogRepository) GetTopicBySlug(ctx context.Context, slug string) (*catalog.Topic, error) {
	defer r.s.lock(ctx)()
	if t, ok := r.s.data.topicBySlug(slug); ok {
		return &t, nil
	}
	return nil, shared.ErrTopicNotFound
}

func (d *state) topicBySlug(slug string) (catalog.Topic, bool) {
	for _, t := range d.topics {
		if t.Slug == slug {
			return t, true
		}
	}
	return catalog.Topic{}, false
}

// ListTemplates returns the templates of a topic ordered by ID.
func (r *CatalogRepository) ListTemplates(ctx context.Context, topicID catalog.TopicID) ([]*catalog.ContentTemplate, error) {
	defer r.s.lock(ctx)()
	list := r.s.data.templates[topicID]
	out := make([]*catalog.ContentTemplate, 0, len(list))
	for i := range list {
		t := list[i]
		out = append(out, &t)
	}
	return out, nil
}

// ListLessons returns the course lessons ordered by ID.
func (r *CatalogRepository) ListLessons(ctx context.Context) ([]*catalog.Lesson, error) {
	defer r.s.lock(ctx)()
	out := make([]*catalog.Lesson, 0, len(r.s.data.lessons))
	for _, l := range r.s.data.lessons {
		lesson := l
		out = append(out, &lesson)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Seed upserts topics by slug, templates by (topic, name) and lessons by ID.
func (r *CatalogRepository) Seed(ctx context.Context, seed catalog.Seed) error {
	defer r.s.lock(ctx)()
	d := r.s.data
	now := r.s.now()

	for _, ts := range seed.Topics {
		topic := ts.Topic
		topic.DifficultyLevel = topic.DifficultyLevel.Clamp()

		if existing, ok := d.topicBySlug(topic.Slug); ok {
			topic.ID = existing.ID
			topic.CreatedAt = existing.CreatedAt
		} else {
			d.nextTopic++
			topic.ID = catalog.TopicID(d.nextTopic)
			topic.CreatedAt = now
		}
		d.topics[topic.ID] = topic

		list := d.templates[topic.ID]
		for _, tmpl := range ts.Templates {
			tmpl.TopicID = topic.ID
			replaced := false
			for i := range list {
				if list[i].Name == tmpl.Name {
					tmpl.ID = list[i].ID
					list[i] = tmpl
					replaced = true
					break
				}
			}
			if !replaced {
				d.nextTmpl++
				tmpl.ID = d.nextTmpl
				list = append(list, tmpl)
			}
		}
		d.templates[topic.ID] = list
	}

	for _, l := range seed.Lessons {
		d.lessons[l.ID] = l
	}
	return nil
}

// GeneratedLessonRepository implements catalog.GeneratedLessonRepository.
type GeneratedLessonRepository struct{ s *Store }

// Create stores a prepared lesson.
func (r *GeneratedLessonRepository) Create(ctx context.Context, l *catalog.GeneratedLesson) error {
	defer r.s.lock(ctx)()
	d := r.s.data
	if _, ok := d.users[l.UserID]; !ok {
		return shared.ErrUserNotFound
	}
	found := false
	for _, t := range d.templates[l.TopicID] {
		if t.ID == l.TemplateID {
			found = true
			break
		}
	}
	if !found {
		return shared.ErrTemplateNotFound
	}
	d.generated = append(d.generated, *l)
	return nil
}

// ListByUser returns the newest prepared lessons of a user first.
func (r *GeneratedLessonRepository) ListByUser(ctx context.Context, userID shared.UserID, limit int) ([]*catalog.GeneratedLesson, error) {
	defer r.s.lock(ctx)()
	if limit <= 0 {
		limit = 20
	}
	var out []*catalog.GeneratedLesson
	for i := len(r.s.data.generated) - 1; i >= 0 && len(out) < limit; i-- {
		if g := r.s.data.generated[i]; g.UserID == userID {
			out = append(out, &g)
		}
	}
	return out, nil
}
