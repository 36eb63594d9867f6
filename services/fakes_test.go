package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"taskboard-api/models"
)

type memNotificationStore struct {
	mu        sync.Mutex
	rows      map[uint]*models.Notification
	nextID    uint
	failFor   map[uint]bool
	createErr error
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{rows: make(map[uint]*models.Notification), failFor: make(map[uint]bool)}
}

func (s *memNotificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if s.failFor[n.RecipientID] {
		return fmt.Errorf("insert failed for recipient %d", n.RecipientID)
	}
	s.nextID++
	n.NotificationID = s.nextID
	cp := *n
	s.rows[cp.NotificationID] = &cp
	return nil
}

func (s *memNotificationStore) FindByID(_ context.Context, id uint) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *memNotificationStore) sorted(filter func(*models.Notification) bool) []models.Notification {
	ids := make([]uint, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []models.Notification
	for _, id := range ids {
		if n := s.rows[id]; filter(n) {
			out = append(out, *n)
		}
	}
	return out
}

func (s *memNotificationStore) ListByRecipient(_ context.Context, recipientID uint, opts ListOptions) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts = opts.normalize()
	items := s.sorted(func(n *models.Notification) bool {
		return n.RecipientID == recipientID && (!opts.UnreadOnly || n.Status == models.NotificationUnread)
	})
	// newest first
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	if opts.Offset >= len(items) {
		return nil, nil
	}
	items = items[opts.Offset:]
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

func (s *memNotificationStore) CountUnread(_ context.Context, recipientID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sorted(func(n *models.Notification) bool {
		return n.RecipientID == recipientID && n.Status == models.NotificationUnread
	}))), nil
}

func (s *memNotificationStore) MarkRead(_ context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = models.NotificationRead
	n.ReadAt = &at
	return nil
}

func (s *memNotificationStore) MarkAllRead(_ context.Context, recipientID uint, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, n := range s.rows {
		if n.RecipientID == recipientID && n.Status == models.NotificationUnread {
			n.Status = models.NotificationRead
			n.ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

func (s *memNotificationStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memNotificationStore) MarkEmailed(_ context.Context, ids ...uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if n, ok := s.rows[id]; ok {
			n.Emailed = true
		}
	}
	return nil
}

func (s *memNotificationStore) PendingDigestRecipients(_ context.Context) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[uint]bool{}
	var ids []uint
	for _, n := range s.sorted(isPendingDigest) {
		if !seen[n.RecipientID] {
			seen[n.RecipientID] = true
			ids = append(ids, n.RecipientID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memNotificationStore) PendingDigest(_ context.Context, recipientID uint) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(n *models.Notification) bool {
		return n.RecipientID == recipientID && isPendingDigest(n)
	}), nil
}

func isPendingDigest(n *models.Notification) bool {
	return n.EmailMode == models.EmailDigest && !n.Emailed
}

func (s *memNotificationStore) forRecipient(id uint) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(n *models.Notification) bool { return n.RecipientID == id })
}

func (s *memNotificationStore) all() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(*models.Notification) bool { return true })
}

type memPreferenceStore struct {
	mu      sync.Mutex
	rows    map[uint]models.NotificationPreference
	findErr error
	saves   int
}

func newMemPreferenceStore() *memPreferenceStore {
	return &memPreferenceStore{rows: make(map[uint]models.NotificationPreference)}
}

func (s *memPreferenceStore) Find(_ context.Context, userID uint) (*models.NotificationPreference, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, false, s.findErr
	}
	p, ok := s.rows[userID]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (s *memPreferenceStore) Save(_ context.Context, pref *models.NotificationPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.rows[pref.UserID] = *pref
	return nil
}

func (s *memPreferenceStore) put(p models.NotificationPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.UserID] = p
}

type memDirectory struct {
	mu        sync.Mutex
	users     map[uint]*models.User
	projects  map[uint]string
	members   map[uint][]models.ProjectMember
	tasks     map[uint]*models.Task
	followers map[uint][]uint
	requests  map[uint]models.JoinRequest
	payers    map[uint]uint
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users:     make(map[uint]*models.User),
		projects:  make(map[uint]string),
		members:   make(map[uint][]models.ProjectMember),
		tasks:     make(map[uint]*models.Task),
		followers: make(map[uint][]uint),
		requests:  make(map[uint]models.JoinRequest),
		payers:    make(map[uint]uint),
	}
}

func (d *memDirectory) addUser(id uint, email, name string) *memDirectory {
	d.users[id] = &models.User{UserID: id, Email: email, Name: name, AccountStatus: models.AccountActive}
	return d
}

func (d *memDirectory) addProject(id uint, name string, members ...models.ProjectMember) *memDirectory {
	d.projects[id] = name
	for i := range members {
		members[i].ProjectID = id
	}
	d.members[id] = members
	return d
}

func (d *memDirectory) addTask(t models.Task, followers ...uint) *memDirectory {
	cp := t
	d.tasks[t.TaskID] = &cp
	d.followers[t.TaskID] = followers
	return d
}

func member(userID uint, role models.ProjectRole) models.ProjectMember {
	return models.ProjectMember{UserID: userID, Role: role}
}

func (d *memDirectory) FindByID(_ context.Context, userID uint) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	cp := *u
	return &cp, nil
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrUserNotFound)
}

func (d *memDirectory) SetAccountStatus(_ context.Context, userID uint, status models.AccountStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.AccountStatus = status
	return nil
}

func (d *memDirectory) MembersOf(_ context.Context, projectID uint) ([]uint, error) {
	if _, ok := d.projects[projectID]; !ok {
		return nil, fmt.Errorf("project %d: %w", projectID, ErrSubjectNotFound)
	}
	var ids []uint
	for _, m := range d.members[projectID] {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (d *memDirectory) RoleOf(_ context.Context, projectID, userID uint) (models.ProjectRole, error) {
	for _, m := range d.members[projectID] {
		if m.UserID == userID {
			return m.Role, nil
		}
	}
	return "", ErrUserNotFound
}

func (d *memDirectory) task(taskID uint) (*models.Task, error) {
	t, ok := d.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrSubjectNotFound)
	}
	return t, nil
}

func (d *memDirectory) FollowersOf(_ context.Context, taskID uint) ([]uint, error) {
	if _, err := d.task(taskID); err != nil {
		return nil, err
	}
	return d.followers[taskID], nil
}

func (d *memDirectory) AssigneeOf(_ context.Context, taskID uint) (*uint, error) {
	t, err := d.task(taskID)
	if err != nil {
		return nil, err
	}
	return t.AssigneeID, nil
}

func (d *memDirectory) CreatorOf(_ context.Context, taskID uint) (uint, error) {
	t, err := d.task(taskID)
	if err != nil {
		return 0, err
	}
	return t.CreatorID, nil
}

func (d *memDirectory) ProjectOf(_ context.Context, taskID uint) (uint, error) {
	t, err := d.task(taskID)
	if err != nil {
		return 0, err
	}
	return t.ProjectID, nil
}

func (d *memDirectory) TaskTitle(_ context.Context, taskID uint) (string, error) {
	t, err := d.task(taskID)
	if err != nil {
		return "", err
	}
	return t.Title, nil
}

func (d *memDirectory) JoinRequestByID(_ context.Context, requestID uint) (*models.JoinRequest, error) {
	jr, ok := d.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("join request %d: %w", requestID, ErrSubjectNotFound)
	}
	return &jr, nil
}

func (d *memDirectory) PayerOf(_ context.Context, orderID uint) (uint, error) {
	payer, ok := d.payers[orderID]
	if !ok {
		return 0, fmt.Errorf("order %d: %w", orderID, ErrPaymentOrderNotFound)
	}
	return payer, nil
}

func (d *memDirectory) ProjectName(_ context.Context, projectID uint) (string, error) {
	name, ok := d.projects[projectID]
	if !ok {
		return "", ErrSubjectNotFound
	}
	return name, nil
}

type memActivityStore struct {
	mu      sync.Mutex
	records []models.ActivityRecord
}

func (s *memActivityStore) Insert(_ context.Context, rec *models.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ActivityID = uint(len(s.records) + 1)
	s.records = append(s.records, *rec)
	return nil
}

func sameActor(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *memActivityStore) Exists(_ context.Context, actorID *uint, entityType string, entityID uint, action string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if sameActor(r.ActorID, actorID) && r.EntityType == entityType && r.EntityID == entityID && r.Action == action {
			return true, nil
		}
	}
	return false, nil
}

func (s *memActivityStore) ListByEntity(_ context.Context, entityType string, entityID uint) ([]models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivityRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if r := s.records[i]; r.EntityType == entityType && r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

type sentMail struct {
	To      []string
	Subject string
	HTML    string
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]bool
	err    error
}

func (m *fakeMailer) Send(to []string, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, addr := range to {
		if m.failTo[addr] {
			return errors.New("smtp: mailbox unavailable")
		}
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type published struct {
	Topic string
	Data  []byte
}

type recordingBroker struct {
	mu       sync.Mutex
	messages []published
	failFor  map[string]bool
	panicFor map[string]bool
}

func (b *recordingBroker) Publish(_ context.Context, topic string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.panicFor[topic] {
		panic("broker exploded")
	}
	if b.failFor[topic] {
		return errors.New("broker unavailable")
	}
	b.messages = append(b.messages, published{Topic: topic, Data: data})
	return nil
}

func (b *recordingBroker) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.Topic)
	}
	return out
}

type engine struct {
	dir           *memDirectory
	notifications *memNotificationStore
	preferences   *memPreferenceStore
	activity      *memActivityStore
	mailer        *fakeMailer
	broker        *recordingBroker
	dispatcher    *NotificationDispatcher
	log           *ActivityLog
}

func newEngine(dir *memDirectory) *engine {
	e := &engine{
		dir:           dir,
		notifications: newMemNotificationStore(),
		preferences:   newMemPreferenceStore(),
		activity:      &memActivityStore{},
		mailer:        &fakeMailer{failTo: map[string]bool{}},
		broker:        &recordingBroker{failFor: map[string]bool{}, panicFor: map[string]bool{}},
	}
	e.log = NewActivityLog(e.activity, nil)
	e.dispatcher = NewNotificationDispatcher(DispatcherDeps{
		Notifications: e.notifications,
		Preferences:   e.preferences,
		Users:         dir,
		Projects:      dir,
		Tasks:         dir,
		Activity:      e.log,
		Push:          NewPushChannel(e.broker, time.Second),
		Email:         NewEmailChannel(e.mailer, "https://taskboard.example.com"),
	})
	return e
}

// memTransactor runs fn directly against the engine's in-memory stores.
type memTransactor struct {
	e       *engine
	reports *memReportStore
	orders  *memOrderStore
}

func (t *memTransactor) InTx(_ context.Context, fn func(scope TxScope) error) error {
	return fn(TxScope{
		Reports:  t.reports,
		Accounts: t.e.dir,
		Orders:   t.orders,
		Events:   t.e.dispatcher,
	})
}

type memReportStore struct {
	rows map[uint]*models.UserReport
}

func (s *memReportStore) FindForUpdate(_ context.Context, reportID uint) (*models.UserReport, error) {
	r, ok := s.rows[reportID]
	if !ok {
		return nil, ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memReportStore) Resolve(_ context.Context, reportID uint, action models.ReportAction, adminID uint, at time.Time) error {
	r, ok := s.rows[reportID]
	if !ok {
		return ErrReportNotFound
	}
	a := string(action)
	r.Status = models.ReportStatusResolved
	r.ActionTaken = &a
	r.ResolvedBy = &adminID
	r.ResolvedAt = &at
	return nil
}

type memOrderStore struct {
	rows map[uint]*models.PaymentOrder
}

func (s *memOrderStore) FindByID(_ context.Context, orderID uint) (*models.PaymentOrder, error) {
	o, ok := s.rows[orderID]
	if !ok {
		return nil, ErrPaymentOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memOrderStore) MarkPaid(_ context.Context, orderID uint, at time.Time) error {
	o, ok := s.rows[orderID]
	if !ok {
		return ErrPaymentOrderNotFound
	}
	o.Status = models.PaymentPaid
	o.PaidAt = &at
	return nil
}

func recipientsOf(rows []models.Notification) []uint {
	out := make([]uint, 0, len(rows))
	for _, n := range rows {
		out = append(out, n.RecipientID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalIDs(got, want []uint) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
