// Package memrepo 以記憶體實作 repository 介面，供 service 與 api 的測試使用
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrInvalidID
	}
	return oid, nil
}

// ---------------------------------------------------------------------------
// Certificates

type Certificates struct {
	mu    sync.Mutex
	items []domain.Certificate
}

func NewCertificates(seed ...domain.Certificate) *Certificates {
	r := &Certificates{}
	for _, c := range seed {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		r.items = append(r.items, c)
	}
	return r
}

func (r *Certificates) List(_ context.Context, q repository.CertificateQuery) ([]domain.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.Certificate{}
	search := strings.ToLower(q.Search)
	for _, c := range r.items {
		if q.Type != "" && c.Type != q.Type {
			continue
		}
		if q.Status != "" && !strings.EqualFold(c.Status, q.Status) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Domain+" "+c.Description), search) {
			continue
		}
		out = append(out, c)
	}
	if q.Sort == "domain" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	}
	return out, nil
}

func (r *Certificates) find(id primitive.ObjectID) int {
	for i, c := range r.items {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (r *Certificates) GetByID(_ context.Context, id string) (*domain.Certificate, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(oid)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	c := r.items[i]
	return &c, nil
}

func (r *Certificates) GetByDomain(_ context.Context, name string) (*domain.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.Domain == name {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Certificates) Create(_ context.Context, cert domain.Certificate) (*domain.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.Domain == cert.Domain {
			return nil, repository.ErrDuplicate
		}
	}
	if cert.ID.IsZero() {
		cert.ID = primitive.NewObjectID()
	}
	cert.CreatedAt = time.Now()
	cert.UpdatedAt = cert.CreatedAt
	r.items = append(r.items, cert)
	return &cert, nil
}

func (r *Certificates) Update(_ context.Context, id string, p domain.CertificatePatch) (*domain.Certificate, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(oid)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	if p.Domain != nil {
		for j, c := range r.items {
			if j != i && c.Domain == *p.Domain {
				return nil, repository.ErrDuplicate
			}
		}
	}

	c := &r.items[i]
	if p.Domain != nil {
		c.Domain = *p.Domain
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.ExpirationDate != nil {
		t := *p.ExpirationDate
		c.ExpirationDate = &t
	}
	if p.Issuer != nil {
		c.Issuer = *p.Issuer
	}
	if p.LastCheckAt != nil {
		c.LastCheckAt = *p.LastCheckAt
	}
	c.UpdatedAt = time.Now()
	out := *c
	return &out, nil
}

func (r *Certificates) Delete(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(oid)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

func (r *Certificates) UpdateAlertTime(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.find(id); i >= 0 {
		r.items[i].LastAlertAt = at
	}
	return nil
}

// ---------------------------------------------------------------------------
// Clients

type Clients struct {
	mu    sync.Mutex
	items []domain.Client
}

func NewClients(seed ...domain.Client) *Clients {
	r := &Clients{}
	for _, c := range seed {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		r.items = append(r.items, c)
	}
	return r
}

func (r *Clients) List(_ context.Context, q repository.ClientQuery) ([]domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Client{}
	search := strings.ToLower(q.Search)
	for _, c := range r.items {
		if !q.IncludeInactive && !c.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.ContactName+" "+c.ContactEmail), search) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Clients) index(id string) (int, error) {
	oid, err := parseID(id)
	if err != nil {
		return -1, err
	}
	for i, c := range r.items {
		if c.ID == oid {
			return i, nil
		}
	}
	return -1, repository.ErrNotFound
}

func (r *Clients) GetByID(_ context.Context, id string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.index(id)
	if err != nil {
		return nil, err
	}
	c := r.items[i]
	return &c, nil
}

func (r *Clients) Create(_ context.Context, client domain.Client) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client.ID.IsZero() {
		client.ID = primitive.NewObjectID()
	}
	client.IsActive = true
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	r.items = append(r.items, client)
	return &client, nil
}

func (r *Clients) Update(_ context.Context, id string, p domain.ClientPatch) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.index(id)
	if err != nil {
		return nil, err
	}
	c := &r.items[i]
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.ContactName != nil {
		c.ContactName = *p.ContactName
	}
	if p.ContactEmail != nil {
		c.ContactEmail = *p.ContactEmail
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	c.UpdatedAt = time.Now()
	out := *c
	return &out, nil
}

func (r *Clients) SetInfrastructure(_ context.Context, id string, infra domain.Infrastructure) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.index(id)
	if err != nil {
		return nil, err
	}
	infra.UpdatedAt = time.Now()
	r.items[i].Infrastructure = &infra
	out := r.items[i]
	return &out, nil
}

func (r *Clients) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.index(id)
	if err != nil {
		return err
	}
	r.items[i].IsActive = false
	return nil
}

// ---------------------------------------------------------------------------
// Settings

type Settings struct {
	mu       sync.Mutex
	settings *domain.Settings
}

func NewSettings(s *domain.Settings) *Settings {
	return &Settings{settings: s}
}

func (r *Settings) Get(context.Context) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		d := domain.DefaultSettings()
		return &d, nil
	}
	s := *r.settings
	s.Normalize()
	return &s, nil
}

func (r *Settings) Save(_ context.Context, s domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Normalize()
	s.UpdatedAt = time.Now()
	r.settings = &s
	return nil
}

func (r *Settings) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = nil
	return nil
}

// ---------------------------------------------------------------------------
// Notifications

type Notifications struct {
	mu    sync.Mutex
	items []domain.Notification
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (r *Notifications) List(_ context.Context, unreadOnly bool, limit int64) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Notification{}
	for i := len(r.items) - 1; i >= 0; i-- {
		n := r.items[i]
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (r *Notifications) UnreadCount(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

func (r *Notifications) Create(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.items = append(r.items, n)
	return nil
}

func (r *Notifications) MarkRead(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == oid {
			r.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *Notifications) MarkAllRead(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.items {
		if !r.items[i].Read {
			r.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (r *Notifications) Clear(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.items))
	r.items = nil
	return n, nil
}

// ---------------------------------------------------------------------------
// Users

type Users struct {
	mu    sync.Mutex
	items []domain.User
}

func NewUsers(seed ...domain.User) *Users {
	r := &Users{}
	for _, u := range seed {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.items = append(r.items, u)
	}
	return r
}

func (r *Users) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *Users) List(context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.User{}, r.items...), nil
}

func (r *Users) index(id string) (int, error) {
	oid, err := parseID(id)
	if err != nil {
		return -1, err
	}
	for i, u := range r.items {
		if u.ID == oid {
			return i, nil
		}
	}
	return -1, repository.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.index(id)
	if err != nil {
		return nil, err
	}
	u := r.items[i]
	return &u, nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) Create(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Username == user.Username {
			return nil, repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	r.items = append(r.items, user)
	return &user, nil
}

func (r *Users) Update(_ context.Context, id string, p domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.index(id)
	if err != nil {
		return nil, err
	}
	u := &r.items[i]
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	out := *u
	return &out, nil
}

func (r *Users) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.index(id)
	if err != nil {
		return err
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

func (r *Users) UpdateLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].LastLoginAt = at
		}
	}
	return nil
}

var (
	_ repository.CertificateRepository  = (*Certificates)(nil)
	_ repository.ClientRepository       = (*Clients)(nil)
	_ repository.SettingsRepository     = (*Settings)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
	_ repository.UserRepository         = (*Users)(nil)
)
