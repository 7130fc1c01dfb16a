// Package auth keeps the allowlist of Telegram users who may query the
// insights assistant.
package auth

import (
	"fmt"
	"sort"
	"sync"
)

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Repository persists the allowlist between restarts.
type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID int64) error
}

type Service struct {
	repo Repository

	mu    sync.RWMutex
	users map[int64]User
}

// NewWithRepo preloads the repository and merges the ids configured via
// ALLOWED_USERS. repo may be nil for an in-memory allowlist.
func NewWithRepo(repo Repository, initial []int64) (*Service, error) {
	s := &Service{repo: repo, users: make(map[int64]User)}
	if repo != nil {
		users, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load allowlist: %w", err)
		}
		for _, u := range users {
			s.users[u.ID] = u
		}
	}
	for _, id := range initial {
		if _, ok := s.users[id]; !ok {
			s.users[id] = User{ID: id}
		}
	}
	return s, nil
}

func (s *Service) IsAllowed(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

// Upsert allows a user. Known profile fields are kept when the update
// only carries an id.
func (s *Service) Upsert(user User) error {
	s.mu.Lock()
	if prev, ok := s.users[user.ID]; ok && user.Username == "" && user.FirstName == "" && user.LastName == "" {
		user = prev
	}
	s.users[user.ID] = user
	s.mu.Unlock()

	if s.repo != nil {
		return s.repo.Upsert(user)
	}
	return nil
}

func (s *Service) Remove(userID int64) error {
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()

	if s.repo != nil {
		return s.repo.Remove(userID)
	}
	return nil
}

// List returns the allowlist ordered by id.
func (s *Service) List() []User {
	s.mu.RLock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
