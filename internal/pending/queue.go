// Package pending tracks Telegram users who asked for access and are waiting
// for the administrator to approve them.
package pending

import (
	"fmt"
	"sync"

	"shop-insights/internal/auth"
)

type Queue struct {
	repo auth.Repository

	mu    sync.Mutex
	users map[int64]auth.User
	order []int64
}

// NewQueue loads outstanding requests from repo, which may be nil.
func NewQueue(repo auth.Repository) (*Queue, error) {
	q := &Queue{repo: repo, users: make(map[int64]auth.User)}
	if repo == nil {
		return q, nil
	}
	users, err := repo.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}
	for _, u := range users {
		if _, ok := q.users[u.ID]; !ok {
			q.order = append(q.order, u.ID)
		}
		q.users[u.ID] = u
	}
	return q, nil
}

// Add records a request. It reports false when the user was already waiting,
// so callers notify the administrator only once per user.
func (q *Queue) Add(u auth.User) (bool, error) {
	q.mu.Lock()
	_, seen := q.users[u.ID]
	q.users[u.ID] = u
	if !seen {
		q.order = append(q.order, u.ID)
	}
	q.mu.Unlock()

	if q.repo != nil {
		if err := q.repo.Upsert(u); err != nil {
			return !seen, err
		}
	}
	return !seen, nil
}

// Take removes a request and returns it.
func (q *Queue) Take(userID int64) (auth.User, bool, error) {
	q.mu.Lock()
	u, ok := q.users[userID]
	if ok {
		delete(q.users, userID)
		for i, id := range q.order {
			if id == userID {
				q.order = append(q.order[:i], q.order[i+1:]...)
				break
			}
		}
	}
	q.mu.Unlock()

	if !ok {
		return auth.User{}, false, nil
	}
	if q.repo != nil {
		if err := q.repo.Remove(userID); err != nil {
			return u, true, err
		}
	}
	return u, true, nil
}

// List returns waiting users in arrival order.
func (q *Queue) List() []auth.User {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]auth.User, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.users[id])
	}
	return out
}
