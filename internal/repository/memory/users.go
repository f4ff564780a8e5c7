package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	unlock, err := r.s.begin("User.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "user", ID: id.String()}
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	unlock, err := r.s.begin("User.GetByEmail")
	defer unlock()
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "user", ID: email}
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	unlock, err := r.s.begin("User.Create")
	defer unlock()
	if err != nil {
		return err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return &errors.ErrConflict{Resource: "user", Message: "email already registered"}
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	unlock, err := r.s.begin("User.Update")
	defer unlock()
	if err != nil {
		return err
	}
	stored, ok := r.s.data.users[user.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "user", ID: user.ID.String()}
	}
	user.Email = stored.Email
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.data.users[user.ID] = *user
	return nil
}

type adminRepository struct{ s *Store }

func (r *adminRepository) IsAdmin(_ context.Context, userID uuid.UUID) (bool, error) {
	unlock, err := r.s.begin("Admin.IsAdmin")
	defer unlock()
	if err != nil {
		return false, err
	}
	return r.s.data.admins[userID], nil
}

func (r *adminRepository) Add(_ context.Context, userID uuid.UUID) error {
	unlock, err := r.s.begin("Admin.Add")
	defer unlock()
	if err != nil {
		return err
	}
	r.s.data.admins[userID] = true
	return nil
}
