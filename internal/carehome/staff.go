package carehome

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/care"
)

type NewStaff struct {
	ID        string
	FirstName string
	LastName  string
	Gender    string
	Age       int
	Role      string
	Username  string
}

func (n NewStaff) toStaff() (care.Staff, error) {
	first := strings.TrimSpace(n.FirstName)
	last := strings.TrimSpace(n.LastName)
	if first == "" || last == "" {
		return care.Staff{}, fmt.Errorf("%w: first and last name are required", care.ErrInvalidInput)
	}
	username := strings.ToLower(strings.TrimSpace(n.Username))
	if username == "" {
		return care.Staff{}, fmt.Errorf("%w: username is required", care.ErrInvalidInput)
	}
	if n.Age < 0 {
		return care.Staff{}, fmt.Errorf("%w: age cannot be negative", care.ErrInvalidInput)
	}
	gender, err := care.ParseGender(n.Gender)
	if err != nil {
		return care.Staff{}, err
	}
	role, err := care.ParseRole(n.Role)
	if err != nil {
		return care.Staff{}, err
	}
	id := strings.TrimSpace(n.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return care.Staff{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Gender:    gender,
		Age:       n.Age,
		Role:      role,
		Username:  username,
	}, nil
}

// AddStaff registers a new staff member. Ids and usernames are unique.
func (s *Service) AddStaff(ctx context.Context, req NewStaff) (_ care.Staff, err error) {
	defer s.observe("add_staff", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionAddStaff)
	if err != nil {
		return care.Staff{}, err
	}

	staff, err := req.toStaff()
	if err != nil {
		return care.Staff{}, err
	}

	if err := s.repo.CreateStaff(ctx, staff); err != nil {
		if errors.Is(err, care.ErrConflict) {
			return care.Staff{}, fmt.Errorf("%w: %s (%s)", err, staff.ID, staff.Username)
		}
		return care.Staff{}, fmt.Errorf("create staff: %w", err)
	}

	s.record(ctx, actor, care.ActionAddStaff, staff.ID,
		fmt.Sprintf("added staff member %s as %s", staff.Name(), staff.Role))
	s.log.Info("staff added",
		zap.String("staff_id", staff.ID),
		zap.String("role", string(staff.Role)),
		zap.String("actor_id", actor.ID),
	)
	return staff, nil
}
