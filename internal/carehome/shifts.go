package carehome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

// loadSchedule refreshes the scheduler's copy of one staff member's shifts.
func (s *Service) loadSchedule(ctx context.Context, staffID string) error {
	existing, err := s.repo.LoadShiftsForStaff(ctx, staffID)
	if err != nil {
		return fmt.Errorf("load shifts for %s: %w", staffID, err)
	}
	s.scheduler.Replace(staffID, existing)
	return nil
}

// AssignShift gives staffID a shift of the named type on day.
func (s *Service) AssignShift(ctx context.Context, staffID string, day time.Weekday, shiftType string) (_ shifts.Shift, err error) {
	defer s.observe("assign_shift", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionAssignShift)
	if err != nil {
		return shifts.Shift{}, err
	}

	if _, err := shifts.ParseType(shiftType); err != nil {
		return shifts.Shift{}, err
	}

	staff, err := s.repo.GetStaffByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return shifts.Shift{}, fmt.Errorf("%w: %s", ErrStaffNotFound, staffID)
		}
		return shifts.Shift{}, fmt.Errorf("load staff: %w", err)
	}

	var assigned shifts.Shift
	err = s.withLocks(ctx, []string{staffLockKey(staff.ID, day)}, func(lockCtx context.Context) error {
		if err := s.loadSchedule(lockCtx, staff.ID); err != nil {
			return err
		}
		sh, err := s.scheduler.Assign(*staff, day, shiftType, func(sh shifts.Shift) error {
			return s.repo.CommitShift(lockCtx, sh)
		})
		if err != nil {
			return err
		}
		assigned = sh
		return nil
	})
	if err != nil {
		return shifts.Shift{}, err
	}

	s.record(ctx, actor, care.ActionAssignShift, staff.ID,
		fmt.Sprintf("assigned %s on %s (shift %s)", assigned.Type, shifts.DayName(day), assigned.ID))
	s.log.Info("shift assigned",
		zap.String("shift_id", assigned.ID),
		zap.String("staff_id", staff.ID),
		zap.String("day", shifts.DayName(day)),
		zap.String("shift_type", string(assigned.Type)),
		zap.String("actor_id", actor.ID),
	)
	return assigned, nil
}

// UnassignShift clears the staff member from a shift. The shift record stays.
func (s *Service) UnassignShift(ctx context.Context, shiftID string) (_ shifts.Shift, err error) {
	defer s.observe("unassign_shift", s.now(), &err)

	actor, err := s.authorize(ctx, care.ActionModifyShift)
	if err != nil {
		return shifts.Shift{}, err
	}

	current, err := s.repo.GetShiftByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return shifts.Shift{}, fmt.Errorf("%w: %s", ErrShiftNotFound, shiftID)
		}
		return shifts.Shift{}, fmt.Errorf("load shift: %w", err)
	}
	if !current.Assigned || current.StaffID == "" {
		return shifts.Shift{}, fmt.Errorf("%w: %s is not assigned", ErrShiftNotFound, shiftID)
	}
	staffID := current.StaffID

	var cleared shifts.Shift
	err = s.withLocks(ctx, []string{staffLockKey(staffID, current.Day)}, func(lockCtx context.Context) error {
		if err := s.loadSchedule(lockCtx, staffID); err != nil {
			return err
		}
		sh, err := s.scheduler.Unassign(shiftID, func(sh shifts.Shift) error {
			return s.repo.CommitShift(lockCtx, sh)
		})
		if err != nil {
			return err
		}
		cleared = sh
		return nil
	})
	if err != nil {
		return shifts.Shift{}, err
	}

	s.record(ctx, actor, care.ActionModifyShift, staffID,
		fmt.Sprintf("unassigned %s on %s (shift %s)", cleared.Type, shifts.DayName(cleared.Day), cleared.ID))
	s.log.Info("shift unassigned",
		zap.String("shift_id", cleared.ID),
		zap.String("staff_id", staffID),
		zap.String("actor_id", actor.ID),
	)
	return cleared, nil
}

// StaffShifts lists a staff member's week, Monday first. When the store is
// unreachable it answers from the last loaded schedule.
func (s *Service) StaffShifts(ctx context.Context, staffID string) ([]shifts.Shift, error) {
	if _, err := s.authorize(ctx, care.ActionViewShifts); err != nil {
		return nil, err
	}
	if err := s.loadSchedule(ctx, staffID); err != nil {
		s.log.Warn("serving cached schedule", zap.String("staff_id", staffID), zap.Error(err))
	}
	return s.scheduler.StaffShifts(staffID), nil
}
