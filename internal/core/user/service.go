package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbroggi/usermgmt/internal/core/model"
)

// EmailTakenMessage is the validation message of an email owned by another user.
const EmailTakenMessage = "Email address is already taken"

// EmailFinder looks a persisted user up by email. It returns model.ErrNotFound when absent.
type EmailFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// ServiceArgs are the mandatory args to build a Service.
type ServiceArgs struct {
	// Users is used for uniqueness checks.
	Users EmailFinder
}

// NewService creates a new domain Service.
func NewService(args ServiceArgs) *Service {
	return &Service{users: args.Users}
}

// Service holds the rules spanning more than one user: today, email uniqueness.
type Service struct {
	users EmailFinder
}

// IsEmailUnique reports whether no user owns email, or the owner is excludeID.
// A zero excludeID excludes nobody.
func (s *Service) IsEmailUnique(ctx context.Context, email Email, excludeID int64) (bool, error) {
	existing, err := s.users.FindByEmail(ctx, email.String())
	if errors.Is(err, model.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("error looking up user by email: %w", err)
	}
	if existing == nil {
		return true, nil
	}
	return excludeID != 0 && existing.ID == excludeID, nil
}

// ValidateUserForCreation checks every field independently and reports all failures at once.
// The returned error is only set when the uniqueness lookup itself fails.
func (s *Service) ValidateUserForCreation(ctx context.Context, name, email, password string) (model.FieldErrors, error) {
	errs := model.FieldErrors{}
	checkName(errs, name)
	if err := s.checkEmail(ctx, errs, email, 0); err != nil {
		return nil, err
	}
	checkPassword(errs, password)
	return errs, nil
}

// ValidateUserForUpdate runs the creation checks on the fields that are set,
// excluding userID itself from the uniqueness check.
func (s *Service) ValidateUserForUpdate(ctx context.Context, userID int64, name, email, password *string) (model.FieldErrors, error) {
	errs := model.FieldErrors{}
	if name != nil {
		checkName(errs, *name)
	}
	if email != nil {
		if err := s.checkEmail(ctx, errs, *email, userID); err != nil {
			return nil, err
		}
	}
	if password != nil {
		checkPassword(errs, *password)
	}
	return errs, nil
}

func checkName(errs model.FieldErrors, name string) {
	if _, err := NewName(name); err != nil {
		errs["name"] = err.Error()
	}
}

func (s *Service) checkEmail(ctx context.Context, errs model.FieldErrors, email string, excludeID int64) error {
	e, err := NewEmail(email)
	if err != nil {
		errs["email"] = err.Error()
		return nil
	}
	unique, err := s.IsEmailUnique(ctx, e, excludeID)
	if err != nil {
		return err
	}
	if !unique {
		errs["email"] = EmailTakenMessage
	}
	return nil
}

// checkPassword only applies the length rules; hashing is left to the aggregate.
func checkPassword(errs model.FieldErrors, password string) {
	if err := checkPasswordLength(password); err != nil {
		errs["password"] = err.Error()
	}
}
