package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
	"github.com/rbroggi/usermgmt/internal/core/user"
	log "github.com/sirupsen/logrus"
)

// UserServiceArgs contains the mandatory arguments for the UserService.
type UserServiceArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository
}

// UserServiceOptArgs are the optional arguments of the UserService.
type UserServiceOptArgs func(s *UserService)

// WithInformer forwards the domain events of every successful write to informer.
func WithInformer(informer *Informer) UserServiceOptArgs {
	return func(s *UserService) {
		s.informer = informer
	}
}

// NewUserService creates a new UserService.
func NewUserService(args UserServiceArgs, opts ...UserServiceOptArgs) *UserService {
	s := &UserService{
		repository: args.Repository,
		domain:     user.NewService(user.ServiceArgs{Users: args.Repository}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserService gathers the functionality around the user-lifecycle
type UserService struct {
	repository ports.Repository
	domain     *user.Service
	informer   *Informer
}

// CreateUser validates every field, builds the user aggregate and stores it.
// It returns a *model.ValidationError listing every failing field.
func (s *UserService) CreateUser(ctx context.Context, args model.CreateUserArgs) (*model.UserDTO, error) {
	errs, err := s.domain.ValidateUserForCreation(ctx, args.Name, args.Email, args.Password)
	if err != nil {
		return nil, fmt.Errorf("error validating user: %w", err)
	}
	if err := model.NewValidationError(errs); err != nil {
		return nil, err
	}

	agg, err := user.Create(args.Name, args.Email, args.Password)
	if err != nil {
		return nil, toValidationError(err)
	}

	u, err := s.repository.Create(ctx, ports.CreateUserFields{
		Name:         agg.Name().String(),
		Email:        agg.Email().String(),
		PasswordHash: agg.Password().String(),
	})
	if errors.Is(err, model.ErrDuplicateEmail) {
		return nil, emailTaken()
	}
	if err != nil {
		return nil, fmt.Errorf("error saving user in repository: %w", err)
	}

	s.inform(ctx, agg, u.ID)
	dto := model.NewUserDTO(*u)
	return &dto, nil
}

// UpdateUser applies the set fields of args. It returns nil, and no error, if the user does not exist.
// When no field is set the current record is returned without any validation.
func (s *UserService) UpdateUser(ctx context.Context, args model.UpdateUserArgs) (*model.UserDTO, error) {
	if !args.HasChanges() {
		return s.GetUserByID(ctx, args.ID)
	}

	errs, err := s.domain.ValidateUserForUpdate(ctx, args.ID, args.Name, args.Email, args.Password)
	if err != nil {
		return nil, fmt.Errorf("error validating user: %w", err)
	}
	if err := model.NewValidationError(errs); err != nil {
		return nil, err
	}

	existing, err := s.find(ctx, args.ID)
	if err != nil || existing == nil {
		return nil, err
	}

	agg, err := user.FromPersistence(existing.ID, existing.Name, existing.Email, existing.PasswordHash, existing.CreatedAt, existing.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("stored user [%d] is corrupted: %w", existing.ID, err)
	}

	var fields ports.UpdateUserFields
	if args.Name != nil {
		if err := agg.UpdateName(*args.Name); err != nil {
			return nil, toValidationError(err)
		}
		name := agg.Name().String()
		fields.Name = &name
	}
	if args.Email != nil {
		if err := agg.UpdateEmail(*args.Email); err != nil {
			return nil, toValidationError(err)
		}
		email := agg.Email().String()
		fields.Email = &email
	}
	if args.Password != nil {
		if err := agg.UpdatePassword(*args.Password); err != nil {
			return nil, toValidationError(err)
		}
		hash := agg.Password().String()
		fields.PasswordHash = &hash
	}

	u, err := s.repository.Update(ctx, existing, fields)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if errors.Is(err, model.ErrDuplicateEmail) {
		return nil, emailTaken()
	}
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	s.inform(ctx, agg, u.ID)
	dto := model.NewUserDTO(*u)
	return &dto, nil
}

// GetUserByID returns the user, or nil if it does not exist.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*model.UserDTO, error) {
	u, err := s.find(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	dto := model.NewUserDTO(*u)
	return &dto, nil
}

// ListUsers lists every user.
func (s *UserService) ListUsers(ctx context.Context) ([]model.UserDTO, error) {
	users, err := s.repository.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users on the repository: %w", err)
	}
	return model.NewUserDTOs(users), nil
}

// DeleteUser deletes the user. It reports false if the user does not exist.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	u, err := s.find(ctx, id)
	if err != nil || u == nil {
		return false, err
	}
	deleted, err := s.repository.Delete(ctx, u)
	if err != nil {
		return false, fmt.Errorf("error deleting user from repository: %w", err)
	}
	return deleted, nil
}

func (s *UserService) find(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repository.FindByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding user [%d]: %w", id, err)
	}
	return u, nil
}

func (s *UserService) inform(ctx context.Context, agg *user.Aggregate, userID int64) {
	events := agg.PullDomainEvents()
	if s.informer == nil {
		return
	}
	// the write is already committed: a forwarding failure is reported, never returned
	if err := s.informer.Handle(ctx, events); err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"count":   len(events),
		}).WithError(err).Warn("error informing user events")
	}
}

// toValidationError turns an invariant violation that slipped past the domain service into
// a single-field ValidationError. Anything else is returned as is.
func toValidationError(err error) error {
	var ie *user.InvariantError
	if errors.As(err, &ie) {
		return model.NewValidationError(model.FieldErrors{ie.Field: ie.Message})
	}
	return err
}

// emailTaken reports a unique email violation raised by the store after the uniqueness check passed.
func emailTaken() error {
	return model.NewValidationError(model.FieldErrors{"email": user.EmailTakenMessage})
}
