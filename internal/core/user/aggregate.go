package user

import (
	"time"
)

// nowFunc is the clock of the aggregate. Overridden in tests.
var nowFunc = func() time.Time { return time.Now().UTC() }

// Aggregate is the consistency boundary around a user Entity and the sole way to change it.
// It records one domain event per successful change; events accumulate until cleared.
//
// An Aggregate is not safe for concurrent use.
type Aggregate struct {
	entity *Entity
	events []Event
}

// Create builds a brand-new user from raw input. It records a UserCreated event.
func Create(name, email, password string) (*Aggregate, error) {
	n, err := NewName(name)
	if err != nil {
		return nil, err
	}
	e, err := NewEmail(email)
	if err != nil {
		return nil, err
	}
	p, err := HashedPasswordFromPlainText(password)
	if err != nil {
		return nil, err
	}

	now := nowFunc()
	a := &Aggregate{entity: newEntity(n, e, p, now)}
	a.record(EventUserCreated, map[string]any{
		"name":  name,
		"email": email,
	}, now)
	return a, nil
}

// FromPersistence rehydrates a stored user. No event is recorded. An error here means the
// stored state breaks an invariant.
func FromPersistence(id int64, name, email, passwordHash string, createdAt, updatedAt time.Time) (*Aggregate, error) {
	uid, err := NewID(id)
	if err != nil {
		return nil, err
	}
	n, err := NewName(name)
	if err != nil {
		return nil, err
	}
	e, err := NewEmail(email)
	if err != nil {
		return nil, err
	}
	p, err := HashedPasswordFromHash(passwordHash)
	if err != nil {
		return nil, err
	}
	return &Aggregate{entity: &Entity{
		id:        &uid,
		name:      n,
		email:     e,
		password:  p,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}}, nil
}

// UpdateName validates and applies a new name, recording UserNameChanged.
// On error nothing changes.
func (a *Aggregate) UpdateName(name string) error {
	n, err := NewName(name)
	if err != nil {
		return err
	}
	old := a.entity.name.String()
	now := nowFunc()
	a.entity.changeName(n, now)
	a.record(EventUserNameChanged, map[string]any{
		"user_id":  a.userID(),
		"old_name": old,
		"new_name": name,
	}, now)
	return nil
}

// UpdateEmail validates and applies a new email, recording UserEmailChanged.
// On error nothing changes.
func (a *Aggregate) UpdateEmail(email string) error {
	e, err := NewEmail(email)
	if err != nil {
		return err
	}
	old := a.entity.email.String()
	now := nowFunc()
	a.entity.changeEmail(e, now)
	a.record(EventUserEmailChanged, map[string]any{
		"user_id":   a.userID(),
		"old_email": old,
		"new_email": email,
	}, now)
	return nil
}

// UpdatePassword hashes and applies a new password, recording UserPasswordChanged.
// The event carries no password material. On error nothing changes.
func (a *Aggregate) UpdatePassword(password string) error {
	p, err := HashedPasswordFromPlainText(password)
	if err != nil {
		return err
	}
	now := nowFunc()
	a.entity.changePassword(p, now)
	a.record(EventUserPasswordChanged, map[string]any{
		"user_id": a.userID(),
	}, now)
	return nil
}

// VerifyPassword checks plain against the stored hash.
func (a *Aggregate) VerifyPassword(plain string) bool {
	return a.entity.VerifyPassword(plain)
}

// Entity returns a snapshot of the owned entity.
func (a *Aggregate) Entity() Entity { return *a.entity }

// ID returns the user id and whether it is set.
func (a *Aggregate) ID() (ID, bool) { return a.entity.ID() }

// Name returns the current name.
func (a *Aggregate) Name() Name { return a.entity.name }

// Email returns the current email.
func (a *Aggregate) Email() Email { return a.entity.email }

// Password returns the current password hash.
func (a *Aggregate) Password() HashedPassword { return a.entity.password }

// CreatedAt returns the creation time.
func (a *Aggregate) CreatedAt() time.Time { return a.entity.createdAt }

// UpdatedAt returns the time of the last change.
func (a *Aggregate) UpdatedAt() time.Time { return a.entity.updatedAt }

// DomainEvents returns a copy of the events recorded since the last clear, oldest first.
func (a *Aggregate) DomainEvents() []Event {
	ret := make([]Event, len(a.events))
	for i, e := range a.events {
		ret[i] = e.clone()
	}
	return ret
}

// ClearDomainEvents drops every recorded event.
func (a *Aggregate) ClearDomainEvents() {
	a.events = nil
}

// PullDomainEvents returns the events recorded since the last clear and clears them.
func (a *Aggregate) PullDomainEvents() []Event {
	events := a.events
	a.events = nil
	return events
}

func (a *Aggregate) record(t EventType, payload map[string]any, at time.Time) {
	a.events = append(a.events, newEvent(t, payload, at))
}

func (a *Aggregate) userID() any {
	if id, ok := a.entity.ID(); ok {
		return id.Int64()
	}
	return nil
}
