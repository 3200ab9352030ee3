package user

import "time"

// Entity holds the state of a user. Its mutators are unexported: only the Aggregate changes it.
type Entity struct {
	id        *ID
	name      Name
	email     Email
	password  HashedPassword
	createdAt time.Time
	updatedAt time.Time
}

func newEntity(name Name, email Email, password HashedPassword, now time.Time) *Entity {
	return &Entity{
		name:      name,
		email:     email,
		password:  password,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the user id and whether it is set. It is unset until the user is persisted.
func (e Entity) ID() (ID, bool) {
	if e.id == nil {
		return ID{}, false
	}
	return *e.id, true
}

// Name returns the user name.
func (e Entity) Name() Name { return e.name }

// Email returns the user email.
func (e Entity) Email() Email { return e.email }

// Password returns the password hash.
func (e Entity) Password() HashedPassword { return e.password }

// CreatedAt returns the creation time.
func (e Entity) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt returns the time of the last change.
func (e Entity) UpdatedAt() time.Time { return e.updatedAt }

// VerifyPassword checks plain against the stored hash.
func (e Entity) VerifyPassword(plain string) bool {
	return e.password.Verify(plain)
}

func (e *Entity) changeName(name Name, now time.Time) {
	e.name = name
	e.updatedAt = now
}

func (e *Entity) changeEmail(email Email, now time.Time) {
	e.email = email
	e.updatedAt = now
}

func (e *Entity) changePassword(password HashedPassword, now time.Time) {
	e.password = password
	e.updatedAt = now
}
