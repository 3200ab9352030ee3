package cqrs

// CreateUserCommand asks for a new user. The password is plain text.
type CreateUserCommand struct {
	Name     string
	Email    string
	Password string
}

// CommandName implements bus.Command.
func (CreateUserCommand) CommandName() string { return "user.create" }

// UpdateUserCommand asks to change the set fields of user ID. A nil field is left unchanged.
type UpdateUserCommand struct {
	ID       int64
	Name     *string
	Email    *string
	Password *string
}

// CommandName implements bus.Command.
func (UpdateUserCommand) CommandName() string { return "user.update" }

// DeleteUserCommand asks to remove user ID.
type DeleteUserCommand struct {
	ID int64
}

// CommandName implements bus.Command.
func (DeleteUserCommand) CommandName() string { return "user.delete" }

// GetUserQuery reads user ID.
type GetUserQuery struct {
	ID int64
}

// QueryName implements bus.Query.
func (GetUserQuery) QueryName() string { return "user.get" }

// ListUsersQuery reads every user.
type ListUsersQuery struct{}

// QueryName implements bus.Query.
func (ListUsersQuery) QueryName() string { return "user.list" }
