package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rbroggi/usermgmt/internal/core/bus"
	"github.com/rbroggi/usermgmt/internal/core/cqrs"
	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
	"github.com/rbroggi/usermgmt/internal/core/usecase"
)

const (
	archDDD  = "ddd"
	archCQRS = "cqrs"
)

// errNotFound is reported when the addressed user does not exist.
var errNotFound = errors.New("user not found")

// usageError marks a malformed invocation.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, a ...any) error {
	return &usageError{err: fmt.Errorf(format, a...)}
}

type createInput struct {
	Name     string `validate:"required,max=255"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=255"`
}

type updateInput struct {
	ID       int64   `validate:"gt=0"`
	Name     *string `validate:"omitempty,max=255"`
	Email    *string `validate:"omitempty,email,max=255"`
	Password *string `validate:"omitempty,min=8,max=255"`
}

type idInput struct {
	ID int64 `validate:"gt=0"`
}

// appArgs are the mandatory arguments of the app.
type appArgs struct {
	Arch       string
	Repository ports.Repository
	// Sender is optional. Events are discarded without one.
	Sender ports.Sender
	Out    io.Writer
}

// app maps a command line onto either pipeline and prints the result as JSON.
type app struct {
	arch     string
	users    *usecase.UserService
	commands *bus.CommandBus
	queries  *bus.QueryBus
	validate *validator.Validate
	out      io.Writer
}

func newApp(args appArgs) (*app, error) {
	if args.Arch != archDDD && args.Arch != archCQRS {
		return nil, usageErrorf("unknown -arch %q", args.Arch)
	}

	var opts []usecase.UserServiceOptArgs
	if args.Sender != nil {
		opts = append(opts, usecase.WithInformer(usecase.NewInformer(args.Sender)))
	}

	a := &app{
		arch:     args.Arch,
		users:    usecase.NewUserService(usecase.UserServiceArgs{Repository: args.Repository}, opts...),
		commands: bus.NewCommandBus(),
		queries:  bus.NewQueryBus(),
		validate: validator.New(),
		out:      args.Out,
	}
	cqrs.Register(a.commands, a.queries, cqrs.NewHandlers(cqrs.HandlersArgs{Repository: args.Repository}))
	return a, nil
}

func (a *app) execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErrorf("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create":
		return a.create(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "get":
		return a.get(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	default:
		return usageErrorf("unknown command %q", cmd)
	}
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := newFlagSet("create")
	in := createInput{}
	fs.StringVar(&in.Name, "name", "", "user name")
	fs.StringVar(&in.Email, "email", "", "user email")
	fs.StringVar(&in.Password, "password", "", "plain-text password")
	if err := a.parse(fs, args, &in); err != nil {
		return err
	}

	if a.arch == archCQRS {
		res, err := a.commands.Dispatch(ctx, cqrs.CreateUserCommand{Name: in.Name, Email: in.Email, Password: in.Password})
		if err != nil {
			return err
		}
		return a.printUser(res.(*model.User))
	}
	dto, err := a.users.CreateUser(ctx, model.CreateUserArgs{Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		return err
	}
	return a.print(dto)
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	in := updateInput{}
	fs.Int64Var(&in.ID, "id", 0, "user id")
	name := fs.String("name", "", "new user name")
	email := fs.String("email", "", "new user email")
	password := fs.String("password", "", "new plain-text password")
	if err := fs.Parse(args); err != nil {
		return &usageError{err: err}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			in.Name = name
		case "email":
			in.Email = email
		case "password":
			in.Password = password
		}
	})
	if err := a.check(fs, &in); err != nil {
		return err
	}

	if a.arch == archCQRS {
		res, err := a.commands.Dispatch(ctx, cqrs.UpdateUserCommand{ID: in.ID, Name: in.Name, Email: in.Email, Password: in.Password})
		if err != nil {
			return err
		}
		return a.printUser(res.(*model.User))
	}
	dto, err := a.users.UpdateUser(ctx, model.UpdateUserArgs{ID: in.ID, Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		return err
	}
	if dto == nil {
		return errNotFound
	}
	return a.print(dto)
}

func (a *app) get(ctx context.Context, args []string) error {
	in, err := a.parseID("get", args)
	if err != nil {
		return err
	}

	if a.arch == archCQRS {
		res, err := a.queries.Dispatch(ctx, cqrs.GetUserQuery{ID: in.ID})
		if err != nil {
			return err
		}
		return a.printUser(res.(*model.User))
	}
	dto, err := a.users.GetUserByID(ctx, in.ID)
	if err != nil {
		return err
	}
	if dto == nil {
		return errNotFound
	}
	return a.print(dto)
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	if err := fs.Parse(args); err != nil {
		return &usageError{err: err}
	}
	if fs.NArg() > 0 {
		return usageErrorf("list: unexpected arguments %v", fs.Args())
	}

	if a.arch == archCQRS {
		res, err := a.queries.Dispatch(ctx, cqrs.ListUsersQuery{})
		if err != nil {
			return err
		}
		return a.print(model.NewUserDTOs(res.([]model.User)))
	}
	dtos, err := a.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	return a.print(dtos)
}

func (a *app) delete(ctx context.Context, args []string) error {
	in, err := a.parseID("delete", args)
	if err != nil {
		return err
	}

	var deleted bool
	if a.arch == archCQRS {
		res, err := a.commands.Dispatch(ctx, cqrs.DeleteUserCommand{ID: in.ID})
		if err != nil {
			return err
		}
		deleted = res.(bool)
	} else {
		deleted, err = a.users.DeleteUser(ctx, in.ID)
		if err != nil {
			return err
		}
	}
	if !deleted {
		return errNotFound
	}
	return a.print(map[string]any{"id": in.ID, "deleted": true})
}

func (a *app) parseID(name string, args []string) (*idInput, error) {
	fs := newFlagSet(name)
	in := &idInput{}
	fs.Int64Var(&in.ID, "id", 0, "user id")
	if err := a.parse(fs, args, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (a *app) parse(fs *flag.FlagSet, args []string, in any) error {
	if err := fs.Parse(args); err != nil {
		return &usageError{err: err}
	}
	return a.check(fs, in)
}

// check rejects stray arguments and runs the struct-tag validation of in.
func (a *app) check(fs *flag.FlagSet, in any) error {
	if fs.NArg() > 0 {
		return usageErrorf("%s: unexpected arguments %v", fs.Name(), fs.Args())
	}
	if err := a.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := model.FieldErrors{}
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
			}
			return &usageError{err: model.NewValidationError(fields)}
		}
		return err
	}
	return nil
}

func (a *app) printUser(u *model.User) error {
	if u == nil {
		return errNotFound
	}
	return a.print(model.NewUserDTO(*u))
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
