package concepts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// User manages accounts and credentials. Guests have no password and
// cannot log in with one.
type User struct {
	methods
	mu    sync.Mutex
	ids   IDFunc
	now   func() time.Time
	cost  int
	users map[string]*account
	order []string
}

type account struct {
	id           string
	username     string
	email        string
	passwordHash []byte
	guest        bool
	createdAt    time.Time
	lastLogin    time.Time
}

func newUser(o Options) *User {
	cost := o.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	u := &User{
		methods: newMethods(),
		ids:     o.IDs,
		now:     o.Now,
		cost:    cost,
		users:   make(map[string]*account),
	}
	u.actions["register"] = u.register
	u.actions["login"] = u.login
	u.actions["logout"] = u.logout
	u.actions["createGuest"] = u.createGuest
	u.queries["_getById"] = u.getByID
	u.queries["_getByUsername"] = u.getByUsername
	return u
}

type registerArgs struct {
	ID       string `mapstructure:"id"`
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// register{username, email, password, id?} -> {user} | {error}
func (u *User) register(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args registerArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(args.Username)
	email := strings.ToLower(strings.TrimSpace(args.Email))

	switch {
	case len(username) < 3:
		return fail("Username must be at least 3 characters long")
	case !strings.Contains(email, "@"):
		return fail("Invalid email address")
	case len(args.Password) < 6:
		return fail("Password must be at least 6 characters long")
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	for _, id := range u.order {
		acc := u.users[id]
		if acc.username == username {
			return fail("Username already exists")
		}
		if acc.email == email {
			return fail("Email already exists")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(args.Password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id := args.ID
	if id == "" {
		id = u.ids("user")
	}
	if _, exists := u.users[id]; exists {
		return fail("User already exists")
	}
	u.users[id] = &account{
		id:           id,
		username:     username,
		email:        email,
		passwordHash: hash,
		createdAt:    u.now(),
	}
	u.order = append(u.order, id)
	return reply(ir.O("user", str(id)))
}

// login{username, password} -> {user, token} | {error}
func (u *User) login(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	}
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	acc := u.findByUsername(args.Username)
	if acc == nil || acc.guest {
		return fail("Invalid username or password")
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(args.Password)) != nil {
		return fail("Invalid username or password")
	}
	acc.lastLogin = u.now()
	return reply(
		ir.O("user", str(acc.id)),
		ir.O("token", str(u.ids("token"))),
	)
}

// logout{user} -> {user} | {error}
func (u *User) logout(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	id := in.String("user")
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.users[id]; !exists {
		return fail("User not found")
	}
	return reply(ir.O("user", str(id)))
}

// createGuest{} -> {user, username, token}
func (u *User) createGuest(_ context.Context, _ ir.IRObject) (ir.IRObject, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := u.ids("guest")
	acc := &account{
		id:        id,
		username:  id,
		guest:     true,
		createdAt: u.now(),
		lastLogin: u.now(),
	}
	u.users[id] = acc
	u.order = append(u.order, id)
	return reply(
		ir.O("user", str(id)),
		ir.O("username", str(acc.username)),
		ir.O("token", str(u.ids("token"))),
	)
}

func (u *User) findByUsername(username string) *account {
	for _, id := range u.order {
		if acc := u.users[id]; acc.username == username {
			return acc
		}
	}
	return nil
}

// _getById{id} -> [{id, username, email, guest, createdAt, lastLogin}]
func (u *User) getByID(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	acc, exists := u.users[in.String("id")]
	if !exists {
		return nil, nil
	}
	return []ir.IRObject{acc.row()}, nil
}

// _getByUsername{username} -> [{id, username, email, guest, createdAt, lastLogin}]
func (u *User) getByUsername(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	acc := u.findByUsername(in.String("username"))
	if acc == nil {
		return nil, nil
	}
	return []ir.IRObject{acc.row()}, nil
}

// row never exposes the password hash.
func (a *account) row() ir.IRObject {
	var lastLogin int64
	if !a.lastLogin.IsZero() {
		lastLogin = a.lastLogin.UnixMilli()
	}
	return ir.Obj(
		ir.O("id", str(a.id)),
		ir.O("username", str(a.username)),
		ir.O("email", str(a.email)),
		ir.O("guest", ir.IRBool(a.guest)),
		ir.O("createdAt", ir.IRInt(a.createdAt.UnixMilli())),
		ir.O("lastLogin", ir.IRInt(lastLogin)),
	)
}
