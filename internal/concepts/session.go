package concepts

import (
	"context"
	"sync"
	"time"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Session tracks login sessions by token. Expired sessions turn inactive
// the first time they are validated or refreshed.
type Session struct {
	methods
	mu       sync.Mutex
	ids      IDFunc
	now      func() time.Time
	sessions map[string]*session
	order    []string
}

type session struct {
	id        string
	user      string
	token     string
	createdAt time.Time
	expiresAt time.Time
	active    bool
}

func newSession(o Options) *Session {
	s := &Session{
		methods:  newMethods(),
		ids:      o.IDs,
		now:      o.Now,
		sessions: make(map[string]*session),
	}
	s.actions["create"] = s.create
	s.actions["validate"] = s.validate
	s.actions["invalidate"] = s.invalidate
	s.actions["refresh"] = s.refresh
	s.queries["_getById"] = s.getByID
	s.queries["_getByToken"] = s.getByToken
	s.queries["_getByUser"] = s.getByUser
	return s
}

type sessionArgs struct {
	User     string `mapstructure:"user"`
	Token    string `mapstructure:"token"`
	Duration int64  `mapstructure:"duration"`
}

// create{user, token, duration} -> {session} | {error}
//
// duration is in seconds.
func (s *Session) create(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args sessionArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	if args.User == "" || args.Token == "" || args.Duration <= 0 {
		return fail("Invalid session parameters")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess := &session{
		id:        s.ids("session"),
		user:      args.User,
		token:     args.Token,
		createdAt: now,
		expiresAt: now.Add(time.Duration(args.Duration) * time.Second),
		active:    true,
	}
	s.sessions[sess.id] = sess
	s.order = append(s.order, sess.id)
	return reply(ir.O("session", str(sess.id)))
}

// validate{token} -> {session, user} | {error}
func (s *Session) validate(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, msg := s.live(in.String("token"))
	if sess == nil {
		return fail(msg)
	}
	return reply(ir.O("session", str(sess.id)), ir.O("user", str(sess.user)))
}

// invalidate{token} -> {session} | {error}
func (s *Session) invalidate(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.byToken(in.String("token"))
	if sess == nil {
		return fail("Session not found")
	}
	sess.active = false
	return reply(ir.O("session", str(sess.id)))
}

// refresh{token, duration} -> {session} | {error}
func (s *Session) refresh(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args sessionArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	if args.Duration <= 0 {
		return fail("Invalid session parameters")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, msg := s.live(args.Token)
	if sess == nil {
		return fail(msg)
	}
	sess.expiresAt = s.now().Add(time.Duration(args.Duration) * time.Second)
	return reply(ir.O("session", str(sess.id)))
}

// live returns the active, unexpired session for token, or the reason
// there is none.
func (s *Session) live(token string) (*session, string) {
	sess := s.byToken(token)
	switch {
	case sess == nil:
		return nil, "Session not found"
	case !sess.active:
		return nil, "Session is inactive"
	case s.now().After(sess.expiresAt):
		sess.active = false
		return nil, "Session has expired"
	}
	return sess, ""
}

func (s *Session) byToken(token string) *session {
	if token == "" {
		return nil
	}
	for _, id := range s.order {
		if sess := s.sessions[id]; sess.token == token {
			return sess
		}
	}
	return nil
}

func (s *Session) getByID(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, exists := s.sessions[in.String("id")]; exists {
		return []ir.IRObject{sess.row()}, nil
	}
	return nil, nil
}

func (s *Session) getByToken(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.byToken(in.String("token")); sess != nil {
		return []ir.IRObject{sess.row()}, nil
	}
	return nil, nil
}

// _getByUser{user} returns the user's active sessions.
func (s *Session) getByUser(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	user := in.String("user")
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []ir.IRObject
	for _, id := range s.order {
		if sess := s.sessions[id]; sess.user == user && sess.active {
			rows = append(rows, sess.row())
		}
	}
	return rows, nil
}

func (s *session) row() ir.IRObject {
	return ir.Obj(
		ir.O("id", str(s.id)),
		ir.O("user", str(s.user)),
		ir.O("token", str(s.token)),
		ir.O("createdAt", ir.IRInt(s.createdAt.UnixMilli())),
		ir.O("expiresAt", ir.IRInt(s.expiresAt.UnixMilli())),
		ir.O("active", ir.IRBool(s.active)),
	)
}
