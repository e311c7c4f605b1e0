package syncs

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// SessionDuration is the lifetime, in seconds, of a login session.
const SessionDuration = 3600

var (
	v = rule.V
	s = rule.S
)

// request matches an API request for method and binds ?request.
func request(b *rule.Builder, method string, fields rule.Fields) *rule.Builder {
	in := rule.Fields{"method": s(method)}
	for k, t := range fields {
		in[k] = t
	}
	return b.When("API.request", in, rule.Fields{"request": v("request")})
}

// respond sends output as the response to ?request.
func respond(b *rule.Builder, output rule.Obj) *rule.Builder {
	return b.Then("API.response", rule.Fields{"request": v("request"), "output": output})
}

// failWith answers ?request with the ?error of the previous action.
func failWith(b *rule.Builder) *rule.Builder {
	return respond(b, rule.Obj{"success": rule.B(false), "error": v("error")})
}

// Auth returns the authentication rule set.
func Auth() []rule.SyncRule {
	return []rule.SyncRule{
		request(rule.Sync("Register"), "register", rule.Fields{
			"username": v("username"), "email": v("email"), "password": v("password"),
		}).
			Then("User.register", rule.Fields{"username": v("username"), "email": v("email"), "password": v("password")}).
			MustBuild(),

		respond(
			request(rule.Sync("RegisterResponse"), "register", nil).
				When("User.register", nil, rule.Fields{"user": v("user")}),
			rule.Obj{"success": rule.B(true), "user": v("user")},
		).MustBuild(),

		failWith(
			request(rule.Sync("RegisterError"), "register", nil).
				When("User.register", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		request(rule.Sync("Login"), "login", rule.Fields{"username": v("username"), "password": v("password")}).
			Then("User.login", rule.Fields{"username": v("username"), "password": v("password")}).
			MustBuild(),

		request(rule.Sync("LoginSession"), "login", nil).
			When("User.login", nil, rule.Fields{"user": v("user"), "token": v("token")}).
			Then("Session.create", rule.Fields{"user": v("user"), "token": v("token"), "duration": rule.I(SessionDuration)}).
			MustBuild(),

		respond(
			request(rule.Sync("LoginResponse"), "login", nil).
				When("User.login", nil, rule.Fields{"user": v("user"), "token": v("token")}).
				When("Session.create", rule.Fields{"token": v("token")}, rule.Fields{"session": v("session")}),
			rule.Obj{"success": rule.B(true), "user": v("user"), "token": v("token"), "session": v("session")},
		).MustBuild(),

		failWith(
			request(rule.Sync("LoginError"), "login", nil).
				When("User.login", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		request(rule.Sync("GuestLogin"), "guest_login", nil).
			Then("User.createGuest", nil).
			MustBuild(),

		request(rule.Sync("GuestSession"), "guest_login", nil).
			When("User.createGuest", nil, rule.Fields{"user": v("user"), "token": v("token")}).
			Then("Session.create", rule.Fields{"user": v("user"), "token": v("token"), "duration": rule.I(SessionDuration)}).
			MustBuild(),

		respond(
			request(rule.Sync("GuestResponse"), "guest_login", nil).
				When("User.createGuest", nil, rule.Fields{"user": v("user"), "username": v("username"), "token": v("token")}).
				When("Session.create", rule.Fields{"token": v("token")}, rule.Fields{"session": v("session")}),
			rule.Obj{"success": rule.B(true), "user": v("user"), "username": v("username"), "token": v("token"), "session": v("session")},
		).MustBuild(),

		request(rule.Sync("Logout"), "logout", rule.Fields{"token": v("token")}).
			Then("Session.invalidate", rule.Fields{"token": v("token")}).
			MustBuild(),

		respond(
			request(rule.Sync("LogoutResponse"), "logout", nil).
				When("Session.invalidate", nil, rule.Fields{"session": v("session")}),
			rule.Obj{"success": rule.B(true), "session": v("session")},
		).MustBuild(),

		failWith(
			request(rule.Sync("LogoutError"), "logout", nil).
				When("Session.invalidate", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),
	}
}
