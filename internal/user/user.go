package user

import "context"

/*
* User is the resolved caller identity of a request. Living under internal keeps it private
* to this module: transports resolve it, services only read it.
 */
type User struct {
	ID string
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying u
func NewContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the identity carried by ctx, if any
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	if !ok || u.ID == "" {
		return User{}, false
	}
	return u, true
}
