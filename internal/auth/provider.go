// Package auth is the identity capability: account registration, sign-in,
// and the session tokens that correlate requests back to a users document.
package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"chorebank/internal/fault"
	"chorebank/internal/model"
	"chorebank/internal/store"
)

// Provider authenticates accounts. The returned user's ID is the primary key
// correlating to the users collection.
type Provider interface {
	SignUp(ctx context.Context, email, password string, role model.Role) (model.User, error)
	SignIn(ctx context.Context, email, password string) (model.User, error)
}

// StoreProvider keeps credentials in the document store next to the user
// documents: bcrypt hashes in the credentials collection, account metadata
// in users.
type StoreProvider struct {
	store store.Store
}

func NewStoreProvider(st store.Store) *StoreProvider {
	return &StoreProvider{store: st}
}

func (p *StoreProvider) SignUp(ctx context.Context, email, password string, role model.Role) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.User{}, fault.New(fault.Validation, "email is required")
	}
	if len(password) < 8 {
		return model.User{}, fault.New(fault.Validation, "password must be at least 8 characters")
	}
	if role != model.RoleGuardian && role != model.RoleDependent {
		return model.User{}, fault.Newf(fault.Validation, "unknown role %q", role)
	}

	existing, err := p.store.Query(ctx, store.Query{Collection: store.CollectionUsers, Field: "email", Value: email})
	if err != nil {
		return model.User{}, fault.Wrap(fault.Remote, "account lookup failed", err)
	}
	if len(existing) > 0 {
		return model.User{}, fault.New(fault.Validation, "an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{Email: email, Role: role}
	userID, err := p.store.Create(ctx, store.CollectionUsers, store.EncodeUser(user))
	if err != nil {
		return model.User{}, fault.Wrap(fault.Remote, "account creation failed", err)
	}
	user.ID = userID

	_, err = p.store.Create(ctx, store.CollectionCredentials, store.Doc{
		"email":        email,
		"passwordHash": string(hash),
		"userId":       userID,
	})
	if err != nil {
		return model.User{}, fault.Wrap(fault.Remote, "credential creation failed", err)
	}

	return user, nil
}

func (p *StoreProvider) SignIn(ctx context.Context, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	creds, err := p.store.Query(ctx, store.Query{Collection: store.CollectionCredentials, Field: "email", Value: email})
	if err != nil {
		return model.User{}, fault.Wrap(fault.Remote, "credential lookup failed", err)
	}
	if len(creds) == 0 {
		return model.User{}, fault.New(fault.Unauthorized, "invalid email or password")
	}

	cred := creds[0].Data
	hash, _ := cred["passwordHash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return model.User{}, fault.New(fault.Unauthorized, "invalid email or password")
	}

	userID, _ := cred["userId"].(string)
	doc, err := p.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return model.User{}, fault.Wrap(fault.Remote, "account lookup failed", err)
	}
	return store.DecodeUser(store.Record{ID: userID, Data: doc}), nil
}
