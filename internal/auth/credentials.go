package auth

import (
	"context"
	"fmt"
	"strings"

	"propdash/pkg/sanitizer"
)

// Credential is a stored login. Username keeps its original casing and
// becomes the identity id; lookups are case-insensitive.
type Credential struct {
	Username     string `bson:"username"`
	UsernameKey  string `bson:"username_lower"`
	Name         string `bson:"name,omitempty"`
	PasswordHash string `bson:"password_hash"`
}

func (c *Credential) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Username
}

// CredentialStore looks up credentials. FindByUsername returns ErrUnknownUser
// when nothing matches.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*Credential, error)
	VerifyPassword(cred *Credential, password string) bool
}

// StaticCredentialStore holds a fixed user list loaded from configuration.
type StaticCredentialStore struct {
	users map[string]*Credential
}

// ParseStaticUsers reads "username:bcrypt-hash" pairs separated by commas.
func ParseStaticUsers(list string) (*StaticCredentialStore, error) {
	store := &StaticCredentialStore{users: make(map[string]*Credential)}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		username, hash, ok := strings.Cut(entry, ":")
		username = strings.TrimSpace(username)
		hash = strings.TrimSpace(hash)
		if !ok || username == "" || !strings.HasPrefix(hash, "$2") {
			return nil, fmt.Errorf("%w: entry %q must be username:bcrypt-hash", ErrMalformedUserList, username)
		}
		key := sanitizer.NormalizeUsername(username)
		if _, dup := store.users[key]; dup {
			return nil, fmt.Errorf("%w: duplicate user %q", ErrMalformedUserList, username)
		}
		store.users[key] = &Credential{
			Username:     username,
			UsernameKey:  key,
			PasswordHash: hash,
		}
	}
	return store, nil
}

func (s *StaticCredentialStore) Len() int {
	return len(s.users)
}

// Credentials lists the static store's entries, used to seed the collection.
func (s *StaticCredentialStore) Credentials() []*Credential {
	out := make([]*Credential, 0, len(s.users))
	for _, c := range s.users {
		out = append(out, c)
	}
	return out
}

func (s *StaticCredentialStore) FindByUsername(_ context.Context, username string) (*Credential, error) {
	cred, ok := s.users[sanitizer.NormalizeUsername(username)]
	if !ok {
		return nil, ErrUnknownUser
	}
	return cred, nil
}

func (s *StaticCredentialStore) VerifyPassword(cred *Credential, password string) bool {
	return checkPassword(cred.PasswordHash, password)
}
