package fakeuserrepo

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-cellar-auth/auth"
)

var _ auth.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	accounts  map[string]*auth.Account
	emailIDs  map[string]string // email to account id
	usernames map[string]string // username to account id
	lock      sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		accounts:  make(map[string]*auth.Account),
		emailIDs:  make(map[string]string),
		usernames: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, account *auth.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := strings.ToLower(account.Email)
	if _, ok := ur.emailIDs[email]; ok {
		return auth.UserExistsErr
	}
	username := strings.ToLower(account.Username)
	if _, ok := ur.usernames[username]; ok && username != "" {
		return auth.UserExistsErr
	}

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	stored := *account
	stored.User = account.User.Clone()
	ur.accounts[account.ID] = &stored
	ur.emailIDs[email] = account.ID
	if username != "" {
		ur.usernames[username] = account.ID
	}
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*auth.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(id)
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(ur.emailIDs[strings.ToLower(email)])
}

func (ur *FakeUserRepo) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(ur.usernames[strings.ToLower(username)])
}

func (ur *FakeUserRepo) copyOf(id string) (*auth.Account, error) {
	account, ok := ur.accounts[id]
	if !ok {
		return nil, auth.UserNotFoundErr
	}
	c := *account
	c.User = account.User.Clone()
	return &c, nil
}
