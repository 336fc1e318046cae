package auth

import (
	"errors"
	"os"
	"strings"
)

// EnvStore reads tokens from SHOTS_<PROVIDER>_TOKEN. It is read-only.
type EnvStore struct {
	lookup func(string) (string, bool)
}

func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

// EnvVar returns the environment variable consulted for provider.
func EnvVar(provider string) string {
	key := strings.ToUpper(strings.ReplaceAll(NormalizeProvider(provider), "-", "_"))
	return "SHOTS_" + key + "_TOKEN"
}

func (e *EnvStore) GetToken(provider string) (string, error) {
	v, ok := e.lookup(EnvVar(provider))
	if !ok || strings.TrimSpace(v) == "" {
		return "", ErrTokenNotFound
	}
	return strings.TrimSpace(v), nil
}

func (e *EnvStore) SetToken(provider string, token string) error {
	return errors.New("auth: environment store is read-only")
}

func (e *EnvStore) DeleteToken(provider string) error {
	return errors.New("auth: environment store is read-only")
}

// ChainStore reads from each store in order and writes to the last one.
type ChainStore struct {
	stores []Store
}

func NewChainStore(stores ...Store) *ChainStore {
	return &ChainStore{stores: stores}
}

func (c *ChainStore) GetToken(provider string) (string, error) {
	for _, s := range c.stores {
		token, err := s.GetToken(provider)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrTokenNotFound) {
			return "", err
		}
	}
	return "", ErrTokenNotFound
}

func (c *ChainStore) SetToken(provider string, token string) error {
	if len(c.stores) == 0 {
		return errors.New("auth: no writable store")
	}
	return c.stores[len(c.stores)-1].SetToken(provider, token)
}

func (c *ChainStore) DeleteToken(provider string) error {
	if len(c.stores) == 0 {
		return errors.New("auth: no writable store")
	}
	return c.stores[len(c.stores)-1].DeleteToken(provider)
}
