package auth

import (
	"errors"
	"testing"
)

func fakeEnv(vars map[string]string) *EnvStore {
	return &EnvStore{lookup: func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar(" Hetzner "); got != "SHOTS_HETZNER_TOKEN" {
		t.Errorf("EnvVar() = %q", got)
	}
	if got := EnvVar("my-cloud"); got != "SHOTS_MY_CLOUD_TOKEN" {
		t.Errorf("EnvVar() = %q", got)
	}
}

func TestEnvStore_GetToken(t *testing.T) {
	s := fakeEnv(map[string]string{"SHOTS_HETZNER_TOKEN": "  abc  ", "SHOTS_BLANK_TOKEN": " "})

	token, err := s.GetToken("hetzner")
	if err != nil || token != "abc" {
		t.Fatalf("GetToken(hetzner) = (%q, %v), want (abc, nil)", token, err)
	}
	if _, err := s.GetToken("blank"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound for blank value, got %v", err)
	}
	if _, err := s.GetToken("other"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
	if err := s.SetToken("hetzner", "x"); err == nil {
		t.Error("expected read-only error from SetToken")
	}
}

func TestChainStore_FallsThrough(t *testing.T) {
	env := fakeEnv(map[string]string{})
	mock := NewMockStore()
	_ = mock.SetToken("Hetzner", "from-keyring")

	chain := NewChainStore(env, mock)
	token, err := chain.GetToken("hetzner")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if token != "from-keyring" {
		t.Errorf("token = %q, want from-keyring", token)
	}
}

func TestChainStore_EnvWins(t *testing.T) {
	env := fakeEnv(map[string]string{"SHOTS_HETZNER_TOKEN": "from-env"})
	mock := NewMockStore()
	_ = mock.SetToken("hetzner", "from-keyring")

	token, err := NewChainStore(env, mock).GetToken("hetzner")
	if err != nil || token != "from-env" {
		t.Fatalf("GetToken = (%q, %v), want from-env", token, err)
	}
}

func TestChainStore_WritesToLast(t *testing.T) {
	mock := NewMockStore()
	chain := NewChainStore(fakeEnv(nil), mock)

	if err := chain.SetToken("hetzner", "t"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if token, _ := mock.GetToken("hetzner"); token != "t" {
		t.Errorf("mock token = %q, want t", token)
	}
	if err := chain.DeleteToken("hetzner"); err != nil {
		t.Fatalf("DeleteToken failed: %v", err)
	}
	if _, err := chain.GetToken("hetzner"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound after delete, got %v", err)
	}
}
