package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/owen-ho/enroot-qr-pairing/internal/models"
	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"
)

var errNotImplemented = errors.New("not implemented")

type mockEngine struct {
	admitFn       func(ctx context.Context) (*pairing.Admission, error)
	statusFn      func(ctx context.Context, id uint) (*pairing.Standing, error)
	unpairFn      func(ctx context.Context, id uint, actor pairing.Actor) (*pairing.Unpairing, error)
	rosterFn      func(ctx context.Context) ([]repositories.RosterEntry, error)
	statsFn       func(ctx context.Context) (*pairing.Stats, error)
	adminPairFn   func(ctx context.Context, a, b uint) (*models.Pairing, error)
	adminUnpairFn func(ctx context.Context, id uint) (*models.Pairing, error)
	removeFn      func(ctx context.Context, id uint) error
	revokeFn      func(ctx context.Context, id uint) error
	resetFn       func(ctx context.Context) error
}

func (m *mockEngine) Admit(ctx context.Context) (*pairing.Admission, error) {
	if m.admitFn == nil {
		return nil, errNotImplemented
	}
	return m.admitFn(ctx)
}

func (m *mockEngine) Status(ctx context.Context, id uint) (*pairing.Standing, error) {
	if m.statusFn == nil {
		return nil, errNotImplemented
	}
	return m.statusFn(ctx, id)
}

func (m *mockEngine) Unpair(ctx context.Context, id uint, actor pairing.Actor) (*pairing.Unpairing, error) {
	if m.unpairFn == nil {
		return nil, errNotImplemented
	}
	return m.unpairFn(ctx, id, actor)
}

func (m *mockEngine) Roster(ctx context.Context) ([]repositories.RosterEntry, error) {
	if m.rosterFn == nil {
		return nil, errNotImplemented
	}
	return m.rosterFn(ctx)
}

func (m *mockEngine) Stats(ctx context.Context) (*pairing.Stats, error) {
	if m.statsFn == nil {
		return nil, errNotImplemented
	}
	return m.statsFn(ctx)
}

func (m *mockEngine) AdminPair(ctx context.Context, a, b uint) (*models.Pairing, error) {
	if m.adminPairFn == nil {
		return nil, errNotImplemented
	}
	return m.adminPairFn(ctx, a, b)
}

func (m *mockEngine) AdminUnpair(ctx context.Context, id uint) (*models.Pairing, error) {
	if m.adminUnpairFn == nil {
		return nil, errNotImplemented
	}
	return m.adminUnpairFn(ctx, id)
}

func (m *mockEngine) Remove(ctx context.Context, id uint) error {
	if m.removeFn == nil {
		return errNotImplemented
	}
	return m.removeFn(ctx, id)
}

func (m *mockEngine) RevokeCredential(ctx context.Context, id uint) error {
	if m.revokeFn == nil {
		return errNotImplemented
	}
	return m.revokeFn(ctx, id)
}

func (m *mockEngine) Reset(ctx context.Context) error {
	if m.resetFn == nil {
		return errNotImplemented
	}
	return m.resetFn(ctx)
}

type mockTokens struct {
	token string
	err   error
}

func (m mockTokens) IssueAdmin() (string, error) { return m.token, m.err }

type mockPasswords struct {
	err error
}

func (m mockPasswords) Check(string) error { return m.err }

type mockNotifier struct {
	served uint
}

func (m *mockNotifier) Serve(w http.ResponseWriter, _ *http.Request, id uint) {
	m.served = id
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type mockPinger struct {
	err error
}

func (m mockPinger) PingContext(context.Context) error { return m.err }
