// Package session drives the authentication lifecycle: login against
// the upstream suite, partner resolution, logout, and recovery of a
// persisted session at startup.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Ducpm1301/ga-webcs/internal/broadcast"
	"github.com/Ducpm1301/ga-webcs/internal/model"
	"github.com/Ducpm1301/ga-webcs/internal/store"
	"github.com/Ducpm1301/ga-webcs/pkg/bsapi"
)

// ErrInvalidCredentials is returned when the upstream rejects the
// login. The session state is untouched in that case.
var ErrInvalidCredentials = eris.New("session: invalid credentials")

// Manager owns the session state machine. All transitions go through
// it; readers get copies via State.
type Manager struct {
	api     bsapi.Client
	store   store.Store
	hub     *broadcast.Hub
	appCode string
	device  string

	mu    sync.RWMutex
	state model.Session
}

// NewManager wires the session machine to its collaborators. appCode
// and device identify this application to the upstream auth service.
func NewManager(api bsapi.Client, s store.Store, hub *broadcast.Hub, appCode, device string) *Manager {
	return &Manager{api: api, store: s, hub: hub, appCode: appCode, device: device}
}

// State returns a copy of the current session.
func (m *Manager) State() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Login authenticates and resolves the user's partner list. The
// session becomes authenticated as soon as the credentials are
// accepted; PartnersReady flips only after every partner resolved, so a
// partial resolution never leaves a half-usable partner list behind.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.api.Login(ctx, bsapi.LoginRequest{
		ApplicationCode: m.appCode,
		Email:           email,
		Password:        password,
		Device:          m.device,
	})
	if err != nil {
		return eris.Wrap(err, "session: login request")
	}
	if resp.Code != "OK" {
		zap.L().Warn("login rejected", zap.String("email", email), zap.String("code", resp.Code))
		return ErrInvalidCredentials
	}

	if err := m.store.SetToken(ctx, resp.AccessToken); err != nil {
		return eris.Wrap(err, "session: persist token")
	}

	user := &model.User{
		ID:          resp.ID,
		Email:       resp.Email,
		AccessToken: resp.AccessToken,
	}
	for _, p := range resp.Partners {
		user.Partners = append(user.Partners, model.PartnerRef{Code: p.Code})
	}

	m.mu.Lock()
	m.state = model.Session{
		IsAuthenticated: true,
		User:            user,
		LoadingPartners: true,
	}
	m.mu.Unlock()

	zap.L().Info("login accepted",
		zap.String("email", resp.Email),
		zap.Int("partner_codes", len(resp.Partners)))

	partners, err := m.resolvePartners(ctx, resp.Partners)

	m.mu.Lock()
	m.state.LoadingPartners = false
	if err == nil {
		m.state.PartnersReady = true
	}
	m.mu.Unlock()

	if err != nil {
		return eris.Wrap(err, "session: resolve partners")
	}

	if err := m.store.SetPartners(ctx, partners); err != nil {
		return eris.Wrap(err, "session: persist partners")
	}
	return m.hub.EnsureDefault(ctx, partners)
}

// resolvePartners fetches every partner record concurrently, fail-fast.
// Results come back sorted by display name under Vietnamese collation.
func (m *Manager) resolvePartners(ctx context.Context, refs []bsapi.PartnerRef) ([]model.Partner, error) {
	partners := make([]model.Partner, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			rec, err := m.api.PartnerInfo(gctx, ref.Code)
			if err != nil {
				return err
			}
			partners[i] = model.Partner{ID: rec.ID, Name: rec.Name}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := collate.New(language.Vietnamese)
	sort.SliceStable(partners, func(i, j int) bool {
		return c.CompareString(partners[i].Name, partners[j].Name) < 0
	})
	return partners, nil
}

// Logout clears the persisted session and resets to anonymous. Other
// processes observe the cleared token through the store watcher and
// drop their own sessions.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return eris.Wrap(err, "session: clear store")
	}
	m.mu.Lock()
	m.state = model.Session{}
	m.mu.Unlock()
	m.hub.Reset()
	zap.L().Info("logged out")
	return nil
}

// Resume restores a session persisted by an earlier run. Without a
// stored token the session stays anonymous.
func (m *Manager) Resume(ctx context.Context) error {
	token, err := m.store.Token(ctx)
	if err != nil {
		return eris.Wrap(err, "session: read token")
	}
	if token == "" {
		return nil
	}

	partners, err := m.store.Partners(ctx)
	if err != nil {
		return eris.Wrap(err, "session: read partners")
	}

	m.mu.Lock()
	m.state = model.Session{
		IsAuthenticated: true,
		User:            &model.User{AccessToken: token},
		PartnersReady:   len(partners) > 0,
	}
	m.mu.Unlock()

	zap.L().Info("session resumed", zap.Int("partners", len(partners)))
	return m.hub.EnsureDefault(ctx, partners)
}

// HandleStoreEvent reacts to session changes made by other processes.
// A cleared token forces this process out without writing back to the
// store, which is already in its final state.
func (m *Manager) HandleStoreEvent(ev store.Event) {
	switch ev.Kind {
	case store.EventTokenCleared:
		m.mu.Lock()
		wasAuthenticated := m.state.IsAuthenticated
		m.state = model.Session{}
		m.mu.Unlock()
		m.hub.Reset()
		if wasAuthenticated {
			zap.L().Info("forced logout by another process")
		}
	case store.EventTokenChanged:
		m.mu.Lock()
		m.state.IsAuthenticated = true
		if m.state.User == nil {
			m.state.User = &model.User{}
		}
		m.state.User.AccessToken = ev.Token
		m.mu.Unlock()
	case store.EventPartnersChanged:
		m.mu.Lock()
		m.state.PartnersReady = len(ev.Partners) > 0
		m.mu.Unlock()
	case store.EventSelectionChanged:
		m.hub.Apply(ev.SelectedPartner)
	}
}
