package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/event"
	"github.com/Additional-Code/procura/internal/repository"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

type memoryUsers struct {
	byID map[int64]*entity.User
}

func (m *memoryUsers) Create(_ context.Context, u *entity.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = int64(len(m.byID) + 1)
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) Approve(_ context.Context, id int64) (*entity.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Approved = true
	cp := *u
	return &cp, nil
}

type recordingEvents struct {
	events []event.Envelope
}

func (r *recordingEvents) Publish(_ context.Context, env event.Envelope) {
	r.events = append(r.events, env)
}

func newTestService() *Service {
	svc, _ := newRecordingService()
	return svc
}

func newRecordingService() (*Service, *recordingEvents) {
	cfg := config.Config{Auth: config.Auth{
		JWTSecret:  "0123456789abcdef0123",
		Issuer:     "procura",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}}
	events := &recordingEvents{}
	svc := NewService(Params{Store: &memoryUsers{byID: map[int64]*entity.User{}}, Config: cfg, Logger: zap.NewNop(), Events: events})
	return svc, events
}

func register(t *testing.T, svc *Service, email string, role entity.Role) *entity.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "Pat", Email: email, Password: "correct horse", Role: role, Company: "Acme",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterApprovalByRole(t *testing.T) {
	svc := newTestService()

	require.True(t, register(t, svc, "buyer@acme.io", entity.RoleBuyer).Approved)
	require.True(t, register(t, svc, "admin@acme.io", entity.RoleAdmin).Approved)
	require.False(t, register(t, svc, "vendor@acme.io", entity.RoleVendor).Approved)
	require.False(t, register(t, svc, "approver@acme.io", entity.RoleApprover).Approved)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	register(t, svc, "taken@acme.io", entity.RoleBuyer)

	cases := []struct {
		name string
		in   RegisterInput
		kind errorbank.Kind
	}{
		{"bad email", RegisterInput{Name: "A", Company: "B", Email: "nope", Password: "longenough", Role: entity.RoleBuyer}, errorbank.KindBadRequest},
		{"short password", RegisterInput{Name: "A", Company: "B", Email: "a@b.io", Password: "short", Role: entity.RoleBuyer}, errorbank.KindBadRequest},
		{"unknown role", RegisterInput{Name: "A", Company: "B", Email: "a@b.io", Password: "longenough", Role: "auditor"}, errorbank.KindBadRequest},
		{"missing company", RegisterInput{Name: "A", Email: "a@b.io", Password: "longenough", Role: entity.RoleBuyer}, errorbank.KindBadRequest},
		{"duplicate email", RegisterInput{Name: "A", Company: "B", Email: " TAKEN@acme.io", Password: "longenough", Role: entity.RoleBuyer}, errorbank.KindConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			require.True(t, errorbank.IsKind(err, tc.kind), "got %v", err)
		})
	}
}

func TestAuthenticateAndVerify(t *testing.T) {
	svc := newTestService()
	user := register(t, svc, "buyer@acme.io", entity.RoleBuyer)

	session, err := svc.Authenticate(context.Background(), "Buyer@Acme.io", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, session.User.ID)

	p, err := svc.Verify(session.Token)
	require.NoError(t, err)
	require.Equal(t, Principal{UserID: user.ID, Role: entity.RoleBuyer, Email: "buyer@acme.io"}, p)

	_, err = svc.Authenticate(context.Background(), "buyer@acme.io", "wrong password")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
	_, err = svc.Authenticate(context.Background(), "ghost@acme.io", "correct horse")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
}

func TestPendingAccountCannotAuthenticateUntilApproved(t *testing.T) {
	svc := newTestService()
	admin := register(t, svc, "admin@acme.io", entity.RoleAdmin)
	vendor := register(t, svc, "vendor@acme.io", entity.RoleVendor)

	_, err := svc.Authenticate(context.Background(), "vendor@acme.io", "correct horse")
	require.True(t, errorbank.IsKind(err, errorbank.KindForbidden))

	_, err = svc.Approve(context.Background(), Principal{UserID: vendor.ID, Role: entity.RoleVendor}, vendor.ID)
	require.True(t, errorbank.IsKind(err, errorbank.KindForbidden))

	approved, err := svc.Approve(context.Background(), Principal{UserID: admin.ID, Role: entity.RoleAdmin}, vendor.ID)
	require.NoError(t, err)
	require.True(t, approved.Approved)

	_, err = svc.Authenticate(context.Background(), "vendor@acme.io", "correct horse")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), Principal{UserID: admin.ID, Role: entity.RoleAdmin}, 404)
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestRegisterPublishesEvent(t *testing.T) {
	svc, events := newRecordingService()

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Pat", Email: "bad", Password: "correct horse", Role: entity.RoleBuyer, Company: "Acme"})
	require.Error(t, err)
	require.Empty(t, events.events)

	user := register(t, svc, "vendor@acme.io", entity.RoleVendor)
	require.Equal(t, []event.Envelope{{Type: event.UserRegistered, UserID: user.ID, Status: string(entity.RoleVendor)}}, events.events)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc := newTestService()
	user := register(t, svc, "buyer@acme.io", entity.RoleBuyer)

	_, err := svc.Verify("not-a-token")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))

	token, _, err := svc.issue(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.Verify(token)
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized), "expired token accepted")

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           user.ID,
		Role:             entity.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "procura", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := forged.SignedString([]byte("another-secret-entirely"))
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().UTC() }
	_, err = svc.Verify(signed)
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
}
