package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/event"
	"github.com/Additional-Code/procura/internal/repository"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

var identityTracer = otel.Tracer("github.com/Additional-Code/procura/identity")

const minPasswordLength = 8

// Store is the persistence the identity collaborator needs.
type Store interface {
	Create(ctx context.Context, user *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Approve(ctx context.Context, id int64) (*entity.User, error)
}

// Claims is the bearer token payload.
type Claims struct {
	UserID int64       `json:"uid"`
	Role   entity.Role `json:"role"`
	Email  string      `json:"email"`
	jwt.RegisteredClaims
}

// Session is returned by a successful authentication.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

// RegisterInput carries the registration fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     entity.Role
	Company  string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store  Store
	Config config.Config
	Logger *zap.Logger
	Events event.Publisher
}

// Service authenticates principals and issues bearer credentials.
type Service struct {
	store  Store
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
	logger *zap.Logger
	events event.Publisher
	now    func() time.Time
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:  p.Store,
		secret: []byte(p.Config.Auth.JWTSecret),
		issuer: p.Config.Auth.Issuer,
		ttl:    p.Config.Auth.TokenTTL,
		cost:   p.Config.Auth.BcryptCost,
		logger: p.Logger,
		events: p.Events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user. Buyers and admins are approved immediately; other
// roles wait for an administrator.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.Register", trace.WithAttributes(attribute.String("user.role", string(in.Role))))
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Name == "" || in.Company == "" {
		return nil, errorbank.BadRequest("name and company are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, errorbank.BadRequest("invalid email", errorbank.WithCause(err))
	}
	if len(in.Password) < minPasswordLength {
		return nil, errorbank.BadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !in.Role.Valid() {
		return nil, errorbank.BadRequest("invalid role", errorbank.WithDetail("role", in.Role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, errorbank.Internal("failed to register user", errorbank.WithCause(err))
	}

	user := &entity.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Company:      in.Company,
		Approved:     in.Role.ApprovedOnRegistration(),
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorbank.Conflict("user already exists")
		}
		span.RecordError(err)
		return nil, errorbank.Internal("failed to register user", errorbank.WithCause(err))
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)), zap.Bool("approved", user.Approved))
	s.events.Publish(ctx, event.Envelope{Type: event.UserRegistered, UserID: user.ID, Status: string(user.Role)})
	return user, nil
}

// Authenticate checks credentials and issues a signed bearer token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.Authenticate")
	defer span.End()

	user, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorbank.Unauthorized("invalid credentials")
		}
		span.RecordError(err)
		return nil, errorbank.Internal("failed to authenticate", errorbank.WithCause(err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errorbank.Unauthorized("invalid credentials")
	}
	if !user.Approved {
		return nil, errorbank.Forbidden("account pending approval")
	}

	token, expiresAt, err := s.issue(user)
	if err != nil {
		return nil, errorbank.Internal("failed to issue token", errorbank.WithCause(err))
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Verify parses a bearer token into a principal.
func (s *Service) Verify(token string) (Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, errorbank.Unauthorized("invalid or expired token", errorbank.WithCause(err))
	}
	if !claims.Role.Valid() || claims.UserID <= 0 {
		return Principal{}, errorbank.Unauthorized("invalid token claims")
	}
	return Principal{UserID: claims.UserID, Role: claims.Role, Email: claims.Email}, nil
}

// Approve lets an administrator enable a pending account.
func (s *Service) Approve(ctx context.Context, admin Principal, userID int64) (*entity.User, error) {
	if admin.Role != entity.RoleAdmin {
		return nil, errorbank.Forbidden("only administrators can approve users")
	}
	user, err := s.store.Approve(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorbank.NotFound("user not found")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to approve user", errorbank.WithCause(err))
	}
	s.logger.Info("user approved", zap.Int64("user_id", userID), zap.Int64("admin_id", admin.UserID))
	return user, nil
}

func (s *Service) issue(user *entity.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed, expiresAt, err
}
