package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/ids"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/security"
	"github.com/ldotspots/zuco-motors/internal/session"
)

// Portal is the part of the marketplace a request comes from. PortalNone is
// a shared page such as the landing page.
type Portal string

const (
	PortalNone   Portal = ""
	PortalBuyer  Portal = "buyer"
	PortalDealer Portal = "dealer"
	PortalSales  Portal = "sales"
)

const UnauthorizedPath = "/"

func ParsePortal(s string) (Portal, bool) {
	switch p := Portal(strings.ToLower(strings.TrimSpace(s))); p {
	case PortalNone, PortalBuyer, PortalDealer, PortalSales:
		return p, true
	}
	return PortalNone, false
}

// Namespace is the session namespace the portal reads first. PortalNone has
// none and falls back to scanning every namespace.
func (p Portal) Namespace() string {
	switch p {
	case PortalBuyer:
		return session.NamespaceBuyer
	case PortalDealer:
		return session.NamespaceDealer
	case PortalSales:
		return session.NamespaceAgent
	}
	return ""
}

func (p Portal) LoginPath() string {
	switch p {
	case PortalDealer:
		return "/dealer-portal/login.html"
	case PortalSales:
		return "/sales-portal/login.html"
	}
	return "/buyer-portal/login.html"
}

type AuthStatus int

const (
	AuthUnauthenticated AuthStatus = iota
	AuthAuthenticated
	AuthWrongRole
)

// AuthResult is the outcome of a gate check. Redirect is set for the two
// failing outcomes.
type AuthResult struct {
	Status   AuthStatus
	Session  models.Session
	Redirect string
}

func Authenticated(s models.Session) AuthResult {
	return AuthResult{Status: AuthAuthenticated, Session: s}
}

func Unauthenticated(loginPath string) AuthResult {
	return AuthResult{Status: AuthUnauthenticated, Redirect: loginPath}
}

func WrongRole(path string) AuthResult {
	return AuthResult{Status: AuthWrongRole, Redirect: path}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthService struct {
	users    UserStore
	sessions session.Store
	cfg      *config.AppConfig
	log      zerolog.Logger
	hash     func(string) ([]byte, error)
	now      func() time.Time
}

func NewAuthService(users UserStore, sessions session.Store, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		hash:     security.HashPassword,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) WithPasswordHasher(hash func(string) ([]byte, error)) *AuthService {
	s.hash = hash
	return s
}

type LoginResult struct {
	Session   models.Session
	Namespace string
	Token     string
	ClientID  string
}

// Login signs a user in within one client context. A new client id is
// issued when client is empty.
func (s *AuthService) Login(ctx context.Context, client, email, password string, remember bool) (LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return LoginResult{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredential
	}

	now := s.now().UTC()
	user.LastLogin = now
	if err := s.users.Update(ctx, user); err != nil {
		return LoginResult{}, fmt.Errorf("record last login: %w", err)
	}

	ttl, scope := s.cfg.Security.SessionTTL, session.ScopeShort
	if remember {
		ttl, scope = s.cfg.Security.RememberTTL, session.ScopeLong
	}
	sess := models.Session{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Remember:  remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if client == "" {
		client = ids.New()
	}
	ns := session.NamespaceForRole(user.Role)
	if err := s.sessions.Put(ctx, client, scope, ns, sess); err != nil {
		return LoginResult{}, fmt.Errorf("store session: %w", err)
	}
	if remember {
		if err := s.sessions.SetRemember(ctx, client); err != nil {
			return LoginResult{}, fmt.Errorf("store remember flag: %w", err)
		}
	}

	token, err := security.IssueSessionToken(s.cfg.Security.JWTSecret, user.ID, string(user.Role), client, ns, now, sess.ExpiresAt)
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Bool("remember", remember).Msg("user signed in")
	return LoginResult{Session: sess, Namespace: ns, Token: token, ClientID: client}, nil
}

// Session returns the live session for the client. An expired session logs
// the client out of every namespace and reports ok=false.
func (s *AuthService) Session(ctx context.Context, client string, portal Portal) (models.Session, bool, error) {
	if client == "" {
		return models.Session{}, false, nil
	}
	sess, _, ok, err := session.Find(ctx, s.sessions, client, portal.Namespace())
	if err != nil || !ok {
		return models.Session{}, false, err
	}
	if !sess.Valid(s.now()) {
		if err := session.Clear(ctx, s.sessions, client); err != nil {
			return models.Session{}, false, fmt.Errorf("expire session: %w", err)
		}
		s.log.Debug().Str("user_id", sess.UserID).Msg("session expired")
		return models.Session{}, false, nil
	}
	return sess, true, nil
}

func (s *AuthService) IsAuthenticated(ctx context.Context, client string, portal Portal) (bool, error) {
	_, ok, err := s.Session(ctx, client, portal)
	return ok, err
}

// RequireAuth gates a portal. With no roles any signed-in user passes.
// The error is reserved for store failures.
func (s *AuthService) RequireAuth(ctx context.Context, client string, portal Portal, roles ...models.UserRole) (AuthResult, error) {
	sess, ok, err := s.Session(ctx, client, portal)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return Unauthenticated(portal.LoginPath()), nil
	}
	if len(roles) > 0 && !hasRole(sess, roles) {
		return WrongRole(UnauthorizedPath), nil
	}
	return Authenticated(sess), nil
}

func (s *AuthService) HasRole(ctx context.Context, client string, portal Portal, roles ...models.UserRole) (bool, error) {
	sess, ok, err := s.Session(ctx, client, portal)
	if err != nil || !ok {
		return false, err
	}
	return hasRole(sess, roles), nil
}

func hasRole(sess models.Session, roles []models.UserRole) bool {
	for _, r := range roles {
		if sess.Role == r {
			return true
		}
	}
	return false
}

// Logout clears the portal's namespace in both scopes and the remember flag.
// Without a portal every namespace is cleared.
func (s *AuthService) Logout(ctx context.Context, client string, portal Portal) error {
	if client == "" {
		return nil
	}
	if ns := portal.Namespace(); ns != "" {
		return session.Clear(ctx, s.sessions, client, ns)
	}
	return session.Clear(ctx, s.sessions, client)
}

func (s *AuthService) CurrentUser(ctx context.Context, client string, portal Portal) (models.User, error) {
	sess, ok, err := s.Session(ctx, client, portal)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrNotAuthenticated
	}
	return s.users.GetByID(ctx, sess.UserID)
}

// Users lists accounts, optionally narrowed to one role.
func (s *AuthService) Users(ctx context.Context, role models.UserRole) ([]models.User, error) {
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}
	return s.users.List(ctx, role)
}

type RegisterInput struct {
	Email          string
	Password       string
	Role           models.UserRole
	FirstName      string
	LastName       string
	Phone          string
	Address        string
	EmployeeID     string
	Region         string
	Specialization string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Email = strings.TrimSpace(input.Email)
	if !emailPattern.MatchString(input.Email) {
		return models.User{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if input.Role == "" {
		input.Role = models.UserRoleBuyer
	}
	if !input.Role.Valid() {
		return models.User{}, fmt.Errorf("%w: role", ErrInvalidInput)
	}

	if err := s.ensureEmailFree(ctx, input.Email); err != nil {
		return models.User{}, err
	}
	if ok, _ := security.ValidatePassword(input.Password); !ok {
		return models.User{}, ErrWeakPassword
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := models.User{
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		CreatedAt:    now,
		LastLogin:    now,
	}
	applyRoleDefaults(&user, input, s.cfg.Pricing.DefaultCommissionRate)

	_, err = createWithID(ctx, s.users, idPrefixForRole(user.Role), func(id string) error {
		user.ID = id
		return s.users.Create(ctx, user)
	})
	if err != nil {
		// a racing registration may have taken the email between check and insert
		if dupErr := s.ensureEmailFree(ctx, input.Email); dupErr != nil {
			return models.User{}, dupErr
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Str("name", user.FullName()).Msg("user registered")
	return user, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return ErrDuplicateEmail
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func idPrefixForRole(role models.UserRole) string {
	switch role {
	case models.UserRoleDealer:
		return ids.PrefixDealer
	case models.UserRoleSalesAgent:
		return ids.PrefixAgent
	}
	return ids.PrefixBuyer
}

func applyRoleDefaults(user *models.User, input RegisterInput, commissionRate float64) {
	switch user.Role {
	case models.UserRoleDealer:
		user.EmployeeID = input.EmployeeID
		user.CommissionRate = commissionRate
		user.Profile = models.Profile{
			Department:  "Sales",
			Supervisor:  "Robert Chen",
			SalesTarget: 150000,
		}
	case models.UserRoleSalesAgent:
		user.CommissionRate = commissionRate
		user.Profile = models.Profile{
			Region:         input.Region,
			Specialization: input.Specialization,
		}
	default:
		user.Profile = models.Profile{
			Address:           input.Address,
			PreferredContact:  "email",
			SavedSearches:     []string{},
			Favorites:         []string{},
			NotificationPrefs: &models.NotificationPrefs{Email: true, SMS: false},
		}
	}
}

func (s *AuthService) UpdatePassword(ctx context.Context, client string, portal Portal, current, next string) error {
	user, err := s.CurrentUser(ctx, client, portal)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredential
	}
	if valid, _ := security.ValidatePassword(next); !valid {
		return ErrWeakPassword
	}

	hash, err := s.hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// ProfilePatch changes the signed-in user's own record. Profile keys use the
// JSON field names of models.Profile.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Profile   map[string]any
}

var protectedProfileKeys = []string{"ytdSales", "salesTarget"}

func (s *AuthService) UpdateProfile(ctx context.Context, client string, portal Portal, patch ProfilePatch) (models.User, error) {
	user, err := s.CurrentUser(ctx, client, portal)
	if err != nil {
		return models.User{}, err
	}

	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if len(patch.Profile) > 0 {
		for _, key := range protectedProfileKeys {
			if _, ok := patch.Profile[key]; ok {
				return models.User{}, fmt.Errorf("%w: %s cannot be changed", ErrInvalidInput, key)
			}
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &user.Profile,
			ErrorUnused: true,
		})
		if err != nil {
			return models.User{}, err
		}
		if err := dec.Decode(patch.Profile); err != nil {
			return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return models.User{}, err
	}

	if patch.FirstName != nil || patch.LastName != nil {
		if err := s.refreshSessionNames(ctx, client, user); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("refresh session names failed")
		}
	}
	return user, nil
}

func (s *AuthService) refreshSessionNames(ctx context.Context, client string, user models.User) error {
	ns := session.NamespaceForRole(user.Role)
	for _, scope := range []session.Scope{session.ScopeShort, session.ScopeLong} {
		sess, ok, err := s.sessions.Get(ctx, client, scope, ns)
		if err != nil {
			return err
		}
		if !ok || sess.UserID != user.ID {
			continue
		}
		sess.FirstName = user.FirstName
		sess.LastName = user.LastName
		if err := s.sessions.Put(ctx, client, scope, ns, sess); err != nil {
			return err
		}
	}
	return nil
}

func (s *AuthService) ValidatePassword(password string) (bool, security.PasswordChecks) {
	return security.ValidatePassword(password)
}
