package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	accountService = "account-service"

	useCaseRegister      = "account.register"
	useCaseLogin         = "account.login"
	useCaseAuthenticate  = "account.authenticate"
	useCaseProfile       = "account.profile"
	useCaseUpdateProfile = "account.update_profile"
	useCaseList          = "account.list"
	useCaseGet           = "account.get"
	useCaseUpdate        = "account.update"
	useCaseDelete        = "account.delete"
	useCaseBootstrap     = "account.bootstrap_admin"
)

var errInvalidToken = apperr.New(apperr.ErrUnauthenticated, "not authorized, token failed")

type Service struct {
	repo   domain.Repository
	hasher PasswordHasher
	tokens TokenIssuer
	ids    application.IDGenerator
	tel    observability.Observability
	log    observability.Logger
}

func NewService(repo domain.Repository, hasher PasswordHasher, tokens TokenIssuer, ids application.IDGenerator, tel observability.Observability) *Service {
	tel = observability.OrNop(tel)
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		ids:    ids,
		tel:    tel,
		log:    tel.Logger().With(observability.F("service", accountService)),
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *domain.Account, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseRegister, "Register")
	defer func() { run.End(err) }()

	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		run.Fail("FIELDS_REQUIRED")
		return nil, apperr.Validation("please provide name, email and password")
	}
	email := domain.NormalizeEmail(in.Email)
	if err := domain.ValidateEmail(email); err != nil {
		run.Fail("EMAIL_INVALID")
		return nil, err
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		run.Fail("PASSWORD_TOO_SHORT")
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		run.Fail("HASH_FAILED")
		return nil, fmt.Errorf("account: hash password: %w", err)
	}
	acc := domain.New(s.ids.NewID(), in.Name, email, hash)
	if err := s.repo.Insert(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			run.Fail("EMAIL_TAKEN")
			return nil, err
		}
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("account: insert: %w", err)
	}
	run.Add(observability.F("account_id", acc.ID))
	return acc, nil
}

type Session struct {
	Token   string
	Account *domain.Account
}

// Login answers the same error for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (_ *Session, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseLogin, "Login")
	defer func() { run.End(err) }()

	acc, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("INVALID_CREDENTIALS")
			return nil, domain.ErrInvalidCredentials
		}
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("account: lookup: %w", err)
	}
	if err := s.hasher.Compare(acc.PasswordHash, password); err != nil {
		run.Fail("INVALID_CREDENTIALS")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(domain.Identity{AccountID: acc.ID, IsAdmin: acc.IsAdmin})
	if err != nil {
		run.Fail("TOKEN_ISSUE_FAILED")
		return nil, fmt.Errorf("account: issue token: %w", err)
	}
	run.Add(observability.F("account_id", acc.ID))
	return &Session{Token: token, Account: acc}, nil
}

// Authenticate verifies a bearer token and reloads the account, so deleted
// accounts are rejected and the admin flag always comes from the store.
func (s *Service) Authenticate(ctx context.Context, token string) (_ domain.Identity, _ *domain.Account, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseAuthenticate, "Authenticate")
	defer func() { run.End(err) }()

	if token == "" {
		run.Fail("TOKEN_MISSING")
		return domain.Identity{}, nil, apperr.New(apperr.ErrUnauthenticated, "not authorized, no token")
	}
	claimed, err := s.tokens.Verify(token)
	if err != nil {
		run.Fail("TOKEN_INVALID")
		return domain.Identity{}, nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	acc, err := s.repo.Get(ctx, claimed.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ACCOUNT_GONE")
			return domain.Identity{}, nil, errInvalidToken
		}
		run.Fail("REPOSITORY_ERROR")
		return domain.Identity{}, nil, fmt.Errorf("account: lookup: %w", err)
	}
	return domain.Identity{AccountID: acc.ID, IsAdmin: acc.IsAdmin}, acc, nil
}

func (s *Service) Profile(ctx context.Context, id string) (_ *domain.Account, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseProfile, "Profile",
		attribute.String("account.id", id),
	)
	defer func() { run.End(err) }()

	return s.load(ctx, run, id)
}

// ProfilePatch is a self-service update; nil fields are left untouched.
type ProfilePatch struct {
	Name     *string
	Email    *string
	Password *string
}

func (s *Service) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (_ *domain.Account, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseUpdateProfile, "UpdateProfile",
		attribute.String("account.id", id),
	)
	defer func() { run.End(err) }()

	acc, err := s.load(ctx, run, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCommon(acc, patch.Name, patch.Email); err != nil {
		run.Fail("VALIDATION")
		return nil, err
	}
	if patch.Password != nil && *patch.Password != "" {
		if err := domain.ValidatePassword(*patch.Password); err != nil {
			run.Fail("PASSWORD_TOO_SHORT")
			return nil, err
		}
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			run.Fail("HASH_FAILED")
			return nil, fmt.Errorf("account: hash password: %w", err)
		}
		acc.PasswordHash = hash
	}
	if err := s.save(ctx, run, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Service) List(ctx context.Context) (_ []*domain.Account, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseList, "ListAccounts")
	defer func() { run.End(err) }()

	out, err := s.repo.List(ctx)
	if err != nil {
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("account: list: %w", err)
	}
	run.Add(observability.F("count", len(out)))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (_ *domain.Account, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseGet, "GetAccount",
		attribute.String("account.id", id),
	)
	defer func() { run.End(err) }()

	return s.load(ctx, run, id)
}

// AdminPatch is an operator update; nil fields are left untouched.
type AdminPatch struct {
	Name    *string
	Email   *string
	IsAdmin *bool
}

func (s *Service) Update(ctx context.Context, id string, patch AdminPatch) (_ *domain.Account, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseUpdate, "UpdateAccount",
		attribute.String("account.id", id),
	)
	defer func() { run.End(err) }()

	acc, err := s.load(ctx, run, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCommon(acc, patch.Name, patch.Email); err != nil {
		run.Fail("VALIDATION")
		return nil, err
	}
	if patch.IsAdmin != nil {
		acc.IsAdmin = *patch.IsAdmin
	}
	if err := s.save(ctx, run, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Service) Delete(ctx context.Context, id string, requester domain.Identity) (err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseDelete, "DeleteAccount",
		attribute.String("account.id", id),
	)
	defer func() { run.End(err) }()

	if id == requester.AccountID {
		run.Fail("SELF_DELETE")
		return domain.ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("NOT_FOUND")
			return err
		}
		run.Fail("REPOSITORY_ERROR")
		return fmt.Errorf("account: delete: %w", err)
	}
	return nil
}

// Bootstrap promotes an existing account to admin. It is driven from process
// start-up, never from a request.
func (s *Service) Bootstrap(ctx context.Context, email string) (err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseBootstrap, "BootstrapAdmin")
	defer func() { run.End(err) }()

	acc, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("NOT_FOUND")
			return err
		}
		run.Fail("REPOSITORY_ERROR")
		return fmt.Errorf("account: lookup: %w", err)
	}
	if acc.IsAdmin {
		run.Status("ALREADY_ADMIN")
		return nil
	}
	acc.IsAdmin = true
	return s.save(ctx, run, acc)
}

func (s *Service) load(ctx context.Context, run *application.Run, id string) (*domain.Account, error) {
	acc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("NOT_FOUND")
			return nil, err
		}
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("account: get: %w", err)
	}
	return acc, nil
}

func (s *Service) save(ctx context.Context, run *application.Run, acc *domain.Account) error {
	acc.Touch()
	if err := s.repo.Update(ctx, acc); err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			run.Fail("EMAIL_TAKEN")
			return err
		case errors.Is(err, domain.ErrNotFound):
			run.Fail("NOT_FOUND")
			return err
		}
		run.Fail("REPOSITORY_ERROR")
		return fmt.Errorf("account: update: %w", err)
	}
	return nil
}

func (s *Service) applyCommon(acc *domain.Account, name, email *string) error {
	if name != nil && strings.TrimSpace(*name) != "" {
		acc.Name = strings.TrimSpace(*name)
	}
	if email != nil && strings.TrimSpace(*email) != "" {
		e := domain.NormalizeEmail(*email)
		if err := domain.ValidateEmail(e); err != nil {
			return err
		}
		acc.Email = e
	}
	return nil
}
