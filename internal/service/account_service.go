package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"booking-api/internal/domain"
	"booking-api/internal/email"
	"booking-api/internal/repository"
)

// Mailer entrega correos de plantilla. Los fallos no se propagan.
type Mailer interface {
	Send(ctx context.Context, to, templateName string, payload any) bool
}

// AccountDeps agrupa los colaboradores de AccountService.
type AccountDeps struct {
	Logger       *zap.Logger
	Accounts     repository.AccountRepository
	Credentials  *CredentialStore
	Verification *VerificationService
	Resets       *PasswordResetService
	Sessions     *SessionService
	Mailer       Mailer
	Limiter      RateLimiter
	PhoneRegion  string
}

// AccountService coordina reglas de negocio para cuentas.
type AccountService struct {
	logger       *zap.Logger
	accounts     repository.AccountRepository
	credentials  *CredentialStore
	verification *VerificationService
	resets       *PasswordResetService
	sessions     *SessionService
	mailer       Mailer
	limiter      RateLimiter
	phoneRegion  string
	now          func() time.Time
}

func NewAccountService(deps AccountDeps) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(10*time.Minute, 3)
	}
	region := strings.ToUpper(strings.TrimSpace(deps.PhoneRegion))
	if region == "" {
		region = "IN"
	}
	return &AccountService{
		logger:       logger,
		accounts:     deps.Accounts,
		credentials:  deps.Credentials,
		verification: deps.Verification,
		resets:       deps.Resets,
		sessions:     deps.Sessions,
		mailer:       deps.Mailer,
		limiter:      limiter,
		phoneRegion:  region,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type AddressInput struct {
	Line1    string `json:"line1"`
	Landmark string `json:"landmark"`
	Pincode  string `json:"pincode"`
}

// Validate revisa la dirección ya recortada, igual que la guarda toDomain.
func (a AddressInput) Validate() error {
	a = a.trimmed()
	return validation.ValidateStruct(&a,
		validation.Field(&a.Line1, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.Landmark, validation.Length(0, 200)),
		validation.Field(&a.Pincode, validation.Required, validation.Length(3, 12)),
	)
}

func (a AddressInput) trimmed() AddressInput {
	return AddressInput{
		Line1:    strings.TrimSpace(a.Line1),
		Landmark: strings.TrimSpace(a.Landmark),
		Pincode:  strings.TrimSpace(a.Pincode),
	}
}

func (a AddressInput) toDomain() domain.Address {
	t := a.trimmed()
	return domain.Address{Line1: t.Line1, Landmark: t.Landmark, Pincode: t.Pincode}
}

// RegisterInput es el cuerpo de alta. El rol nunca viene del cliente.
type RegisterInput struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Mobile   string       `json:"mobileNumber"`
	Address  AddressInput `json:"address"`
}

// ProfileUpdate lleva solo los campos presentes en la petición.
type ProfileUpdate struct {
	Name    *string       `json:"name"`
	Mobile  *string       `json:"mobileNumber"`
	Address *AddressInput `json:"address"`
	Role    *domain.Role  `json:"role"`
}

type newAccountFields struct {
	name    string
	email   string
	mobile  string
	address domain.Address
}

func (s *AccountService) validateRegistration(in RegisterInput) (newAccountFields, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	ve := &ValidationError{Fields: make(map[string]string)}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Address),
	)
	if err := mergeValidation(ve, toValidationError(err)); err != nil {
		return newAccountFields{}, err
	}
	if err := mergeValidation(ve, validatePassword("password", in.Password)); err != nil {
		return newAccountFields{}, err
	}
	mobile, err := normalizeMobile(in.Mobile, s.phoneRegion)
	if err != nil {
		ve.Fields["mobileNumber"] = err.Error()
	}
	if len(ve.Fields) > 0 {
		return newAccountFields{}, ve
	}
	return newAccountFields{
		name:    in.Name,
		email:   in.Email,
		mobile:  mobile,
		address: in.Address.toDomain(),
	}, nil
}

func (s *AccountService) ensureUnique(ctx context.Context, emailAddr, mobile string) error {
	if _, err := s.accounts.GetByEmail(ctx, emailAddr); err == nil {
		return ErrDuplicateCredential
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.accounts.GetByMobile(ctx, mobile); err == nil {
		return ErrDuplicateCredential
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup mobile: %w", err)
	}
	return nil
}

// Register crea una cuenta no verificada con rol user y envía el correo
// de verificación. Un fallo del correo no revierte el alta.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}
	fields, err := s.validateRegistration(in)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.ensureUnique(ctx, fields.email, fields.mobile); err != nil {
		return domain.Account{}, err
	}

	passwordHash, err := s.credentials.Hash(in.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	rawToken, slot, err := s.verification.NewToken()
	if err != nil {
		return domain.Account{}, err
	}

	now := s.now()
	expires := slot.ExpiresAt
	account := domain.Account{
		ID:                         uuid.NewString(),
		Name:                       fields.name,
		Email:                      fields.email,
		Mobile:                     fields.mobile,
		Address:                    fields.address,
		Role:                       domain.RoleUser,
		PasswordHash:               passwordHash,
		EmailVerificationTokenHash: slot.Hash,
		EmailVerificationExpiresAt: &expires,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Account{}, ErrDuplicateCredential
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.sendMail(ctx, account.Email, email.TemplateVerifyEmail, rawToken)
	s.logger.Info("account registered", zap.String("account_id", account.ID))
	return account, nil
}

// CreateAdmin da de alta una cuenta admin ya verificada, sin correo.
func (s *AccountService) CreateAdmin(ctx context.Context, in RegisterInput) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}
	fields, err := s.validateRegistration(in)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.ensureUnique(ctx, fields.email, fields.mobile); err != nil {
		return domain.Account{}, err
	}
	passwordHash, err := s.credentials.Hash(in.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account := domain.Account{
		ID:            uuid.NewString(),
		Name:          fields.name,
		Email:         fields.email,
		Mobile:        fields.mobile,
		Address:       fields.address,
		Role:          domain.RoleAdmin,
		PasswordHash:  passwordHash,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Account{}, ErrDuplicateCredential
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info("admin account created", zap.String("account_id", account.ID))
	return account, nil
}

// Promote convierte en admin una cuenta existente y la marca verificada.
func (s *AccountService) Promote(ctx context.Context, emailAddr string) (domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	role := domain.RoleAdmin
	updated, err := s.accounts.UpdateIf(ctx,
		repository.Condition{ID: account.ID},
		repository.Changes{Role: &role, MarkEmailVerified: true, ClearVerification: true},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("promote account: %w", err)
	}
	return updated, nil
}

// Authenticate comprueba la contraseña antes que el estado de verificación.
func (s *AccountService) Authenticate(ctx context.Context, emailAddr, password string) (domain.Account, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.Account{}, ErrInvalidCredentials
	}
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, err
	}
	if !s.credentials.Verify(password, account.PasswordHash) {
		return domain.Account{}, ErrInvalidCredentials
	}
	if !account.EmailVerified {
		return domain.Account{}, ErrEmailUnverified
	}
	return account, nil
}

func (s *AccountService) Login(ctx context.Context, emailAddr, password string) (domain.Account, domain.TokenPair, error) {
	account, err := s.Authenticate(ctx, emailAddr, password)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, err
	}
	pair, err := s.sessions.Login(ctx, account)
	if err != nil {
		return domain.Account{}, domain.TokenPair{}, err
	}
	return account, pair, nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, rawToken string) (domain.Account, error) {
	return s.verification.Consume(ctx, rawToken)
}

func (s *AccountService) ResendVerification(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return fieldError("email", "cannot be blank")
	}
	if !s.limiter.Allow("verify:" + emailAddr) {
		return ErrRateLimited
	}
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("resend verification for unknown email")
			return nil
		}
		return err
	}
	if account.EmailVerified {
		return nil
	}
	rawToken, err := s.verification.Issue(ctx, account)
	if err != nil {
		return err
	}
	s.sendMail(ctx, account.Email, email.TemplateVerifyEmail, rawToken)
	return nil
}

func (s *AccountService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return fieldError("email", "cannot be blank")
	}
	if !s.limiter.Allow("reset:" + emailAddr) {
		return ErrRateLimited
	}
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	rawToken, err := s.resets.Issue(ctx, account)
	if err != nil {
		return err
	}
	s.sendMail(ctx, account.Email, email.TemplatePasswordReset, rawToken)
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	account, err := s.resets.Consume(ctx, rawToken, newPassword)
	if err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("account_id", account.ID))
	return nil
}

// SetPassword es la única vía de cambio de contraseña fuera del reset.
// Cierra la sesión activa y descarta cualquier reset pendiente.
func (s *AccountService) SetPassword(ctx context.Context, accountID, current, next string) error {
	if err := validatePassword("newPassword", next); err != nil {
		return err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if !s.credentials.Verify(current, account.PasswordHash) {
		return ErrInvalidCredentials
	}
	passwordHash, err := s.credentials.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.accounts.UpdateIf(ctx,
		repository.Condition{ID: accountID},
		repository.Changes{PasswordHash: &passwordHash, ClearReset: true, ClearRefreshToken: true},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

func (s *AccountService) Get(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	return account, nil
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// UpdateProfile aplica los campos presentes. Cambiar el rol exige que
// quien actúa sea admin.
func (s *AccountService) UpdateProfile(ctx context.Context, actor Claims, id string, in ProfileUpdate) (domain.Account, error) {
	var changes repository.Changes
	ve := &ValidationError{Fields: make(map[string]string)}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			ve.Fields["name"] = "cannot be blank"
		}
		changes.Name = &name
	}
	if in.Mobile != nil {
		mobile, err := normalizeMobile(*in.Mobile, s.phoneRegion)
		if err != nil {
			ve.Fields["mobileNumber"] = err.Error()
		}
		changes.Mobile = &mobile
	}
	if in.Address != nil {
		if err := in.Address.Validate(); err != nil {
			var errs validation.Errors
			if !errors.As(err, &errs) {
				return domain.Account{}, err
			}
			flattenErrors("address", errs, ve.Fields)
		}
		addr := in.Address.toDomain()
		changes.Address = &addr
	}
	if in.Role != nil {
		if actor.Role != domain.RoleAdmin {
			return domain.Account{}, ErrAccessDenied
		}
		if !in.Role.Valid() {
			ve.Fields["role"] = "must be a valid value"
		}
		role := *in.Role
		changes.Role = &role
	}
	if len(ve.Fields) > 0 {
		return domain.Account{}, ve
	}
	if changes.Name == nil && changes.Mobile == nil && changes.Address == nil && changes.Role == nil {
		return s.Get(ctx, id)
	}

	updated, err := s.accounts.UpdateIf(ctx, repository.Condition{ID: id}, changes)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Account{}, ErrAccountNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return domain.Account{}, ErrDuplicateCredential
		}
		return domain.Account{}, fmt.Errorf("update account: %w", err)
	}
	return updated, nil
}

// Delete revoca la sesión y luego borra la cuenta. No hay borrado en cascada.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.sessions.Revoke(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.Info("account deleted", zap.String("account_id", id))
	return nil
}

func (s *AccountService) sendMail(ctx context.Context, to, templateName string, payload any) {
	if s.mailer == nil {
		s.logger.Warn("mailer not configured", zap.String("template", templateName))
		return
	}
	s.mailer.Send(ctx, to, templateName, payload)
}
