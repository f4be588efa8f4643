package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking-api/internal/domain"
)

// AccountRepository define el contrato de persistencia para cuentas.
// Las búsquedas sin resultado devuelven pgx.ErrNoRows.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByMobile(ctx context.Context, mobile string) (domain.Account, error)
	GetByVerificationHash(ctx context.Context, hash string) (domain.Account, error)
	GetByResetHash(ctx context.Context, hash string) (domain.Account, error)
	GetByRefreshHash(ctx context.Context, hash string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, id string) error
	// UpdateIf aplica changes solo si el registro todavía cumple cond.
	// Sin coincidencia devuelve pgx.ErrNoRows y no modifica nada.
	UpdateIf(ctx context.Context, cond Condition, changes Changes) (domain.Account, error)
}

var (
	ErrDuplicate        = errors.New("duplicate account")
	ErrInvalidCondition = errors.New("invalid update condition")
	ErrNoChanges        = errors.New("no changes to apply")
)

// DuplicateError identifica el campo único que provocó el conflicto.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return "duplicate account " + e.Field
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// TokenField selecciona la columna de token comparada por una Condition.
type TokenField string

const (
	FieldNone         TokenField = ""
	FieldVerification TokenField = "verification"
	FieldReset        TokenField = "reset"
	FieldRefresh      TokenField = "refresh"
)

type tokenColumns struct {
	hash    string
	expires string
}

var tokenFieldColumns = map[TokenField]tokenColumns{
	FieldVerification: {hash: "email_verification_token_hash", expires: "email_verification_expires_at"},
	FieldReset:        {hash: "password_reset_token_hash", expires: "password_reset_expires_at"},
	FieldRefresh:      {hash: "refresh_token_hash"},
}

// Condition es la precondición de UpdateIf. Field compara el hash
// guardado con Equals; si ValidAt no es cero, la expiración asociada
// debe ser posterior a ValidAt.
type Condition struct {
	ID      string
	Field   TokenField
	Equals  string
	ValidAt time.Time
}

func (c Condition) validate() error {
	if c.ID == "" && c.Field == FieldNone {
		return ErrInvalidCondition
	}
	if c.Field != FieldNone {
		if _, ok := tokenFieldColumns[c.Field]; !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, c.Field)
		}
		// un hash vacío coincidiría con el estado "sin token"
		if c.Equals == "" {
			return fmt.Errorf("%w: empty %s hash", ErrInvalidCondition, c.Field)
		}
	}
	return nil
}

type TokenSlot struct {
	Hash      string
	ExpiresAt time.Time
}

// Changes describe los campos a escribir en un UpdateIf. Los punteros nil
// y los flags en false dejan la columna intacta.
type Changes struct {
	Name    *string
	Mobile  *string
	Address *domain.Address
	Role    *domain.Role

	PasswordHash      *string
	MarkEmailVerified bool

	SetVerification   *TokenSlot
	ClearVerification bool
	SetReset          *TokenSlot
	ClearReset        bool

	RefreshTokenHash  *string
	ClearRefreshToken bool
}

func (c Changes) empty() bool {
	return c.Name == nil && c.Mobile == nil && c.Address == nil && c.Role == nil &&
		c.PasswordHash == nil && !c.MarkEmailVerified &&
		c.SetVerification == nil && !c.ClearVerification &&
		c.SetReset == nil && !c.ClearReset &&
		c.RefreshTokenHash == nil && !c.ClearRefreshToken
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `id, name, email, mobile, address_line1, address_landmark, address_pincode, role,
	password_hash, email_verified,
	email_verification_token_hash, email_verification_expires_at,
	password_reset_token_hash, password_reset_expires_at,
	refresh_token_hash, created_at, updated_at`

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (
			id, name, email, mobile, address_line1, address_landmark, address_pincode, role,
			password_hash, email_verified,
			email_verification_token_hash, email_verification_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.Mobile,
		account.Address.Line1,
		nullString(account.Address.Landmark),
		account.Address.Pincode,
		string(account.Role),
		account.PasswordHash,
		account.EmailVerified,
		nullString(account.EmailVerificationTokenHash),
		account.EmailVerificationExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return r.getOne(ctx, "id", id)
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.getOne(ctx, "email", email)
}

func (r *PgAccountRepository) GetByMobile(ctx context.Context, mobile string) (domain.Account, error) {
	return r.getOne(ctx, "mobile", mobile)
}

func (r *PgAccountRepository) GetByVerificationHash(ctx context.Context, hash string) (domain.Account, error) {
	return r.getOne(ctx, "email_verification_token_hash", hash)
}

func (r *PgAccountRepository) GetByResetHash(ctx context.Context, hash string) (domain.Account, error) {
	return r.getOne(ctx, "password_reset_token_hash", hash)
}

func (r *PgAccountRepository) GetByRefreshHash(ctx context.Context, hash string) (domain.Account, error) {
	return r.getOne(ctx, "refresh_token_hash", hash)
}

// getOne recibe la columna desde código propio, nunca desde la entrada del usuario.
func (r *PgAccountRepository) getOne(ctx context.Context, column, value string) (domain.Account, error) {
	if value == "" {
		return domain.Account{}, pgx.ErrNoRows
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, value))
}

func (r *PgAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *PgAccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgAccountRepository) UpdateIf(ctx context.Context, cond Condition, changes Changes) (domain.Account, error) {
	query, args, err := buildConditionalUpdate(cond, changes, time.Now().UTC())
	if err != nil {
		return domain.Account{}, err
	}
	account, err := scanAccount(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Account{}, mapPgError(err)
	}
	return account, nil
}

// buildConditionalUpdate arma un único UPDATE ... WHERE ... RETURNING para
// que la comparación y la escritura ocurran en la misma sentencia.
func buildConditionalUpdate(cond Condition, changes Changes, now time.Time) (string, []any, error) {
	if err := cond.validate(); err != nil {
		return "", nil, err
	}
	if changes.empty() {
		return "", nil, ErrNoChanges
	}

	var (
		sets  []string
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if changes.Name != nil {
		sets = append(sets, "name = "+arg(*changes.Name))
	}
	if changes.Mobile != nil {
		sets = append(sets, "mobile = "+arg(*changes.Mobile))
	}
	if changes.Address != nil {
		sets = append(sets,
			"address_line1 = "+arg(changes.Address.Line1),
			"address_landmark = "+arg(nullString(changes.Address.Landmark)),
			"address_pincode = "+arg(changes.Address.Pincode),
		)
	}
	if changes.Role != nil {
		sets = append(sets, "role = "+arg(string(*changes.Role)))
	}
	if changes.PasswordHash != nil {
		sets = append(sets, "password_hash = "+arg(*changes.PasswordHash))
	}
	if changes.MarkEmailVerified {
		sets = append(sets, "email_verified = TRUE")
	}
	switch {
	case changes.SetVerification != nil:
		sets = append(sets,
			"email_verification_token_hash = "+arg(changes.SetVerification.Hash),
			"email_verification_expires_at = "+arg(changes.SetVerification.ExpiresAt),
		)
	case changes.ClearVerification:
		sets = append(sets, "email_verification_token_hash = NULL", "email_verification_expires_at = NULL")
	}
	switch {
	case changes.SetReset != nil:
		sets = append(sets,
			"password_reset_token_hash = "+arg(changes.SetReset.Hash),
			"password_reset_expires_at = "+arg(changes.SetReset.ExpiresAt),
		)
	case changes.ClearReset:
		sets = append(sets, "password_reset_token_hash = NULL", "password_reset_expires_at = NULL")
	}
	switch {
	case changes.RefreshTokenHash != nil:
		sets = append(sets, "refresh_token_hash = "+arg(*changes.RefreshTokenHash))
	case changes.ClearRefreshToken:
		sets = append(sets, "refresh_token_hash = NULL")
	}
	sets = append(sets, "updated_at = "+arg(now))

	if cond.ID != "" {
		where = append(where, "id = "+arg(cond.ID))
	}
	if cond.Field != FieldNone {
		cols := tokenFieldColumns[cond.Field]
		where = append(where, cols.hash+" = "+arg(cond.Equals))
		if !cond.ValidAt.IsZero() && cols.expires != "" {
			where = append(where, cols.expires+" > "+arg(cond.ValidAt))
		}
	}

	query := "UPDATE accounts SET " + strings.Join(sets, ", ") +
		" WHERE " + strings.Join(where, " AND ") +
		" RETURNING " + accountColumns
	return query, args, nil
}

// rowScanner cubre pgx.Row y pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a            domain.Account
		role         string
		landmark     *string
		verifyHash   *string
		resetHash    *string
		refreshHash  *string
		verifyExpiry *time.Time
		resetExpiry  *time.Time
	)
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Mobile,
		&a.Address.Line1,
		&landmark,
		&a.Address.Pincode,
		&role,
		&a.PasswordHash,
		&a.EmailVerified,
		&verifyHash,
		&verifyExpiry,
		&resetHash,
		&resetExpiry,
		&refreshHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	a.Role = domain.Role(role)
	a.Address.Landmark = deref(landmark)
	a.EmailVerificationTokenHash = deref(verifyHash)
	a.EmailVerificationExpiresAt = verifyExpiry
	a.PasswordResetTokenHash = deref(resetHash)
	a.PasswordResetExpiresAt = resetExpiry
	a.RefreshTokenHash = deref(refreshHash)
	return a, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := "account"
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			field = "email"
		case strings.Contains(pgErr.ConstraintName, "mobile"):
			field = "mobile"
		}
		return &DuplicateError{Field: field}
	}
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
