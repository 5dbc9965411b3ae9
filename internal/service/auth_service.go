package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chartcloud/internal/domain"
	"chartcloud/internal/email"
	"chartcloud/internal/oauth"
	"chartcloud/internal/repository"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateIdentity   = errors.New("identity already registered")
	ErrWrongTokenClass     = errors.New("wrong token class")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAlreadyVerified     = errors.New("already verified")
	ErrCodeNotRequested    = errors.New("verification code not requested")
	ErrCodeExpired         = errors.New("verification code expired")
	ErrCodeInvalid         = errors.New("verification code invalid")
	ErrDeliveryFailed      = errors.New("verification code delivery failed")
	ErrAccountTypeConflict = errors.New("email registered under another account type")
	ErrRateLimited         = errors.New("rate limited")
)

const verificationCodeTTL = 10 * time.Minute

// Identity es la identidad de la petición que la puerta de acceso deriva de
// una credencial verificada.
type Identity struct {
	Username   string
	UserID     string
	Role       string
	TokenClass string
	Token      string
	ExpiresAt  time.Time
}

// TokenPair agrupa las credenciales emitidas en un login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthService coordina signup, login, verificación por código, refresh,
// logout y login federado sobre el directorio de cuentas.
type AuthService struct {
	logger     *zap.Logger
	accounts   repository.AccountRepository
	tokens     *TokenService
	ledger     RevocationLedger
	sender     email.Sender
	limiter    CodeRateLimiter
	hmacSecret string
}

func NewAuthService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	tokens *TokenService,
	ledger RevocationLedger,
	sender email.Sender,
	limiter CodeRateLimiter,
	hmacSecret string,
) *AuthService {
	if limiter == nil {
		limiter = NewCodeRateLimiter(verificationCodeTTL, 3)
	}
	return &AuthService{
		logger:     logger,
		accounts:   accounts,
		tokens:     tokens,
		ledger:     ledger,
		sender:     sender,
		limiter:    limiter,
		hmacSecret: hmacSecret,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup registra una cuenta local (tipo email) en estado no verificado.
// No emite credenciales.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) error {
	username := normalizeIdentifier(input.Username)
	emailAddr := normalizeIdentifier(input.Email)
	password := strings.TrimSpace(input.Password)

	if verr := validateSignup(username, emailAddr, password); verr != nil {
		return verr
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
		Role:         domain.RoleUser,
		AccountType:  domain.AccountTypeEmail,
		Verified:     false,
		CreatedAt:    time.Now().UTC(),
	}

	// La unicidad se resuelve en el insert (índices únicos), no con una
	// lectura previa: dos signups concurrentes no pueden colarse ambos.
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

// Login autentica una cuenta local y emite un par access+refresh.
// La causa exacta del rechazo no se distingue en la respuesta.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Account, TokenPair, error) {
	username = normalizeIdentifier(username)
	password = strings.TrimSpace(password)

	if verr := validateLogin(username, password); verr != nil {
		return domain.Account{}, TokenPair{}, verr
	}

	account, err := s.accounts.GetByUsername(ctx, username, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, TokenPair{}, ErrInvalidCredentials
		}
		return domain.Account{}, TokenPair{}, err
	}
	if account.AccountType != domain.AccountTypeEmail || account.PasswordHash == "" {
		return domain.Account{}, TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return domain.Account{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return domain.Account{}, TokenPair{}, err
	}
	return account, pair, nil
}

// SendVerificationCode genera un código de 6 dígitos, lo envía por correo y,
// solo si el transporte lo aceptó, persiste su hash con expiración de 10
// minutos. Un fallo de entrega no deja estado parcial.
func (s *AuthService) SendVerificationCode(ctx context.Context, ident Identity) error {
	if ident.TokenClass != TokenClassAccess {
		return ErrWrongTokenClass
	}
	if s.limiter != nil && !s.limiter.Allow(ident.Username) {
		return ErrRateLimited
	}

	account, err := s.accounts.GetByUsername(ctx, ident.Username, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if account.Verified {
		return ErrAlreadyVerified
	}

	code, err := generateVerificationCode()
	if err != nil {
		return err
	}

	if s.sender == nil {
		return ErrDeliveryFailed
	}
	if err := s.sender.SendVerificationCode(ctx, account.Email, code); err != nil {
		if s.logger != nil {
			s.logger.Warn("send verification code failed", zap.Error(err), zap.String("username", account.Username))
		}
		return ErrDeliveryFailed
	}

	expiry := time.Now().UTC().Add(verificationCodeTTL)
	return s.accounts.SetVerificationCode(ctx, account.ID, hashCode(code, s.hmacSecret), expiry)
}

// VerifyCode consume el código pendiente. La transición a verificado es de un
// solo sentido y solo procede si el código almacenado sigue siendo el mismo.
func (s *AuthService) VerifyCode(ctx context.Context, ident Identity, code string) error {
	if ident.TokenClass != TokenClassAccess {
		return ErrWrongTokenClass
	}

	account, err := s.accounts.GetByUsername(ctx, ident.Username, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if account.Verified {
		return ErrAlreadyVerified
	}
	if account.VerificationCodeHash == "" || account.VerificationCodeExpiry == nil {
		return ErrCodeNotRequested
	}
	if time.Now().UTC().After(*account.VerificationCodeExpiry) {
		return ErrCodeExpired
	}

	hashed := hashCode(strings.TrimSpace(code), s.hmacSecret)
	if subtle.ConstantTimeCompare([]byte(hashed), []byte(account.VerificationCodeHash)) != 1 {
		return ErrCodeInvalid
	}

	ok, err := s.accounts.MarkVerified(ctx, account.ID, account.VerificationCodeHash)
	if err != nil {
		return err
	}
	if !ok {
		// El código fue sobrescrito entre la lectura y esta escritura.
		return ErrCodeInvalid
	}
	return nil
}

// Refresh emite un nuevo access token a partir de un refresh token no
// revocado. El refresh token no rota.
func (s *AuthService) Refresh(ctx context.Context, ident Identity) (string, error) {
	if ident.TokenClass != TokenClassRefresh {
		return "", ErrWrongTokenClass
	}
	revoked, err := s.ledger.IsRevoked(ctx, ident.Token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrTokenRevoked
	}
	return s.tokens.IssueAccess(ident.Username, ident.UserID, ident.Role)
}

// Logout anota el refresh token exacto en el ledger de revocación. Devuelve
// true si ya estaba anotado; el duplicado se trata como éxito idempotente.
func (s *AuthService) Logout(ctx context.Context, ident Identity) (bool, error) {
	if ident.TokenClass != TokenClassRefresh {
		return false, ErrWrongTokenClass
	}
	expiresAt := ident.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(s.tokens.RefreshTTL())
	}
	recorded, err := s.ledger.Record(ctx, ident.Token, expiresAt)
	if err != nil {
		return false, err
	}
	return !recorded, nil
}

// FederatedLogin canjea el código de autorización del proveedor y reutiliza o
// aprovisiona la cuenta federada correspondiente. Para Google, un email ya
// registrado como cuenta local bloquea el login con ErrAccountTypeConflict.
func (s *AuthService) FederatedLogin(ctx context.Context, provider oauth.Provider, accountType, code string) (domain.Account, TokenPair, error) {
	profile, err := provider.Exchange(ctx, code)
	if err != nil {
		return domain.Account{}, TokenPair{}, fmt.Errorf("federated exchange: %w", err)
	}

	if accountType == domain.AccountTypeGoogle {
		_, err := s.accounts.GetByEmailAndType(ctx, profile.Email, domain.AccountTypeEmail, false)
		if err == nil {
			return domain.Account{}, TokenPair{}, ErrAccountTypeConflict
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, TokenPair{}, err
		}
	}

	account, err := s.accounts.GetByEmailAndType(ctx, profile.Email, accountType, false)
	if err == nil {
		pair, err := s.issuePair(account)
		if err != nil {
			return domain.Account{}, TokenPair{}, err
		}
		return account, pair, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, TokenPair{}, err
	}

	// Las cuentas federadas nacen verificadas y sin password.
	account = domain.Account{
		ID:             uuid.NewString(),
		Username:       normalizeIdentifier(profile.Username),
		Email:          profile.Email,
		Role:           domain.RoleUser,
		AccountType:    accountType,
		Verified:       true,
		ProfilePicture: profile.Picture,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Un callback concurrente pudo ganar la inserción; reutilizar.
			existing, lookupErr := s.accounts.GetByEmailAndType(ctx, profile.Email, accountType, false)
			if lookupErr == nil {
				account = existing
			} else {
				return domain.Account{}, TokenPair{}, ErrDuplicateIdentity
			}
		} else {
			return domain.Account{}, TokenPair{}, err
		}
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return domain.Account{}, TokenPair{}, err
	}
	return account, pair, nil
}

func (s *AuthService) issuePair(account domain.Account) (TokenPair, error) {
	access, err := s.tokens.IssueAccess(account.Username, account.ID, account.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(account.Username, account.ID, account.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// hashCode aplica HMAC-SHA256 en hex sobre la forma string del código. Los
// passwords usan bcrypt; esta asimetría es deliberada.
func hashCode(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// generateVerificationCode produce un código uniforme de 6 dígitos, siempre
// como string con ceros a la izquierda.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeIdentifier(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
