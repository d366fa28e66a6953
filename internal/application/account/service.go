// Package account implements Telegram-backed customer authentication and
// email binding against the Saleor customer base.
package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
	jwtinfra "github.com/saleor-apps/openweb3-payment/internal/infrastructure/jwt"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/saleor"
	"github.com/saleor-apps/openweb3-payment/internal/pkg/initdata"
)

const initDataMaxAge = 24 * time.Hour

// SaleorGateway is the subset of the Saleor client the account service uses.
type SaleorGateway interface {
	UserByEmail(ctx context.Context, email string) (*saleor.User, error)
	CustomerByMetadata(ctx context.Context, key, value string) (*saleor.User, error)
	TokenCreate(ctx context.Context, email, password string) (*saleor.TokenPair, error)
	TokenVerify(ctx context.Context, token string) (bool, error)
	AccountRegister(ctx context.Context, input saleor.AccountRegisterInput) error
}

// CodeStore issues and checks short-lived verification codes.
type CodeStore interface {
	IssueCode(email, userID string) (string, error)
	VerifyCode(email, code, userID string) bool
	Remove(email string)
}

// Mailer delivers verification emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// TokenSigner mints and checks the app session token.
type TokenSigner interface {
	Sign(claims jwtinfra.Claims) (string, error)
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// AuthResult carries everything the transport layer needs to set session
// cookies after an authentication attempt.
type AuthResult struct {
	// Anonymous is true when no Saleor customer is bound to the Telegram
	// user yet. The caller clears session cookies in that case.
	Anonymous bool
	// Reused is true when the presented refresh token was still valid and
	// no new Saleor tokens were minted.
	Reused bool

	SessionToken string
	SaleorToken  string
	RefreshToken string
	User         *initdata.User
	StartParam   string
}

type Service interface {
	Authenticate(ctx context.Context, rawInitData, refreshToken string) (*AuthResult, error)
	SendVerificationCode(ctx context.Context, rawInitData, email string) error
	BindEmail(ctx context.Context, rawInitData, platform, email, code string) error
	BindEmailDirect(ctx context.Context, rawInitData, platform, email string) error
}

type service struct {
	saleor     SaleorGateway
	codes      CodeStore
	mailer     Mailer
	signer     TokenSigner
	botToken   string
	passSecret string
	logger     zerolog.Logger
}

func NewService(gateway SaleorGateway, codes CodeStore, mailer Mailer, signer TokenSigner, botToken, passSecret string, logger zerolog.Logger) Service {
	return &service{
		saleor:     gateway,
		codes:      codes,
		mailer:     mailer,
		signer:     signer,
		botToken:   botToken,
		passSecret: passSecret,
		logger:     logger.With().Str("component", "account").Logger(),
	}
}

// telegramUser validates rawInitData and returns the Telegram user it
// carries. All account operations start here.
func (s *service) telegramUser(rawInitData string) (*initdata.InitData, error) {
	if err := initdata.Validate(rawInitData, s.botToken, initDataMaxAge); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, err)
	}
	data, err := initdata.Parse(rawInitData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, err)
	}
	if data.User == nil {
		return nil, fmt.Errorf("%w: init data has no user", domain.ErrUnauthorized)
	}
	return data, nil
}

// derivedPassword is the customer password used for token creation. Accounts
// are registered with the same derivation, so sign-in never involves a
// user-chosen password.
func (s *service) derivedPassword(userID string) string {
	return s.passSecret + userID
}

func (s *service) Authenticate(ctx context.Context, rawInitData, refreshToken string) (*AuthResult, error) {
	data, err := s.telegramUser(rawInitData)
	if err != nil {
		return nil, err
	}
	userID := strconv.FormatInt(data.User.ID, 10)

	customer, err := s.saleor.CustomerByMetadata(ctx, "userId", userID)
	if err != nil {
		return nil, fmt.Errorf("account: customer lookup: %w", err)
	}
	if customer == nil {
		s.logger.Debug().Str("userId", userID).Msg("no bound customer, anonymous session")
		return &AuthResult{Anonymous: true, User: data.User, StartParam: data.StartParam}, nil
	}

	if refreshToken != "" {
		valid, err := s.saleor.TokenVerify(ctx, refreshToken)
		if err != nil {
			s.logger.Warn().Err(err).Msg("refresh token verification failed, minting new tokens")
		} else if valid {
			return &AuthResult{Reused: true, User: data.User, StartParam: data.StartParam}, nil
		}
	}

	pair, err := s.saleor.TokenCreate(ctx, customer.Email, s.derivedPassword(userID))
	if err != nil {
		return nil, fmt.Errorf("account: token create: %w", err)
	}

	sessionToken, err := s.signer.Sign(jwtinfra.Claims{
		ID:         userID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
		PhotoURL:   data.User.PhotoURL,
		StartParam: data.StartParam,
	})
	if err != nil {
		return nil, fmt.Errorf("account: sign session token: %w", err)
	}

	return &AuthResult{
		SessionToken: sessionToken,
		SaleorToken:  pair.Token,
		RefreshToken: pair.RefreshToken,
		User:         data.User,
		StartParam:   data.StartParam,
	}, nil
}

func (s *service) SendVerificationCode(ctx context.Context, rawInitData, email string) error {
	data, err := s.telegramUser(rawInitData)
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrBadRequest)
	}
	userID := strconv.FormatInt(data.User.ID, 10)

	existing, err := s.saleor.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account: user lookup: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: email is already bound", domain.ErrConflict)
	}

	code, err := s.codes.IssueCode(email, userID)
	if err != nil {
		return fmt.Errorf("account: issue code: %w", err)
	}

	body := fmt.Sprintf(
		"<p>Your verification code is <b>%s</b>.</p><p>It will expire in 10 minutes.</p>",
		code,
	)
	if err := s.mailer.SendEmail(email, "Saleor User Verification", body); err != nil {
		return fmt.Errorf("account: send mail: %w", err)
	}
	s.logger.Info().Str("email", email).Msg("verification code sent")
	return nil
}

func (s *service) BindEmail(ctx context.Context, rawInitData, platform, email, code string) error {
	data, err := s.telegramUser(rawInitData)
	if err != nil {
		return err
	}
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and code are required", domain.ErrBadRequest)
	}
	userID := strconv.FormatInt(data.User.ID, 10)

	if !s.codes.VerifyCode(email, code, userID) {
		return fmt.Errorf("%w: invalid verification code", domain.ErrUnauthorized)
	}
	s.codes.Remove(email)

	return s.register(ctx, data, platform, email)
}

// BindEmailDirect registers an account without a verification code. It backs
// the legacy bind endpoint kept for older storefront builds.
func (s *service) BindEmailDirect(ctx context.Context, rawInitData, platform, email string) error {
	data, err := s.telegramUser(rawInitData)
	if err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrBadRequest)
	}
	return s.register(ctx, data, platform, email)
}

func (s *service) register(ctx context.Context, data *initdata.InitData, platform, email string) error {
	userID := strconv.FormatInt(data.User.ID, 10)

	existing, err := s.saleor.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account: user lookup: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: email is already bound", domain.ErrConflict)
	}

	input := saleor.AccountRegisterInput{
		Email:     email,
		FirstName: data.User.FirstName,
		LastName:  data.User.LastName,
		Password:  s.derivedPassword(userID),
		Metadata: []saleor.MetadataInput{
			{Key: "userId", Value: userID},
			{Key: "userName", Value: data.User.Username},
			{Key: "platform", Value: platform},
		},
	}
	if err := s.saleor.AccountRegister(ctx, input); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("account: register: %w", err)
	}
	s.logger.Info().Str("email", email).Str("userId", userID).Msg("email bound to customer account")
	return nil
}
