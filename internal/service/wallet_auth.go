package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"noizlabs/internal/domain"
	"noizlabs/internal/logger"
	"noizlabs/internal/repository"
	"noizlabs/internal/wallet"
)

// registerAttempts bounds retries after a referral code collision.
const registerAttempts = 3

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// ValidUsername reports whether name is 3-32 letters, digits or underscores.
func ValidUsername(name string) bool {
	return usernameRe.MatchString(name)
}

// AuthRequest is one authenticate-wallet call.
type AuthRequest struct {
	WalletAddress string
	Signature     string
	Message       string
	Username      string
	IP            string
	UserAgent     string
}

type AuthResult struct {
	UserID    int64
	IsNewUser bool
	Profile   *domain.Profile
	Link      *LoginLink
}

// AuthService verifies wallet signatures and opens sessions.
type AuthService struct {
	Deps
	sessions *Sessions
	audit    *AuditService
}

func NewAuthService(d Deps, sessions *Sessions) *AuthService {
	return &AuthService{Deps: d, sessions: sessions, audit: NewAuditService(d.Audit)}
}

// Authenticate checks the signed challenge, finds or creates the profile
// and mints a login token. A new wallet from an IP that already registered
// a different wallet is refused and nothing is written.
func (s *AuthService) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	req.Username = strings.TrimSpace(req.Username)
	if req.WalletAddress == "" || req.Signature == "" || req.Message == "" {
		return nil, ErrMissingFields
	}
	if !wallet.ValidAddress(req.WalletAddress) {
		return nil, ErrInvalidWallet
	}
	if req.Username != "" && !ValidUsername(req.Username) {
		return nil, ErrInvalidUsername
	}
	if _, err := wallet.ParseChallenge(req.Message, req.WalletAddress, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChallenge, err)
	}
	if !wallet.Verify(req.WalletAddress, req.Signature, req.Message) {
		return nil, ErrInvalidSignature
	}

	log := logger.WithContext(ctx).With("wallet", req.WalletAddress)

	var (
		res AuthResult
		err error
	)
	for attempt := 1; attempt <= registerAttempts; attempt++ {
		err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.loginOrRegister(ctx, req, &res)
		})
		if !repository.ConflictOn(err, repository.ConstraintProfileCode) {
			break
		}
		log.Warn("referral code collision, retrying", "attempt", attempt)
	}
	if err != nil {
		if errors.Is(err, ErrIPAlreadyRegistered) {
			log.Warn("sybil check rejected new wallet", "ip", req.IP)
			s.audit.LogWithRequest(ctx, 0, domain.AuditActionSybilRejected, domain.AuditCategoryAuth,
				req.IP, req.UserAgent, map[string]interface{}{"wallet": req.WalletAddress})
		}
		return nil, err
	}

	link, err := s.sessions.NewLoginLink(ctx, res.Profile)
	if err != nil {
		return nil, err
	}
	res.Link = link

	log.Info("wallet authenticated", "user_id", res.UserID, "new_user", res.IsNewUser)
	return &res, nil
}

// loginOrRegister fills res for an existing wallet, or creates its profile.
// A concurrent first login of the same wallet resolves to a login.
func (s *AuthService) loginOrRegister(ctx context.Context, req AuthRequest, res *AuthResult) error {
	p, err := s.Profiles.GetByWallet(ctx, req.WalletAddress)
	if err == nil {
		s.login(ctx, req, p, res)
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	if req.IP != "" {
		owner, err := s.Profiles.GetBySignupIP(ctx, req.IP)
		switch {
		case err == nil && owner.WalletAddress != req.WalletAddress:
			return ErrIPAlreadyRegistered
		case err != nil && !isNotFound(err):
			return err
		}
	}

	p = &domain.Profile{
		WalletAddress: req.WalletAddress,
		Username:      req.Username,
		ReferralCode:  repository.GenerateReferralCode(),
		Timezone:      "UTC",
		SignupIP:      req.IP,
	}
	if p.Username == "" {
		p.Username = defaultUsername(req.WalletAddress)
	}
	if err := s.Profiles.Create(ctx, p); err != nil {
		switch {
		case repository.ConflictOn(err, repository.ConstraintProfileWallet):
			existing, err := s.Profiles.GetByWallet(ctx, req.WalletAddress)
			if err != nil {
				return err
			}
			s.login(ctx, req, existing, res)
			return nil
		case repository.ConflictOn(err, repository.ConstraintProfileUsername):
			return ErrUsernameTaken
		}
		return err
	}

	*res = AuthResult{UserID: p.ID, IsNewUser: true, Profile: p}
	s.audit.LogWithRequest(ctx, p.ID, domain.AuditActionRegister, domain.AuditCategoryAuth,
		req.IP, req.UserAgent, map[string]interface{}{"wallet": p.WalletAddress, "username": p.Username})
	return nil
}

func (s *AuthService) login(ctx context.Context, req AuthRequest, p *domain.Profile, res *AuthResult) {
	*res = AuthResult{UserID: p.ID, Profile: p}
	s.audit.LogWithRequest(ctx, p.ID, domain.AuditActionLogin, domain.AuditCategoryAuth,
		req.IP, req.UserAgent, map[string]interface{}{"wallet": p.WalletAddress})
}

// ExchangeLoginToken turns a login token into an access token.
func (s *AuthService) ExchangeLoginToken(ctx context.Context, token string) (*Session, error) {
	sess, err := s.sessions.Exchange(ctx, token)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, sess.UserID, domain.AuditActionSessionIssued, domain.AuditCategoryAuth, nil)
	return sess, nil
}

func defaultUsername(address string) string {
	n := 12
	if len(address) < n {
		n = len(address)
	}
	return "noiz_" + address[:n]
}
