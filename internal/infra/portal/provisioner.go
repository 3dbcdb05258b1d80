package portal

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

type userCreator interface {
	CreateUser(ctx context.Context, email, password string, metadata map[string]any) (string, error)
}

type CredentialsMailer interface {
	SendPortalCredentials(to, name, tempPassword, loginURL string) error
}

// Provisioner creates a client portal login and emails the temporary
// password. Failures are reported in the result, never as errors.
type Provisioner struct {
	Users    userCreator
	Mailer   CredentialsMailer
	LoginURL string

	password func() (string, error)
}

func NewProvisioner(users userCreator, mailer CredentialsMailer, loginURL string) *Provisioner {
	return &Provisioner{
		Users:    users,
		Mailer:   mailer,
		LoginURL: loginURL,
		password: TempPassword,
	}
}

func (p *Provisioner) ProvisionClientLogin(ctx context.Context, input usecase.ProvisionLoginInput) usecase.ProvisionLoginResult {
	if input.Email == "" {
		return usecase.ProvisionLoginResult{Error: "client has no email"}
	}
	logger := log.WithField("client_id", input.ClientID)

	password, err := p.password()
	if err != nil {
		return usecase.ProvisionLoginResult{Error: "could not generate password: " + err.Error()}
	}

	userID, err := p.Users.CreateUser(ctx, input.Email, password, map[string]any{
		"client_id": input.ClientID,
		"name":      input.Name,
		"phone":     input.Phone,
		"role":      "client",
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return usecase.ProvisionLoginResult{Error: "a portal login already exists for " + input.Email}
		}
		logger.WithError(err).Warn("portal login not created")
		return usecase.ProvisionLoginResult{Error: err.Error()}
	}
	logger.WithField("auth_user_id", userID).Info("portal login created")

	if p.Mailer == nil {
		return usecase.ProvisionLoginResult{Success: true, Error: "credentials email not sent: mailer not configured"}
	}
	if err := p.Mailer.SendPortalCredentials(input.Email, input.Name, password, p.LoginURL); err != nil {
		logger.WithError(err).Warn("portal credentials email failed")
		return usecase.ProvisionLoginResult{Success: true, Error: "credentials email not sent: " + err.Error()}
	}
	return usecase.ProvisionLoginResult{Success: true}
}

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// TempPassword returns a random 16 character password without look-alike
// characters.
func TempPassword() (string, error) {
	buf := make([]byte, 16)
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
