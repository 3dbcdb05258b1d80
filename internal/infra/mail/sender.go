package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var credentialsTemplate = template.Must(template.ParseFS(templateFS, "templates/portal_credentials.html"))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	s := &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
	s.dial = func(m *gomail.Message) error {
		return gomail.NewDialer(s.Host, s.Port, s.User, s.Password).DialAndSend(m)
	}
	return s
}

// SendPortalCredentials emails the temporary password of a freshly
// provisioned client login.
func (s *EmailSender) SendPortalCredentials(to, name, tempPassword, loginURL string) error {
	m, err := s.credentialsMessage(to, name, tempPassword, loginURL)
	if err != nil {
		return err
	}
	if s.Host == "" {
		return fmt.Errorf("smtp not configured")
	}
	if err := s.dial(m); err != nil {
		return fmt.Errorf("send smtp: %w", err)
	}
	return nil
}

func (s *EmailSender) credentialsMessage(to, name, tempPassword, loginURL string) (*gomail.Message, error) {
	body, err := renderCredentials(PortalCredentialsData{
		Name:         name,
		Email:        to,
		TempPassword: tempPassword,
		LoginURL:     loginURL,
	})
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your client portal access")
	m.SetBody("text/html", body)
	return m, nil
}

func renderCredentials(data PortalCredentialsData) (string, error) {
	var body bytes.Buffer
	if err := credentialsTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render credentials email: %w", err)
	}
	return body.String(), nil
}
