package mail

import "gopkg.in/gomail.v2"

type PortalCredentialsData struct {
	Name         string
	Email        string
	TempPassword string
	LoginURL     string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	dial func(m *gomail.Message) error
}
