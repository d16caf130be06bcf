// Package smtp provides outbound email for the cloud system. Connection
// settings come from the environment (MAIL_* variables) and are fixed for
// the life of the process.
package smtp

// Settings is the SMTP configuration a MailService sends with.
type Settings struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	Encryption string // "starttls", "ssl", or "none".
}

// Mail represents an email message to be sent.
type Mail struct {
	To      []string
	Subject string
	Body    string
}
