package notify

import (
	"crypto/tls"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("not sending email, no recipients defined")
var ErrMailerClosed = errors.New("mailer is not running")

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	// Whether to skip TLS verify.
	NoVerify bool
	// From address
	From string
	// Close connection to SMTP server after idle timeout has elapsed
	IdleTimeout time.Duration
}

// Mailer sends mail through a single background goroutine that keeps the
// SMTP connection open between messages and closes it after IdleTimeout.
type Mailer struct {
	mu     sync.Mutex
	c      EmailConfig
	mail   chan *gomail.Message
	wg     sync.WaitGroup
	opened bool
	logger *zap.Logger
}

func NewMailer(c EmailConfig, logger *zap.Logger) *Mailer {
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Second
	}
	return &Mailer{c: c, logger: logger}
}

func (m *Mailer) Enabled() bool {
	return m.c.Enabled
}

func (m *Mailer) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opened || !m.c.Enabled {
		return nil
	}
	m.opened = true

	m.mail = make(chan *gomail.Message)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runMailer()
	}()

	return nil
}

func (m *Mailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return nil
	}
	m.opened = false

	close(m.mail)
	m.wg.Wait()

	return nil
}

func (m *Mailer) dialer() *gomail.Dialer {
	var d *gomail.Dialer
	if m.c.Username == "" {
		d = &gomail.Dialer{Host: m.c.Host, Port: m.c.Port}
	} else {
		d = gomail.NewPlainDialer(m.c.Host, m.c.Port, m.c.Username, m.c.Password)
	}
	if m.c.NoVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return d
}

func (m *Mailer) runMailer() {
	d := m.dialer()

	var conn gomail.SendCloser
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	var err error
	open := false
	for {
		timer := time.NewTimer(m.c.IdleTimeout)
		select {
		case msg, ok := <-m.mail:
			if !ok {
				timer.Stop()
				return
			}
			if !open {
				if conn, err = d.Dial(); err != nil {
					m.logger.Error("error connecting to SMTP server", zap.Error(err))
					break
				}
				open = true
			}
			if err := gomail.Send(conn, msg); err != nil {
				m.logger.Error("error sending email", zap.Error(err))
			}
		case <-timer.C:
			if open {
				if err := conn.Close(); err != nil {
					m.logger.Error("error closing connection to SMTP server", zap.Error(err))
				}
				open = false
			}
		}
		timer.Stop()
	}
}

func (m *Mailer) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	m.mu.Lock()
	opened := m.opened
	m.mu.Unlock()
	if !opened {
		return ErrMailerClosed
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.c.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	m.mail <- msg
	return nil
}
