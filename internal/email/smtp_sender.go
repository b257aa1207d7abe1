package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPConfig son los datos de conexion al servidor de correo.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// UseTLS abre la conexion con TLS implicito (puerto 465). Si es false se
	// usa SendMail, que negocia STARTTLS cuando el servidor lo ofrece.
	UseTLS bool
}

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	cfg  SMTPConfig
	addr string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}, nil
}

func (s *SMTPSender) SendAssessmentCompleted(ctx context.Context, toEmail string, m AssessmentCompletedMessage) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return errors.New("to email is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.cfg.From, s.cfg.FromName, toEmail, completedSubject(m), completedBody(m))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if !s.cfg.UseTLS {
		return smtp.SendMail(s.addr, auth, s.cfg.From, []string{toEmail}, []byte(msg))
	}
	return s.sendImplicitTLS(ctx, auth, toEmail, msg)
}

func (s *SMTPSender) sendImplicitTLS(ctx context.Context, auth smtp.Auth, to, msg string) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func completedSubject(m AssessmentCompletedMessage) string {
	return fmt.Sprintf("نتیجه ارزیابی %s شما آماده است", m.AssessmentType)
}

func completedBody(m AssessmentCompletedMessage) string {
	var sb strings.Builder
	if name := strings.TrimSpace(m.FullName); name != "" {
		fmt.Fprintf(&sb, "%s عزیز،\n\n", name)
	} else {
		sb.WriteString("سلام،\n\n")
	}
	fmt.Fprintf(&sb, "ارزیابی %s شما به پایان رسید.\n", m.AssessmentType)
	fmt.Fprintf(&sb, "امتیاز: %d/100\n", m.Score)
	if summary := strings.TrimSpace(m.Summary); summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", summary)
	}
	fmt.Fprintf(&sb, "\nشناسه ارزیابی: %s\n", m.AssessmentID)
	return sb.String()
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if name := strings.TrimSpace(fromName); name != "" {
		fromHeader = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), from)
	}

	headers := []string{
		"From: " + fromHeader,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"Content-Transfer-Encoding: 8bit",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
