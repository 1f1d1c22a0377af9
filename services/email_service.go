package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/Dosada05/game-booking-system/config"
)

// EmailService отвечает за отправку транзакционных писем игрокам.
type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		InsecureSkipVerify: true,
		ServerName:         s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("ошибка TLS соединения: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("ошибка соединения SMTP: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("ошибка команды STARTTLS: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("ошибка аутентификации SMTP: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("ошибка MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("ошибка RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("ошибка команды DATA: %w", err)
	}

	_, err = w.Write(msg)
	if err != nil {
		return fmt.Errorf("ошибка записи сообщения: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("ошибка закрытия DATA: %w", err)
	}

	return nil
}

var welcomeEmailTemplate = template.Must(template.New("welcome").Parse(`
<html><body>
<h2>Добро пожаловать, {{.FirstName}}!</h2>
<p>Ваш аккаунт зарегистрирован. Создавайте игры, присоединяйтесь к другим
игрокам и бронируйте корты прямо из приложения.</p>
</body></html>`))

var requestAcceptedTemplate = template.Must(template.New("accepted").Parse(`
<html><body>
<h2>Заявка принята!</h2>
<p>Организатор принял вашу заявку на игру <b>{{.Sport}}</b>.</p>
<p>Когда: {{.Date}}, {{.Time}}.</p>
<p>Увидимся на площадке!</p>
</body></html>`))

func renderEmailBody(t *template.Template, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("ошибка выполнения шаблона %s: %w", t.Name(), err)
	}
	return body.String(), nil
}

func (s *EmailService) SendWelcomeEmail(userEmail string, firstName string) error {
	subject := "Добро пожаловать в Game Booking!"
	templateData := struct {
		FirstName string
	}{
		FirstName: firstName,
	}

	htmlBody, err := renderEmailBody(welcomeEmailTemplate, templateData)
	if err != nil {
		return fmt.Errorf("ошибка генерации тела приветственного письма: %w", err)
	}

	return s.SendEmail([]string{userEmail}, subject, htmlBody)
}

// SendRequestAcceptedEmail уведомляет игрока о том, что его заявка
// на участие в игре была принята организатором.
func (s *EmailService) SendRequestAcceptedEmail(to string, sport string, dateLabel string, timeLabel string) error {
	subject := fmt.Sprintf("Ваша заявка на игру %s принята", sport)
	templateData := struct {
		Sport string
		Date  string
		Time  string
	}{
		Sport: sport,
		Date:  dateLabel,
		Time:  timeLabel,
	}

	htmlBody, err := renderEmailBody(requestAcceptedTemplate, templateData)
	if err != nil {
		return fmt.Errorf("ошибка генерации тела письма о принятии заявки: %w", err)
	}

	return s.SendEmail([]string{to}, subject, htmlBody)
}
