package email

import (
	"fmt"

	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender 封装 SMTP 邮件发送
type Sender struct {
	cfg *config.SMTPConfig
}

func NewSender(cfg *config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Send 发送一封 HTML 邮件
func (s *Sender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		logger.Error("发送邮件失败", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// SendPasswordReset 发送密码重置邮件
func (s *Sender) SendPasswordReset(to, resetURL string) error {
	body := fmt.Sprintf(`
		<p>您好，</p>
		<p>我们收到了您的密码重置请求，请点击下面的链接完成重置（15分钟内有效）：</p>
		<p><a href="%s">%s</a></p>
		<p>如果这不是您本人的操作，请忽略这封邮件。</p>`, resetURL, resetURL)
	return s.Send(to, "VaporShare - 密码重置", body)
}
