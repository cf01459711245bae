package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier 负责把验证码投递到目标渠道（邮件、短信等）。
type Notifier interface {
	SendVerificationCode(ctx context.Context, channel, target, code string) error
}

// LogNotifier writes codes to the application log instead of sending them.
// It stands in for a real mail/SMS gateway in development deployments.
type LogNotifier struct{}

// SendVerificationCode logs the code for the operator to relay manually.
func (LogNotifier) SendVerificationCode(_ context.Context, channel, target, code string) error {
	logrus.WithFields(logrus.Fields{
		"channel": channel,
		"target":  target,
		"code":    code,
	}).Info("verification code issued")
	return nil
}
