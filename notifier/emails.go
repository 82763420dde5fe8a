package notifier

import (
	"fmt"
	"os"

	"github.com/estateplan/apiv1/utils"
)

func VerificationCodeEmail(to, name, code string) Message {
	return Message{
		To:      to,
		Subject: "Your verification code",
		Text: fmt.Sprintf(
			"Hi %s,\n\nYour verification code is %s. It expires in 10 minutes.\n\nIf you did not try to log in, reset your password.",
			name, code),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p><p>If you did not try to log in, reset your password.</p>",
			name, code),
	}
}

func ResetLinkEmail(to, name, token string) Message {
	link := fmt.Sprintf("%s?token=%s", os.Getenv(utils.RESET_LINK_BASE_URL), token)
	return Message{
		To:      to,
		Subject: "Reset your password",
		Text: fmt.Sprintf(
			"Hi %s,\n\nUse the link below to reset your password. It expires in 1 hour and can only be used once.\n\n%s\n\nIf you did not request this, you can ignore this email.",
			name, link),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p><a href=%q>Reset your password</a>. The link expires in 1 hour and can only be used once.</p><p>If you did not request this, you can ignore this email.</p>",
			name, link),
	}
}

func LockoutNoticeEmail(to, name string) Message {
	return Message{
		To:      to,
		Subject: "Your account has been locked",
		Text: fmt.Sprintf(
			"Hi %s,\n\nYour account was locked for 30 minutes after 5 failed login attempts. You can wait it out, or reset your password to unlock it right away.",
			name),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your account was locked for 30 minutes after 5 failed login attempts. You can wait it out, or reset your password to unlock it right away.</p>",
			name),
	}
}
