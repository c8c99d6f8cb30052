package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AWSSESEmailService sends password reset emails using AWS SES
type AWSSESEmailService struct {
	sesClient    *ses.Client
	fromAddress  string
	resetURLBase string
	logger       *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, resetURLBase string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:    ses.NewFromConfig(cfg),
		fromAddress:  fromAddress,
		resetURLBase: resetURLBase,
		logger:       logger,
	}, nil
}

// SendPasswordResetEmail sends the reset link to the user
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, toAddress, token string) error {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.resetURLBase, token)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Reset Your Password</h1>
        </div>
        <div class="content">
            <p>We received a request to reset the password for your account.</p>
            <p><a href="%s" class="button">Reset Password</a></p>
            <p>Or copy and paste this link in your browser:<br>
            <code>%s</code></p>
            <div class="warning">
                <strong>⚠️ Security Notice:</strong> This link will expire in 1 hour and can only be used once.
            </div>
            <p><strong>Didn't request this?</strong><br>
            If you didn't ask to reset your password, you can ignore this email. Your password will not be changed.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
            <p>If you have any questions, please contact our support team.</p>
        </div>
    </div>
</body>
</html>
`, resetLink, resetLink)

	textBody := fmt.Sprintf(`Reset Your Password

We received a request to reset the password for your account. Click the link below to choose a new password:

%s

Or copy and paste this link in your browser:
%s

⚠️  Security Notice: This link will expire in 1 hour and can only be used once.

Didn't request this?
If you didn't ask to reset your password, you can ignore this email. Your password will not be changed.

This is an automated message. Please do not reply to this email.
If you have any questions, please contact our support team.
`, resetLink, resetLink)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Reset your password"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send password reset email via SES",
			slog.String("email", toAddress),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("password reset email sent",
		slog.String("email", toAddress),
		slog.String("message_id", *result.MessageId))

	return nil
}
