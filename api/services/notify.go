package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dirsync/scim-provisioner/models"
	"github.com/rs/zerolog/log"
)

// notifyBulkSyncFailures emails the helpdesk when a bulk sync pass leaves
// entities in a failed state. Best effort: notification failures are logged,
// never surfaced to the API caller.
func notifyBulkSyncFailures(ctx context.Context, svc *Service, kind string, result *models.BulkSyncResult) {
	if svc.EmailClient == nil || svc.Config == nil {
		return
	}
	from := svc.Config.AWS.Email.ServiceAccountEmail
	to := svc.Config.AWS.Email.HelpdeskEmail
	if from == "" || to == "" {
		return
	}

	subject := fmt.Sprintf("Directory sync: %d %s failed to provision", result.FailedCount, kind)
	body := fmt.Sprintf(
		"A bulk sync pass finished with failures.\n\nKind: %s\nSynced: %d\nFailed: %d\n\nErrors:\n%s\n",
		kind, result.SyncedCount, result.FailedCount, strings.Join(result.Errors, "\n"))

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	}

	if _, err := svc.EmailClient.SendEmail(ctx, input); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("failed to send bulk sync failure notification")
	}
}
