package schedule

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/LAVINDI111/acnsms/core/user"
)

const rescheduleEmailBody = `LECTURE RESCHEDULED

Module: %s
Lecturer: %s

OLD SCHEDULE:
Date: %s
Time: %s
Room: %s

NEW SCHEDULE:
Date: %s
Time: %s
Room: %s

Please update your schedule accordingly.
`

// composeMessages builds the two channel bodies once per reschedule event,
// not per recipient.
func (svc *Service) composeMessages(
	sched Schedule,
	mod Module,
	lecturer user.User,
	oldDate time.Time,
	oldClassroom string,
	oldStart time.Time,
) (emailBody, smsBody string) {
	emailBody = fmt.Sprintf(
		rescheduleEmailBody,
		mod.Title(),
		lecturer.Username,
		oldDate.Format(dateFormat),
		oldStart.Format(timeFormat),
		oldClassroom,
		sched.Date.Format(dateFormat),
		sched.StartTime.Format(timeFormat),
		sched.Classroom,
	)
	smsBody = fmt.Sprintf(
		"%s: %s rescheduled to %s %s in %s. Lecturer: %s",
		svc.appName,
		mod.Code,
		sched.Date.Format(dateFormat),
		sched.StartTime.Format(timeFormat),
		sched.Classroom,
		lecturer.Username,
	)
	return emailBody, smsBody
}

// recipients returns enrolled students then admins. The union is NOT
// deduplicated: a user who is both enrolled and an admin gets two
// notifications per channel.
func (svc *Service) recipients(ctx context.Context, moduleID int) ([]user.User, error) {
	students, err := svc.repo.QueryEnrolledStudents(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	admins, err := svc.usrRepo.QueryUsersByRole(ctx, user.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return append(students, admins...), nil
}

// notifyReschedule fans the reschedule event out to every recipient on every
// channel they have an address for. Each attempt is independent: a failed
// send is recorded and the loop moves on. Audit rows are appended in one
// batch at the end.
func (svc *Service) notifyReschedule(
	ctx context.Context,
	sched Schedule,
	mod Module,
	lecturer user.User,
	oldDate time.Time,
	oldClassroom string,
	oldStart time.Time,
) FanOutSummary {
	var summary FanOutSummary

	recipients, err := svc.recipients(ctx, mod.ID)
	if err != nil {
		svc.logger.Error("loading notification recipients", err)
		summary.Failures = append(summary.Failures, SendFailure{Reason: "loading recipients: " + err.Error()})
		return summary
	}

	emailBody, smsBody := svc.composeMessages(sched, mod, lecturer, oldDate, oldClassroom, oldStart)
	subject := "Lecture Rescheduled: " + mod.Code

	notifs := make([]Notification, 0, 2*len(recipients))
	for _, rcpt := range recipients {
		// a recipient with neither address is skipped silently for both channels
		if rcpt.Email != "" {
			err := svc.sendBounded(ctx, func(sendCtx context.Context) error {
				return svc.emailSvc.SendEmail(sendCtx, mail.Address{Name: rcpt.Username, Address: rcpt.Email}, subject, emailBody)
			})
			notifs = append(notifs, svc.record(sched.ID, rcpt, ChannelEmail, emailBody, err, &summary))
		}
		if rcpt.Phone != "" {
			err := svc.sendBounded(ctx, func(sendCtx context.Context) error {
				return svc.smsSvc.SendSMS(sendCtx, rcpt.Phone, smsBody)
			})
			notifs = append(notifs, svc.record(sched.ID, rcpt, ChannelSMS, smsBody, err, &summary))
		}
	}

	if len(notifs) > 0 {
		if err := svc.repo.AppendNotifications(ctx, notifs); err != nil {
			// audit-only rows; the sends already happened
			svc.logger.Error("persisting notification audit rows", err)
		}
	}
	return summary
}

func (svc *Service) sendBounded(ctx context.Context, send func(context.Context) error) error {
	sendCtx, cancel := context.WithTimeout(ctx, svc.sendTimeout)
	defer cancel()
	return send(sendCtx)
}

// record builds the audit row for one attempt and updates the summary counts.
func (svc *Service) record(
	scheduleID int,
	rcpt user.User,
	channel Channel,
	body string,
	sendErr error,
	summary *FanOutSummary,
) Notification {
	now := time.Now().UTC()
	notif := Notification{
		ScheduleID: scheduleID,
		UserID:     rcpt.ID,
		Channel:    channel,
		Message:    body,
		CreatedAt:  now,
	}
	if sendErr != nil {
		notif.Status = NotificationFailed
		summary.Failures = append(summary.Failures, SendFailure{UserID: rcpt.ID, Channel: channel, Reason: sendErr.Error()})
		if channel == ChannelEmail {
			summary.EmailFailed++
			svc.logger.Warn(fmt.Sprintf("failed to send email to %s: %v", rcpt.Email, sendErr))
		} else {
			summary.SMSFailed++
			svc.logger.Warn(fmt.Sprintf("failed to send SMS to %s: %v", rcpt.Phone, sendErr))
		}
		return notif
	}
	notif.Status = NotificationSent
	notif.SentAt = &now
	if channel == ChannelEmail {
		summary.EmailSent++
	} else {
		summary.SMSSent++
	}
	return notif
}
