// Package bot routes inbound transport events to the core services and turns
// their results into notification requests. It owns no state of its own.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/observability"
	"github.com/noah-isme/darsbot-api/internal/service"
	"github.com/noah-isme/darsbot-api/pkg/bus"
)

// Dispatcher implements bus.EventHandler over the core services.
type Dispatcher struct {
	intake   service.IntakeService
	review   service.ReviewService
	reports  service.ReportService
	scores   service.ScoreService
	roster   service.RosterService
	notifier service.Notifier
	logger   zerolog.Logger
}

// New constructs the dispatcher.
func New(intake service.IntakeService, review service.ReviewService, reports service.ReportService, scores service.ScoreService, roster service.RosterService, notifier service.Notifier, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		intake:   intake,
		review:   review,
		reports:  reports,
		scores:   scores,
		roster:   roster,
		notifier: notifier,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// HandleSubmission feeds an inbound document through the intake pipeline.
func (d *Dispatcher) HandleSubmission(ctx context.Context, event bus.SubmissionEvent) {
	// Documents are only collected from the group chat, matching the channel
	// the cohort actually submits in.
	if event.ChatType != "group" && event.ChatType != "supergroup" {
		d.count("submission", "skipped")
		return
	}

	result, err := d.intake.Submit(ctx, dto.SubmitInput{
		UserID:     event.UserID,
		FullName:   event.FullName,
		Username:   event.Username,
		Caption:    event.Caption,
		Filename:   event.Filename,
		FileRef:    event.FileRef,
		ReplyToBot: event.ReplyToBot,
	})
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", event.UserID).Msg("submission intake failed")
		d.count("submission", "error")
		return
	}

	d.count("submission", result.Outcome)

	switch result.Outcome {
	case dto.OutcomeRejected:
		d.notify(ctx, event.UserID, "Lesson number not found. Add it to the caption or the filename.")
	case dto.OutcomeResubmitted:
		d.notify(ctx, event.UserID, fmt.Sprintf("Lesson %d resubmitted, pending review.", result.LessonNumber))
	case dto.OutcomeCreatedFirst:
		d.notify(ctx, event.UserID, fmt.Sprintf("Lesson %d received, first submission! +%d points.", result.LessonNumber, result.PointsAwarded))
	case dto.OutcomeCreated:
		d.notify(ctx, event.UserID, fmt.Sprintf("Lesson %d received, pending review. +%d point.", result.LessonNumber, result.PointsAwarded))
	}
}

// HandleCommand routes a slash command.
func (d *Dispatcher) HandleCommand(ctx context.Context, event bus.CommandEvent) {
	if err := d.roster.RegisterUser(ctx, event.Sender, event.FullName, event.Username); err != nil {
		d.logger.Warn().Err(err).Int64("user_id", event.Sender).Msg("failed to register command sender")
	}

	name := strings.ToLower(strings.TrimPrefix(event.Name, "/"))
	result := "ok"

	switch name {
	case "start", "help":
		d.commandHelp(ctx, event)
	case "myid":
		d.notify(ctx, event.Sender, fmt.Sprintf("Your ID: %d", event.Sender))
	case "my":
		d.commandMyResults(ctx, event)
	case "top":
		d.commandLeaderboard(ctx, event, dto.WindowAll)
	case "topweek":
		d.commandLeaderboard(ctx, event, dto.WindowWeek)
	case "topmonth":
		d.commandLeaderboard(ctx, event, dto.WindowMonth)
	case "check":
		d.commandCheck(ctx, event)
	case "notdone":
		d.commandNotDone(ctx, event)
	case "addadmin":
		d.commandAddAdmin(ctx, event)
	case "addpoints":
		d.commandAdjustPoints(ctx, event, 1)
	case "removepoints":
		d.commandAdjustPoints(ctx, event, -1)
	case "setpoints":
		d.commandSetPoints(ctx, event)
	case "cancel":
		d.review.CancelFeedback(event.Sender, event.ChatID)
		d.notify(ctx, event.Sender, "Cancelled.")
	default:
		result = "unknown"
	}

	d.count("command", result)
}

// HandleButton routes a review action button press.
func (d *Dispatcher) HandleButton(ctx context.Context, event bus.ButtonEvent) {
	var err error

	switch event.Action {
	case dto.ReviewActionInspect:
		_, err = d.review.Inspect(ctx, event.TargetID, event.Sender)
	case dto.ReviewActionApprove:
		var approved dto.SubmissionResponse
		approved, err = d.review.Approve(ctx, event.TargetID, event.Sender)
		if err == nil {
			d.notify(ctx, event.Sender, fmt.Sprintf("%s - approved.", approved.FullName))
		}
	case dto.ReviewActionRequestRevision:
		var pending dto.SubmissionResponse
		pending, err = d.review.RequestRevision(ctx, event.TargetID, event.Sender, event.ChatID)
		if err == nil {
			d.notify(ctx, event.Sender, fmt.Sprintf("%s - lesson %d. Send the revision comment (/cancel to abort).", pending.FullName, pending.LessonNumber))
		}
	default:
		d.count("button", "unknown")
		return
	}

	if err != nil {
		d.replyError(ctx, event.Sender, err)
		d.count("button", "error")
		return
	}

	d.count("button", event.Action)
}

// HandleText resolves a plain text message against an open feedback session.
func (d *Dispatcher) HandleText(ctx context.Context, event bus.TextEvent) {
	if strings.HasPrefix(event.Text, "/") {
		return
	}

	_, err := d.review.SubmitFeedback(ctx, event.Sender, event.ChatID, event.Text)
	switch {
	case errors.Is(err, service.ErrNoFeedbackSession):
		// Not feedback, just chat traffic.
		d.count("text", "ignored")
	case errors.Is(err, service.ErrEmptyFeedback):
		d.notify(ctx, event.Sender, "The comment was empty, please send it again.")
		d.count("text", "rejected")
	case err != nil:
		d.replyError(ctx, event.Sender, err)
		d.count("text", "error")
	default:
		d.notify(ctx, event.Sender, "Revision comment sent.")
		d.count("text", "feedback")
	}
}

func (d *Dispatcher) commandHelp(ctx context.Context, event bus.CommandEvent) {
	admin, err := d.roster.IsAdmin(ctx, event.Sender)
	if err != nil {
		d.logger.Warn().Err(err).Msg("role lookup failed")
	}

	lines := []string{
		"Commands:",
		"/my - my results",
		"/top - leaderboard",
		"/topweek - weekly leaderboard",
		"/topmonth - monthly leaderboard",
		"/myid - show my id",
	}
	if admin {
		lines = append(lines,
			"/check <lesson> - review submissions",
			"/notdone <lesson> - who has not submitted",
			"/addadmin <id> - grant admin",
		)
	}
	if d.roster.IsSuperAdmin(event.Sender) {
		lines = append(lines,
			"/addpoints <id> <points>",
			"/removepoints <id> <points>",
			"/setpoints <id> <points>",
		)
	}

	d.notify(ctx, event.Sender, strings.Join(lines, "\n"))
}

func (d *Dispatcher) commandMyResults(ctx context.Context, event bus.CommandEvent) {
	history, err := d.reports.MyHistory(ctx, event.Sender)
	if err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	if len(history.Submissions) == 0 {
		d.notify(ctx, event.Sender, "No homework submitted yet.")
		return
	}

	lines := []string{fmt.Sprintf("Total points: %d", history.Total)}
	for _, submission := range history.Submissions {
		lines = append(lines, fmt.Sprintf("lesson %d - %s", submission.LessonNumber, submission.Status))
	}
	d.notify(ctx, event.Sender, strings.Join(lines, "\n"))
}

func (d *Dispatcher) commandLeaderboard(ctx context.Context, event bus.CommandEvent, window string) {
	entries, err := d.scores.LeaderboardForWindow(ctx, window, 10)
	if err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	if len(entries) == 0 {
		d.notify(ctx, event.Sender, "No points recorded yet.")
		return
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d. %s - %d", entry.Rank, entry.FullName, entry.Points))
	}
	d.notify(ctx, event.Sender, strings.Join(lines, "\n"))
}

func (d *Dispatcher) commandCheck(ctx context.Context, event bus.CommandEvent) {
	number, ok := d.lessonArg(ctx, event, "/check <lesson>")
	if !ok {
		return
	}

	items, err := d.review.ListForLesson(ctx, number, event.Sender)
	if err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	if len(items) == 0 {
		d.notify(ctx, event.Sender, fmt.Sprintf("No submissions for lesson %d.", number))
		return
	}

	// One message per submission so the transport can attach the action
	// controls to each.
	for idx, item := range items {
		d.notify(ctx, event.Sender, fmt.Sprintf("%d) %s [%s] #%d %s | actions: %s",
			idx+1,
			item.Submission.FullName,
			item.Submission.Status,
			item.Submission.ID,
			item.Submission.Filename,
			strings.Join(item.Actions, "/"),
		))
	}
}

func (d *Dispatcher) commandNotDone(ctx context.Context, event bus.CommandEvent) {
	number, ok := d.lessonArg(ctx, event, "/notdone <lesson>")
	if !ok {
		return
	}

	if err := d.roster.Authorize(ctx, event.Sender); err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	missing, err := d.reports.NonSubmitters(ctx, number)
	if err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	if len(missing) == 0 {
		d.notify(ctx, event.Sender, fmt.Sprintf("Everyone submitted lesson %d.", number))
		return
	}

	lines := []string{fmt.Sprintf("Missing lesson %d:", number)}
	for _, row := range missing {
		lines = append(lines, "- "+row.FullName)
	}
	d.notify(ctx, event.Sender, strings.Join(lines, "\n"))
}

func (d *Dispatcher) commandAddAdmin(ctx context.Context, event bus.CommandEvent) {
	if len(event.Args) < 1 {
		d.notify(ctx, event.Sender, "Usage: /addadmin <user_id>")
		return
	}

	newAdminID, err := strconv.ParseInt(event.Args[0], 10, 64)
	if err != nil {
		d.notify(ctx, event.Sender, "Invalid user id.")
		return
	}

	if err := d.roster.GrantAdmin(ctx, newAdminID, event.Sender); err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	d.notify(ctx, event.Sender, fmt.Sprintf("Admin granted: %d", newAdminID))
}

func (d *Dispatcher) commandAdjustPoints(ctx context.Context, event bus.CommandEvent, sign int) {
	if err := d.roster.AuthorizeSuper(event.Sender); err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	targetID, points, ok := d.pointsArgs(ctx, event)
	if !ok {
		return
	}

	target, err := d.roster.GetUser(ctx, targetID)
	if err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	delta := sign * points
	if err := d.scores.Award(ctx, targetID, delta, "manual adjustment"); err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	d.notify(ctx, event.Sender, fmt.Sprintf("%s: %+d points.", target.FullName, delta))
	d.notify(ctx, targetID, fmt.Sprintf("Your score changed by %+d points.", delta))
}

func (d *Dispatcher) commandSetPoints(ctx context.Context, event bus.CommandEvent) {
	if err := d.roster.AuthorizeSuper(event.Sender); err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	targetID, points, ok := d.pointsArgs(ctx, event)
	if !ok {
		return
	}

	target, err := d.roster.GetUser(ctx, targetID)
	if err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	previous, err := d.scores.SetTotal(ctx, targetID, points, fmt.Sprintf("total set to %d", points))
	if err != nil {
		d.replyError(ctx, event.Sender, err)
		return
	}

	d.notify(ctx, event.Sender, fmt.Sprintf("%s: %d → %d points.", target.FullName, previous, points))
	d.notify(ctx, targetID, fmt.Sprintf("Your score was set to %d points.", points))
}

func (d *Dispatcher) lessonArg(ctx context.Context, event bus.CommandEvent, usage string) (int, bool) {
	if len(event.Args) < 1 {
		d.notify(ctx, event.Sender, "Usage: "+usage)
		return 0, false
	}

	number, err := strconv.Atoi(event.Args[0])
	if err != nil || number <= 0 {
		d.notify(ctx, event.Sender, "Lesson number must be a positive integer.")
		return 0, false
	}

	return number, true
}

func (d *Dispatcher) pointsArgs(ctx context.Context, event bus.CommandEvent) (int64, int, bool) {
	if len(event.Args) < 2 {
		d.notify(ctx, event.Sender, "Usage: "+strings.ToLower(event.Name)+" <user_id> <points>")
		return 0, 0, false
	}

	targetID, err := strconv.ParseInt(event.Args[0], 10, 64)
	if err != nil {
		d.notify(ctx, event.Sender, "Invalid user id.")
		return 0, 0, false
	}

	points, err := strconv.Atoi(event.Args[1])
	if err != nil {
		d.notify(ctx, event.Sender, "Invalid point value.")
		return 0, 0, false
	}

	return targetID, points, true
}

func (d *Dispatcher) replyError(ctx context.Context, recipient int64, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		d.notify(ctx, recipient, "This command is for admins only.")
	case errors.Is(err, service.ErrUserNotFound):
		d.notify(ctx, recipient, "User not found.")
	case errors.Is(err, service.ErrReviewSubmissionNotFound):
		d.notify(ctx, recipient, "Submission not found.")
	default:
		d.logger.Error().Err(err).Msg("event handling failed")
		d.notify(ctx, recipient, "Something went wrong, try again.")
	}
}

func (d *Dispatcher) notify(ctx context.Context, recipient int64, text string) {
	if err := d.notifier.Notify(ctx, recipient, text); err != nil {
		observability.NotifyFailures().WithLabelValues("notify").Inc()
		d.logger.Warn().Err(err).Int64("recipient", recipient).Msg("failed to publish notification request")
	}
}

func (d *Dispatcher) count(kind, result string) {
	observability.EventsProcessed().WithLabelValues(kind, result).Inc()
}
