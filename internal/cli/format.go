package cli

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/lemon/internal/social"
	"github.com/spf13/cobra"
)

const unknownActor = "(unknown)"

func printStatusUpdates(ctx context.Context, rt *Runtime, cmd *cobra.Command, updates []*social.StatusUpdate) error {
	out := cmd.OutOrStdout()
	for _, update := range updates {
		owner, _, err := rt.Service.ResolveUser(ctx, update.Owner)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("#%s by %s", update.ID, emailOf(owner))
		if update.IsReply() {
			line += fmt.Sprintf(" in reply to #%s", update.ReplyFor.ID)
		}
		if update.IsRepost() {
			line += fmt.Sprintf(" reposting #%s", update.RepostOf.ID)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func formatNotification(notification social.Notification) string {
	switch n := notification.(type) {
	case social.FollowedNotification:
		return fmt.Sprintf("%s: %s followed you", n.Kind(), emailOf(n.Follower))
	case social.FavoritedNotification:
		return fmt.Sprintf("%s: %s favorited #%s", n.Kind(), emailOf(n.Favoriter), n.StatusUpdate.ID)
	case social.RepostedNotification:
		return fmt.Sprintf("%s: %s reposted #%s", n.Kind(), emailOf(n.Reposter), n.StatusUpdate.ID)
	case social.RepliedNotification:
		return fmt.Sprintf("%s: %s replied to #%s with #%s", n.Kind(), emailOf(n.Sender), n.StatusUpdate.ID, n.Reply.ID)
	default:
		return string(notification.Kind())
	}
}

func printPreferences(cmd *cobra.Command, preferences social.Preferences) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "all: %s\n", toggleLabel(preferences.NotificationsDisabled))
	for _, kind := range social.Kinds() {
		fmt.Fprintf(out, "%s: %s\n", kind, toggleLabel(preferences.KindDisabled(kind)))
	}
}

func toggleLabel(disabled bool) string {
	if disabled {
		return "off"
	}
	return "on"
}

func emailOf(user *social.User) string {
	if user == nil {
		return unknownActor
	}
	return user.Email
}
