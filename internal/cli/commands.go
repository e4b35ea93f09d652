package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"github.com/MarcoPoloResearchLab/lemon/internal/social"
	"github.com/spf13/cobra"
)

var (
	errInvalidCredentials  = errors.New("invalid email or password")
	errInvalidSession      = errors.New("invalid session token")
	errSessionsDisabled    = errors.New("session tokens are disabled: set auth.signing_secret")
	errUnknownUser         = errors.New("unknown user")
	errUnknownStatusUpdate = errors.New("unknown status update")
	errResetNotConfirmed   = errors.New("reset deletes every record: pass --yes to confirm")
	errInvalidToggle       = errors.New("expected on or off")
)

type action func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error

func run(factory RuntimeFactory, fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rt, err := factory(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close() }()
		return fn(ctx, rt, cmd, args)
	}
}

type credentials struct {
	email    string
	password string
	session  string
}

func (c *credentials) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "Account email")
	cmd.Flags().StringVar(&c.password, "password", "", "Account password")
	cmd.Flags().StringVar(&c.session, "session", "", "Session token printed by signin")
}

// authenticate resolves the acting user from a session token or from email and password.
func (c *credentials) authenticate(ctx context.Context, rt *Runtime) (*social.User, error) {
	if token := strings.TrimSpace(c.session); token != "" {
		if rt.Sessions == nil {
			return nil, errSessionsDisabled
		}
		subject, err := rt.Sessions.ValidateSessionToken(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidSession, err)
		}
		id, ok := recordstore.ParseID(subject)
		if !ok {
			return nil, errInvalidSession
		}
		user, found, err := rt.Service.FindUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errInvalidSession
		}
		return user, nil
	}

	user, ok, err := rt.Service.SignIn(ctx, c.email, c.password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// NewCommands returns the lemon subcommands. Each invocation obtains its own Runtime from
// factory and closes it when done.
func NewCommands(factory RuntimeFactory) []*cobra.Command {
	return []*cobra.Command{
		newSignUpCommand(factory),
		newSignInCommand(factory),
		newSignOutCommand(factory),
		newPostCommand(factory),
		newReplyCommand(factory),
		newRepostCommand(factory),
		newFavoriteCommand(factory),
		newFavoritesCommand(factory),
		newRelationshipCommand(factory, "follow", "Follow the user with the given email", (*social.Service).Follow),
		newRelationshipCommand(factory, "unfollow", "Stop following the user with the given email", (*social.Service).Unfollow),
		newRelationshipCommand(factory, "block", "Block the user with the given email", (*social.Service).Block),
		newFeedCommand(factory),
		newStatusesCommand(factory),
		newNotificationsCommand(factory),
		newPreferencesCommand(factory),
		newResetCommand(factory),
	}
}

func newSignUpCommand(factory RuntimeFactory) *cobra.Command {
	var email, password, confirmation string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, _ []string) error {
			user, err := rt.Service.SignUp(ctx, email, password, confirmation)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s <%s>\n", user.ID, user.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&confirmation, "password-confirmation", "", "Repeat the account password")
	return cmd
}

func newSignInCommand(factory RuntimeFactory) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Check credentials and print a session token when sessions are enabled",
		Args:  cobra.NoArgs,
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, _ []string) error {
			user, ok, err := rt.Service.SignIn(ctx, email, password)
			if err != nil {
				return err
			}
			if !ok {
				return errInvalidCredentials
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "signed in as %s <%s>\n", user.ID, user.Email)
			if rt.Sessions == nil {
				return nil
			}
			token, expiresAt, err := rt.Sessions.IssueSessionToken(user.ID.String())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "session %s\nexpires %s\n", token, expiresAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newSignOutCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "signout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, _ []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			rt.Service.SignOut(ctx, user)
			fmt.Fprintf(cmd.OutOrStdout(), "signed out %s\n", user.Email)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newPostCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a status update",
		Args:  cobra.NoArgs,
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, _ []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			update := social.NewStatusUpdate()
			if err := rt.Service.Post(ctx, user, update); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted #%s\n", update.ID)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newReplyCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "reply <status-id>",
		Short: "Reply to a status update",
		Args:  cobra.ExactArgs(1),
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			target, err := statusUpdateArg(ctx, rt, args[0])
			if err != nil {
				return err
			}
			reply := social.NewStatusUpdate()
			if err := rt.Service.Reply(ctx, user, target, reply); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replied #%s to #%s\n", reply.ID, target.ID)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newRepostCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "repost <status-id>",
		Short: "Repost a status update",
		Args:  cobra.ExactArgs(1),
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			target, err := statusUpdateArg(ctx, rt, args[0])
			if err != nil {
				return err
			}
			repost, err := rt.Service.Repost(ctx, user, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reposted #%s as #%s\n", target.ID, repost.ID)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newFavoriteCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "favorite <status-id>",
		Short: "Favorite a status update",
		Args:  cobra.ExactArgs(1),
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			target, err := statusUpdateArg(ctx, rt, args[0])
			if err != nil {
				return err
			}
			if err := rt.Service.Favorite(ctx, user, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "favorited #%s\n", target.ID)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newFavoritesCommand(factory RuntimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites <status-id>",
		Short: "List the users that favorited a status update",
		Args:  cobra.ExactArgs(1),
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error {
			target, err := statusUpdateArg(ctx, rt, args[0])
			if err != nil {
				return err
			}
			users, err := rt.Service.FavoritedBy(ctx, target)
			if err != nil {
				return err
			}
			for _, user := range users {
				fmt.Fprintln(cmd.OutOrStdout(), user.Email)
			}
			return nil
		}),
	}
}

type relationshipAction func(s *social.Service, ctx context.Context, actor, target *social.User) error

func newRelationshipCommand(factory RuntimeFactory, name, short string, apply relationshipAction) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   name + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error {
			actor, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			target, err := userArg(ctx, rt, args[0])
			if err != nil {
				return err
			}
			if err := apply(rt.Service, ctx, actor, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: ok\n", name, target.Email)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newFeedCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the status updates of everyone you follow",
		Args:  cobra.NoArgs,
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, _ []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			feed, err := rt.Service.Feed(ctx, user)
			if err != nil {
				return err
			}
			return printStatusUpdates(ctx, rt, cmd, feed)
		}),
	}
	creds.register(cmd)
	return cmd
}

func newStatusesCommand(factory RuntimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "statuses <email>",
		Short: "Show the status updates posted by a user",
		Args:  cobra.ExactArgs(1),
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error {
			user, err := userArg(ctx, rt, args[0])
			if err != nil {
				return err
			}
			updates, err := rt.Service.StatusUpdatesOf(ctx, user)
			if err != nil {
				return err
			}
			return printStatusUpdates(ctx, rt, cmd, updates)
		}),
	}
}

func newNotificationsCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show your notifications",
		Args:  cobra.NoArgs,
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, _ []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			notifications, err := rt.Service.Notifications(ctx, user)
			if err != nil {
				return err
			}
			for _, notification := range notifications {
				fmt.Fprintln(cmd.OutOrStdout(), formatNotification(notification))
			}
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newPreferencesCommand(factory RuntimeFactory) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "prefs [all|followed|favorited|reposted|replied] [on|off]",
		Short: "Show or change notification preferences",
		Args:  cobra.MatchAll(cobra.RangeArgs(0, 2), scopeAndState),
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, args []string) error {
			user, err := creds.authenticate(ctx, rt)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				disabled, err := parseToggle(args[1])
				if err != nil {
					return err
				}
				if strings.EqualFold(args[0], "all") {
					err = rt.Service.SetNotificationsDisabled(ctx, user, disabled)
				} else {
					kind, ok := social.ParseKind(args[0])
					if !ok {
						return fmt.Errorf("%w: %q", social.ErrUnknownNotificationKind, args[0])
					}
					err = rt.Service.SetNotificationKindDisabled(ctx, user, kind, disabled)
				}
				if err != nil {
					return err
				}
			}
			printPreferences(cmd, user.Preferences)
			return nil
		}),
	}
	creds.register(cmd)
	return cmd
}

func newResetCommand(factory RuntimeFactory) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored record",
		Args:  cobra.NoArgs,
		RunE: run(factory, func(ctx context.Context, rt *Runtime, cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errResetNotConfirmed
			}
			for _, table := range social.Tables() {
				if err := rt.Store.Clear(ctx, table); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all tables cleared")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm deletion")
	return cmd
}

func scopeAndState(_ *cobra.Command, args []string) error {
	if len(args) == 1 {
		return errors.New("expected a scope and a state")
	}
	return nil
}

func statusUpdateArg(ctx context.Context, rt *Runtime, raw string) (*social.StatusUpdate, error) {
	id, ok := recordstore.ParseID(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownStatusUpdate, raw)
	}
	update, found, err := rt.Service.FindStatusUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: #%s", errUnknownStatusUpdate, id)
	}
	return update, nil
}

func userArg(ctx context.Context, rt *Runtime, email string) (*social.User, error) {
	user, found, err := rt.Service.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", errUnknownUser, email)
	}
	return user, nil
}

func parseToggle(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "enable", "enabled":
		return false, nil
	case "off", "disable", "disabled":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", errInvalidToggle, raw)
	}
}
