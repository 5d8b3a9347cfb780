package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/auth"
	"github.com/bartr-dev/bartr/pkg/listings"
	"github.com/bartr-dev/bartr/pkg/messages"
	"github.com/bartr-dev/bartr/pkg/model"
	"github.com/bartr-dev/bartr/pkg/session"
)

// errSignedOut is returned by commands that need a signed-in session.
var errSignedOut = errors.New(`not signed in; run "bartr login" first`)

// services are the API services of the command-line client, persisting the
// session in a file.
type services struct {
	store    *session.Store
	auth     *auth.Service
	listings *listings.Service
	messages *messages.Service
}

func (c *cli) services() (*services, error) {
	path := c.cfg.Client.SessionFile
	if path == "" {
		var err error
		if path, err = session.DefaultFilePath(); err != nil {
			return nil, err
		}
	}
	logger, err := c.cfg.Log.NewLogger(io.Discard)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(session.NewFileStorage(path), session.WithLogger(logger))
	client := api.New(c.cfg.Client.BaseURL, store,
		api.WithHTTPClient(&http.Client{Timeout: c.cfg.Client.Timeout}),
		api.WithLogger(logger),
		api.WithUserAgent("bartr-cli/"+version),
	)
	return &services{
		store:    store,
		auth:     auth.NewService(client, store, logger),
		listings: listings.NewService(client),
		messages: messages.NewService(client),
	}, nil
}

func (s *services) requireSession() error {
	if !s.store.Authenticated() {
		return errSignedOut
	}
	return nil
}

func loginCmd(c *cli) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for the other commands",
		Long: `Sign in to a Bartr server. The password is read from standard
input when --password is not given.

Examples:
  bartr login --email=alex@example.com
  echo "$PASSWORD" | bartr login -e alex@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("a password is required")
			}

			svc, err := c.services()
			if err != nil {
				return err
			}
			resp, err := svc.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return describe(err, "sign in")
			}
			name := email
			if resp.User != nil && resp.User.Name != "" {
				name = resp.User.Name
			}
			success(cmd.OutOrStdout(), "Signed in as %s", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")

	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			if err := svc.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			if err := svc.requireSession(); err != nil {
				return err
			}
			user, err := svc.auth.FetchProfile(cmd.Context())
			if err != nil {
				return describe(err, "load profile")
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s <%s>\n", user.Name, user.Email)
			if user.Location != "" {
				info(w, "Location: %s", user.Location)
			}
			if user.PhoneNumber != "" {
				info(w, "Phone:    %s", user.PhoneNumber)
			}
			if user.Bio != "" {
				info(w, "Bio:      %s", user.Bio)
			}
			return nil
		},
	}
}

func listingsCmd(c *cli) *cobra.Command {
	var (
		category string
		search   string
		mine     bool
	)

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Browse marketplace listings",
		Long: `List marketplace listings, newest first.

Examples:
  bartr listings
  bartr listings --category=Electronics
  bartr listings --search=guitar
  bartr listings --mine`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			var items []model.Listing
			if mine {
				if err := svc.requireSession(); err != nil {
					return err
				}
				items, err = svc.listings.UserListings(cmd.Context())
			} else {
				items, err = svc.listings.List(cmd.Context(), category, search)
			}
			if err != nil {
				return describe(err, "load listings")
			}
			w := cmd.OutOrStdout()
			if len(items) == 0 {
				info(w, "No listings found")
				return nil
			}
			return printListings(w, items)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Category: Electronics, Sports, Clothing, Home or Services")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Search titles, descriptions, trades and locations")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only the signed-in account's listings")

	return cmd
}

func printListings(w io.Writer, items []model.Listing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tTRADE FOR\tLOCATION\tPOSTED")
	for _, l := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.Title, l.Category, l.TradeFor, l.Location, l.PostedDate.Format(time.DateOnly))
	}
	return tw.Flush()
}

func inboxCmd(c *cli) *cobra.Command {
	var (
		sent   bool
		unread bool
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Read your messages",
		Long: `List received messages, newest first. Unread messages are
marked with *.

Examples:
  bartr inbox
  bartr inbox --sent
  bartr inbox --unread`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services()
			if err != nil {
				return err
			}
			if err := svc.requireSession(); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			ctx := cmd.Context()
			if unread {
				n, err := svc.messages.UnreadCount(ctx)
				if err != nil {
					return describe(err, "count messages")
				}
				fmt.Fprintln(w, n)
				return nil
			}
			msgs, err := loadMessages(ctx, svc.messages, sent)
			if err != nil {
				return describe(err, "load messages")
			}
			if len(msgs) == 0 {
				info(w, "No messages")
				return nil
			}
			return printMessages(w, msgs, sent)
		},
	}

	cmd.Flags().BoolVar(&sent, "sent", false, "Show sent messages instead")
	cmd.Flags().BoolVar(&unread, "unread", false, "Print only the unread count")

	return cmd
}

func loadMessages(ctx context.Context, svc *messages.Service, sent bool) ([]model.Message, error) {
	if sent {
		return svc.Sent(ctx)
	}
	return svc.Inbox(ctx)
}

func printMessages(w io.Writer, msgs []model.Message, sent bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	who := "FROM"
	if sent {
		who = "TO"
	}
	fmt.Fprintf(tw, " \tID\t%s\tLISTING\tMESSAGE\n", who)
	for _, m := range msgs {
		mark, name := " ", m.SenderName
		if sent {
			name = m.ReceiverName
		} else if !m.Read {
			mark = "*"
		}
		content := m.Content
		if m.OfferListingTitle != "" {
			content += " [offers " + m.OfferListingTitle + "]"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", mark, m.ID, name, m.ListingTitle, content)
	}
	return tw.Flush()
}

// describe turns API failures into messages for the terminal.
func describe(err error, action string) error {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Unauthorized() {
			return fmt.Errorf("%s: session expired; run \"bartr login\" again", action)
		}
		return fmt.Errorf("%s: %s", action, reqErr.Message())
	}
	return fmt.Errorf("%s: %w", action, err)
}
