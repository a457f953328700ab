// Package report holds the operator-facing commands: each writes plain text for a
// person to read and keeps diagnostics out of stdout.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/awakeconnect/awake/apperr"
	"github.com/awakeconnect/awake/store"
	"github.com/sirupsen/logrus"
)

// CountSource is what the count reporter needs from a data store.
type CountSource interface {
	Count(ctx context.Context, c store.Collection) (int64, error)
	Close() error
}

// Opener acquires a CountSource. The reporter owns what it returns and closes it.
type Opener func(ctx context.Context) (CountSource, error)

// Counts prints the users and applications counts. Failures are written to stderr
// as "Error: <message>" and not returned: the report always completes, and the
// source is closed exactly once whether or not the counts succeed.
func Counts(ctx context.Context, open Opener, stdout, stderr io.Writer) {
	src, err := open(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", apperr.Message(err))
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			logrus.WithError(err).Warn("closing count source")
		}
	}()

	users, err := src.Count(ctx, store.Users)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", apperr.Message(err))
		return
	}
	applications, err := src.Count(ctx, store.Applications)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", apperr.Message(err))
		return
	}

	fmt.Fprintln(stdout, "Current counts:")
	fmt.Fprintln(stdout, "Users:", users)
	fmt.Fprintln(stdout, "Applications:", applications)
}

// StatsSource is what the statistics report reads.
type StatsSource interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// Stats prints one line per collection.
func Stats(ctx context.Context, src StatsSource, stdout io.Writer) error {
	st, err := src.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Current database statistics:")
	for _, c := range store.AllCollections {
		fmt.Fprintf(stdout, "%s: %d\n", c.Title(), st.Get(c))
	}
	return nil
}

// CollectionCounter counts a single collection.
type CollectionCounter interface {
	Count(ctx context.Context, c store.Collection) (int64, error)
}

// Collections prints the count of each named collection in the given order.
func Collections(ctx context.Context, src CollectionCounter, collections []store.Collection, stdout io.Writer) error {
	for _, c := range collections {
		n, err := src.Count(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %d\n", c.Title(), n)
	}
	return nil
}

// UserSource is what the user listing reads.
type UserSource interface {
	ListUsers(ctx context.Context) ([]store.User, error)
	Count(ctx context.Context, c store.Collection) (int64, error)
}

// Users lists every account followed by the applications count.
func Users(ctx context.Context, src UserSource, stdout io.Writer) error {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return err
	}
	applications, err := src.Count(ctx, store.Applications)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Database verification:")
	fmt.Fprintf(stdout, "Users (%d total):\n", len(users))
	for _, u := range users {
		name := u.Name
		if name == "" {
			name = "No name"
		}
		fmt.Fprintf(stdout, "   %s (%s) - %s\n", u.Email, u.Role, name)
	}
	fmt.Fprintf(stdout, "Applications: %d\n", applications)
	return nil
}
