// Package resolve maps free-form channel and user references to directory
// records.
//
// Matching precedence is exact id, then exact name, then case-insensitive
// substring over a fixed set of name fields. A single exact-name match
// always wins over any number of substring matches. Several matches at the
// same level are reported as an ambiguity listing every candidate.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/store"
)

// maxSuggestions caps the "did you mean" list on a miss.
const maxSuggestions = 5

// Directory is the read-only lookup store behind a Resolver.
// store.PostgresStore implements it.
type Directory interface {
	ListChannels(ctx context.Context) ([]*store.Channel, error)
	ListUsers(ctx context.Context) ([]*store.User, error)
}

// UserOptions controls which users are eligible.
type UserOptions struct {
	// IncludeBots admits bot users. Deleted users are never eligible.
	IncludeBots bool
}

// Resolver resolves channel and user references. It has no state beyond
// its directory and is safe for concurrent use.
type Resolver struct {
	dir Directory
}

// New returns a Resolver backed by dir.
func New(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// candidate is one directory entry prepared for matching.
type candidate[T any] struct {
	value  T
	id     string
	label  string   // shown in ambiguity errors and suggestions
	names  []string // folded; compared for exact-name equality
	fields []string // folded; searched for substrings
}

// ResolveChannel resolves an id, "#name", "name" or name fragment.
func (r *Resolver) ResolveChannel(ctx context.Context, query string) (*store.Channel, error) {
	q := trimSigil(query)
	if q == "" {
		return nil, slerrors.ValidationError("channel reference is empty", nil)
	}

	channels, err := r.dir.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	cands := make([]candidate[*store.Channel], 0, len(channels))
	for _, c := range channels {
		name := fold(c.Name)
		cands = append(cands, candidate[*store.Channel]{
			value:  c,
			id:     c.ID,
			label:  "#" + c.Name,
			names:  []string{name},
			fields: []string{fold(c.ID), name},
		})
	}
	return match("channel", q, cands)
}

// ResolveUser resolves an id, "@name", exact user/real/display name or
// email, or a fragment of any of those.
func (r *Resolver) ResolveUser(ctx context.Context, query string, opts UserOptions) (*store.User, error) {
	q := trimSigil(query)
	if q == "" {
		return nil, slerrors.ValidationError("user reference is empty", nil)
	}

	users, err := r.dir.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	cands := make([]candidate[*store.User], 0, len(users))
	for _, u := range users {
		if u.Deleted || (u.IsBot && !opts.IncludeBots) {
			continue
		}
		names := nonEmpty(fold(u.UserName), fold(u.RealName), fold(u.DisplayName), fold(u.Email))
		cands = append(cands, candidate[*store.User]{
			value:  u,
			id:     u.ID,
			label:  userLabel(u),
			names:  names,
			fields: names,
		})
	}
	return match("user", q, cands)
}

func match[T any](kind, query string, cands []candidate[T]) (T, error) {
	var zero T
	q := fold(query)

	for _, c := range cands {
		if strings.EqualFold(c.id, strings.TrimSpace(query)) {
			return c.value, nil
		}
	}

	var exact, partial []candidate[T]
	for _, c := range cands {
		if containsEqual(c.names, q) {
			exact = append(exact, c)
			continue
		}
		if containsSubstring(c.fields, q) {
			partial = append(partial, c)
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0].value, nil
	case len(exact) > 1:
		return zero, slerrors.AmbiguousMatch(kind, query, labels(exact))
	case len(partial) == 1:
		return partial[0].value, nil
	case len(partial) > 1:
		return zero, slerrors.AmbiguousMatch(kind, query, labels(partial))
	}

	err := slerrors.NotFound(kind, query)
	if s := suggest(q, cands); len(s) > 0 {
		err = err.WithSuggestion(fmt.Sprintf("Did you mean: %s?", strings.Join(s, ", ")))
	}
	return zero, err
}

func containsEqual(names []string, q string) bool {
	for _, n := range names {
		if n == q {
			return true
		}
	}
	return false
}

func containsSubstring(fields []string, q string) bool {
	for _, f := range fields {
		if strings.Contains(f, q) {
			return true
		}
	}
	return false
}

// labels returns the candidates' labels sorted, with ids appended to any
// label that would otherwise repeat.
func labels[T any](cands []candidate[T]) []string {
	seen := make(map[string]int, len(cands))
	for _, c := range cands {
		seen[c.label]++
	}
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		l := c.label
		if seen[l] > 1 {
			l = fmt.Sprintf("%s [%s]", l, c.id)
		}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func userLabel(u *store.User) string {
	switch {
	case u.UserName != "" && u.RealName != "" && u.RealName != u.UserName:
		return fmt.Sprintf("@%s (%s)", u.UserName, u.RealName)
	case u.UserName != "":
		return "@" + u.UserName
	case u.RealName != "":
		return u.RealName
	default:
		return u.ID
	}
}

func nonEmpty(vals ...string) []string {
	out := vals[:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// suggestionSource adapts candidate names to fuzzy.Source.
type suggestionSource struct {
	names  []string
	labels []string
}

func (s suggestionSource) String(i int) string { return s.names[i] }
func (s suggestionSource) Len() int            { return len(s.names) }

// suggest ranks candidates by fuzzy subsequence match against q.
func suggest[T any](q string, cands []candidate[T]) []string {
	var src suggestionSource
	for _, c := range cands {
		for _, n := range c.names {
			src.names = append(src.names, n)
			src.labels = append(src.labels, c.label)
		}
	}

	matches := fuzzy.FindFrom(q, src)

	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		l := src.labels[m.Index]
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
