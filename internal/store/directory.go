package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// ListChannels returns every archived channel ordered by name.
func (s *PostgresStore) ListChannels(ctx context.Context) (_ []*Channel, err error) {
	defer s.observe("list_channels", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(channel_name, ''), COALESCE(topic, ''), COALESCE(purpose, '')
		FROM slack.channel
		ORDER BY channel_name, id
	`)
	if err != nil {
		return nil, wrapQueryError("list channels", err)
	}
	defer rows.Close()

	var list []*Channel
	for rows.Next() {
		var c Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.Topic, &c.Purpose); err != nil {
			return nil, wrapQueryError("list channels", err)
		}
		list = append(list, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError("list channels", err)
	}
	return list, nil
}

const userColumns = `id, COALESCE(user_name, ''), COALESCE(real_name, ''),
	COALESCE(display_name, ''), COALESCE(email, ''), COALESCE(tz, ''),
	COALESCE(is_bot, false), COALESCE(deleted, false)`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.UserName, &u.RealName, &u.DisplayName, &u.Email, &u.TZ, &u.IsBot, &u.Deleted)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user in the directory, deleted and bot users
// included, ordered by user name.
func (s *PostgresStore) ListUsers(ctx context.Context) (_ []*User, err error) {
	defer s.observe("list_users", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM slack.user ORDER BY user_name, id`)
	if err != nil {
		return nil, wrapQueryError("list users", err)
	}
	defer rows.Close()

	var list []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapQueryError("list users", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError("list users", err)
	}
	return list, nil
}

// UsersByID loads the given users keyed by id. Unknown ids are absent.
func (s *PostgresStore) UsersByID(ctx context.Context, ids []string) (_ map[string]*User, err error) {
	defer s.observe("users_by_id", time.Now(), &err)
	users := make(map[string]*User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM slack.user WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapQueryError("load users", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapQueryError("load users", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError("load users", err)
	}
	return users, nil
}
