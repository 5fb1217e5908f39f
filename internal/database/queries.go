package database

import (
	"database/sql"
	"strings"
	"time"
)

const accountColumns = "id, username, discriminator, email, password_hash, avatar_url, " +
	"status, bio, favorite_tags, premium, deactivated, created_at, updated_at"

const roomColumns = "id, kind, name, topic, COALESCE(owner_id, ''), password, " +
	"member_limit, stream_perm_required, game_tag, created_at, updated_at"

func scanAccount(row *sql.Row) (User, error) {
	var u User
	var tags string
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Discriminator,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.AvatarUrl,
		&u.Status,
		&u.Bio,
		&tags,
		&u.Premium,
		&u.Deactivated,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}

	u.FavoriteTags = splitTags(tags)
	return u, nil
}

func splitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	return strings.Split(tags, ",")
}

func (db *PgLobbyRepository) CreateAccount(params CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO accounts (id, username, discriminator, email, password_hash, avatar_url, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING "+accountColumns,
		params.Id,
		params.Username,
		params.Discriminator,
		params.EmailAddress,
		params.PasswordHash,
		params.AvatarUrl,
		now,
	)

	return scanAccount(row)
}

func (db *PgLobbyRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	row := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, avatar_url = $3, bio = $4, favorite_tags = $5, status = $6, updated_at = $7 "+
			"WHERE id = $1 RETURNING "+accountColumns,
		params.UserId,
		params.Username,
		params.AvatarUrl,
		params.Bio,
		strings.Join(params.FavoriteTags, ","),
		params.Status,
		time.Now().UTC(),
	)

	return scanAccount(row)
}

func (db *PgLobbyRepository) DeactivateAccount(userId string) error {
	res, err := db.conn.Exec(
		"UPDATE accounts SET deactivated = TRUE, status = 'offline', updated_at = $2 WHERE id = $1",
		userId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgLobbyRepository) GetAccountById(userId string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1",
		userId,
	)

	return scanAccount(row)
}

func (db *PgLobbyRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	return scanAccount(row)
}

func (db *PgLobbyRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE LOWER(username) = LOWER($1) LIMIT 1",
		username,
	)

	return scanAccount(row)
}

func (db *PgLobbyRepository) ListAccounts() ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT " + accountColumns + " FROM accounts ORDER BY created_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var tags string
		if err := rows.Scan(
			&u.Id,
			&u.Username,
			&u.Discriminator,
			&u.EmailAddress,
			&u.PasswordHash,
			&u.AvatarUrl,
			&u.Status,
			&u.Bio,
			&tags,
			&u.Premium,
			&u.Deactivated,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		u.FavoriteTags = splitTags(tags)
		users = append(users, u)
	}

	return users, rows.Err()
}

func scanRoom(row *sql.Row) (Room, error) {
	var r Room
	err := row.Scan(
		&r.Id,
		&r.Kind,
		&r.Name,
		&r.Topic,
		&r.OwnerId,
		&r.Password,
		&r.MemberLimit,
		&r.StreamPermRequired,
		&r.GameTag,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

func (db *PgLobbyRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO rooms (id, kind, name, topic, owner_id, password, member_limit, game_tag, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $9) RETURNING "+roomColumns,
		params.Id,
		params.Kind,
		params.Name,
		params.Topic,
		params.OwnerId,
		params.Password,
		params.MemberLimit,
		params.GameTag,
		now,
	)

	return scanRoom(row)
}

func (db *PgLobbyRepository) GetRoomById(roomId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms WHERE id = $1 LIMIT 1",
		roomId,
	)

	return scanRoom(row)
}

func (db *PgLobbyRepository) ListRooms() ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT " + roomColumns + " FROM rooms ORDER BY created_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(
			&r.Id,
			&r.Kind,
			&r.Name,
			&r.Topic,
			&r.OwnerId,
			&r.Password,
			&r.MemberLimit,
			&r.StreamPermRequired,
			&r.GameTag,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}

	return rooms, rows.Err()
}

func (db *PgLobbyRepository) DeleteRoom(roomId string) error {
	res, err := db.conn.Exec("DELETE FROM rooms WHERE id = $1", roomId)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}
