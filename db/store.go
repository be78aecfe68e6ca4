package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/milozanoo/streamsupport/backend/auth"
	"github.com/milozanoo/streamsupport/backend/support"
	"github.com/milozanoo/streamsupport/backend/twitchapi"
)

// kv keys for blob state read at startup and written on mutation.
const (
	kvKeyValidation  = "token_validation_info"
	kvKeyCurrentUser = "current_user"
	kvKeyAccount     = "account"
	kvKeyLiveStreams = "live_streams"
)

// twitchProvider is the oauth_tokens row key for the user token.
const twitchProvider = "twitch"

// SetKV stores a string value under key, replacing any previous value.
func SetKV(ctx context.Context, dbx *sql.DB, key, value string) error {
	_, err := dbx.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES($1,$2,NOW())
		 ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, key, value)
	return err
}

// GetKV retrieves a value; missing keys return "" without error.
func GetKV(ctx context.Context, dbx *sql.DB, key string) (string, error) {
	var value string
	err := dbx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// DeleteKV removes a key if present.
func DeleteKV(ctx context.Context, dbx *sql.DB, key string) error {
	_, err := dbx.ExecContext(ctx, `DELETE FROM kv WHERE key=$1`, key)
	return err
}

// AuthStore persists the auth manager's state: the token (encrypted) in
// oauth_tokens and the validation record as a kv blob.
type AuthStore struct{ DB *sql.DB }

var _ auth.Store = (*AuthStore)(nil)

func (s *AuthStore) SaveToken(ctx context.Context, token string) error {
	return UpsertOAuthToken(ctx, s.DB, twitchProvider, token, "", time.Time{}, "")
}

func (s *AuthStore) LoadToken(ctx context.Context) (string, error) {
	access, _, _, _, err := GetOAuthToken(ctx, s.DB, twitchProvider)
	return access, err
}

func (s *AuthStore) SaveValidation(ctx context.Context, rec auth.ValidationRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal validation record: %w", err)
	}
	if err := SetKV(ctx, s.DB, kvKeyValidation, string(buf)); err != nil {
		return err
	}
	return SetKV(ctx, s.DB, kvKeyCurrentUser, rec.Login)
}

func (s *AuthStore) LoadValidation(ctx context.Context) (*auth.ValidationRecord, error) {
	raw, err := GetKV(ctx, s.DB, kvKeyValidation)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var rec auth.ValidationRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal validation record: %w", err)
	}
	return &rec, nil
}

func (s *AuthStore) ClearAuth(ctx context.Context) error {
	if err := DeleteOAuthToken(ctx, s.DB, twitchProvider); err != nil {
		return err
	}
	if err := DeleteKV(ctx, s.DB, kvKeyValidation); err != nil {
		return err
	}
	return DeleteKV(ctx, s.DB, kvKeyCurrentUser)
}

// SaveSupportRecord persists a booking. A blank ID gets a fresh uuid; the
// stored record is returned.
func SaveSupportRecord(ctx context.Context, dbx *sql.DB, rec support.Record) (support.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}
	_, err := dbx.ExecContext(ctx,
		`INSERT INTO support_records(id, target, hours, date, supporter_id) VALUES($1,$2,$3,$4,$5)`,
		rec.ID, rec.Target, rec.Hours, rec.Date, rec.SupporterID)
	if err != nil {
		return support.Record{}, fmt.Errorf("insert support record: %w", err)
	}
	return rec, nil
}

// ListSupportRecords returns records newest first. limit <= 0 means all.
func ListSupportRecords(ctx context.Context, dbx *sql.DB, limit int) ([]support.Record, error) {
	q := `SELECT id, target, hours, date, supporter_id FROM support_records ORDER BY date DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := dbx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list support records: %w", err)
	}
	defer rows.Close()

	records := make([]support.Record, 0)
	for rows.Next() {
		var r support.Record
		var supporter sql.NullString
		if err := rows.Scan(&r.ID, &r.Target, &r.Hours, &r.Date, &supporter); err != nil {
			return nil, fmt.Errorf("scan support record: %w", err)
		}
		r.SupporterID = supporter.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteSupportRecord removes a record by id. Returns false when absent.
func DeleteSupportRecord(ctx context.Context, dbx *sql.DB, id string) (bool, error) {
	res, err := dbx.ExecContext(ctx, `DELETE FROM support_records WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("delete support record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteSupportRecordsBefore prunes records with date older than cutoff and
// returns how many were removed.
func DeleteSupportRecordsBefore(ctx context.Context, dbx *sql.DB, cutoff time.Time) (int64, error) {
	res, err := dbx.ExecContext(ctx, `DELETE FROM support_records WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune support records: %w", err)
	}
	return res.RowsAffected()
}

// Channel is a registered streamer row.
type Channel struct {
	Login        string     `json:"login"`
	TwitchID     string     `json:"twitch_id"`
	DisplayName  string     `json:"display_name"`
	Live         bool       `json:"live"`
	LastSeenLive *time.Time `json:"last_seen_live,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
}

// UpsertChannel registers a channel or refreshes its Twitch metadata.
// Re-registering the same login updates the row in place.
func UpsertChannel(ctx context.Context, dbx *sql.DB, login, twitchID, displayName string) error {
	_, err := dbx.ExecContext(ctx,
		`INSERT INTO channels(login, twitch_id, display_name, updated_at) VALUES($1,$2,$3,NOW())
		 ON CONFLICT(login) DO UPDATE SET twitch_id=EXCLUDED.twitch_id, display_name=EXCLUDED.display_name, updated_at=NOW()`,
		login, twitchID, displayName)
	if err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}
	return nil
}

// ListChannels returns registered channels ordered by login.
func ListChannels(ctx context.Context, dbx *sql.DB) ([]Channel, error) {
	rows, err := dbx.QueryContext(ctx,
		`SELECT login, COALESCE(twitch_id,''), COALESCE(display_name,''), live, last_seen_live, registered_at FROM channels ORDER BY login`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]Channel, 0)
	for rows.Next() {
		var c Channel
		var lastLive sql.NullTime
		if err := rows.Scan(&c.Login, &c.TwitchID, &c.DisplayName, &c.Live, &lastLive, &c.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		if lastLive.Valid {
			t := lastLive.Time
			c.LastSeenLive = &t
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// SetChannelLive flips a channel's live flag, stamping last_seen_live when
// the channel is up.
func SetChannelLive(ctx context.Context, dbx *sql.DB, login string, live bool) error {
	var err error
	if live {
		_, err = dbx.ExecContext(ctx,
			`UPDATE channels SET live=TRUE, last_seen_live=NOW(), updated_at=NOW() WHERE login=$1`, login)
	} else {
		_, err = dbx.ExecContext(ctx,
			`UPDATE channels SET live=FALSE, updated_at=NOW() WHERE login=$1`, login)
	}
	if err != nil {
		return fmt.Errorf("set channel live: %w", err)
	}
	return nil
}

// SaveAccount persists the scoring account as a kv blob.
func SaveAccount(ctx context.Context, dbx *sql.DB, acct support.Account) error {
	buf, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	return SetKV(ctx, dbx, kvKeyAccount, string(buf))
}

// LoadAccount reads the persisted account; nil when none is stored.
func LoadAccount(ctx context.Context, dbx *sql.DB) (*support.Account, error) {
	raw, err := GetKV(ctx, dbx, kvKeyAccount)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var acct support.Account
	if err := json.Unmarshal([]byte(raw), &acct); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &acct, nil
}

// SaveLiveStreams caches the latest live-stream poll result.
func SaveLiveStreams(ctx context.Context, dbx *sql.DB, streams []twitchapi.Stream) error {
	buf, err := json.Marshal(streams)
	if err != nil {
		return fmt.Errorf("marshal streams: %w", err)
	}
	return SetKV(ctx, dbx, kvKeyLiveStreams, string(buf))
}

// LoadLiveStreams reads the cached live streams; empty slice when none.
func LoadLiveStreams(ctx context.Context, dbx *sql.DB) ([]twitchapi.Stream, error) {
	raw, err := GetKV(ctx, dbx, kvKeyLiveStreams)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []twitchapi.Stream{}, nil
	}
	var streams []twitchapi.Stream
	if err := json.Unmarshal([]byte(raw), &streams); err != nil {
		return nil, fmt.Errorf("unmarshal streams: %w", err)
	}
	return streams, nil
}
