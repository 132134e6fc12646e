package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meshnoded/internal/model"
)

func underlayKey(ifname string) string {
	return "underlay-worker-" + ifname
}

// GetLocalUnderlayState loads the underlay record for ifname. ok is false
// if no record exists, or if it exists but has expired.
//
// expires is an optional Unix-seconds deadline; a row with expires set is
// live only while now < expires. The core never sets expires on underlay
// records, so in practice this column is always NULL here and the check
// never fires — but a row written with a TTL by a future caller expires
// correctly.
func (s *Store) GetLocalUnderlayState(ctx context.Context, ifname string) (model.LocalUnderlayState, bool, error) {
	var value string
	var expires sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires FROM simplekv WHERE key = ?`, underlayKey(ifname)).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LocalUnderlayState{}, false, nil
	}
	if err != nil {
		return model.LocalUnderlayState{}, false, fmt.Errorf("load underlay state for %s: %w", ifname, err)
	}
	if expires.Valid && time.Now().Unix() >= expires.Int64 {
		_ = s.DeleteLocalUnderlayState(ctx, ifname)
		return model.LocalUnderlayState{}, false, nil
	}

	var st model.LocalUnderlayState
	if err := json.Unmarshal([]byte(value), &st); err != nil {
		return model.LocalUnderlayState{}, false, fmt.Errorf("decode underlay state for %s: %w", ifname, err)
	}
	return st, true, nil
}

// SetLocalUnderlayState writes or replaces ifname's underlay record with
// no expiry.
func (s *Store) SetLocalUnderlayState(ctx context.Context, ifname string, st model.LocalUnderlayState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode underlay state for %s: %w", ifname, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO simplekv (key, value, expires) VALUES (?, ?, NULL)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires = excluded.expires`,
		underlayKey(ifname), string(data))
	if err != nil {
		return fmt.Errorf("save underlay state for %s: %w", ifname, err)
	}
	return nil
}

// DeleteLocalUnderlayState removes ifname's underlay record, if any.
func (s *Store) DeleteLocalUnderlayState(ctx context.Context, ifname string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM simplekv WHERE key = ?`, underlayKey(ifname))
	if err != nil {
		return fmt.Errorf("delete underlay state for %s: %w", ifname, err)
	}
	return nil
}
