package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-floorplan/internal/domain"
)

// rowScanner *sql.Row 与 *sql.Rows 的公共部分
type rowScanner interface {
	Scan(dest ...any) error
}

func marshalRooms(rooms []domain.Room) (string, error) {
	if rooms == nil {
		rooms = []domain.Room{}
	}
	b, err := json.Marshal(rooms)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rooms: %w", err)
	}
	return string(b), nil
}

func unmarshalRooms(raw []byte) ([]domain.Room, error) {
	rooms := []domain.Room{}
	if len(raw) == 0 {
		return rooms, nil
	}
	if err := json.Unmarshal(raw, &rooms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rooms: %w", err)
	}
	return rooms, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
