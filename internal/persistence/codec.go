package persistence

import (
	"encoding/json"
	"fmt"
)

// encodeMonth marshals the JSON columns shared by the SQL stores.
func encodeMonth(rec *MonthRecord) (player, guru, offers, events []byte, err error) {
	if player, err = json.Marshal(rec.Player); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode player: %w", err)
	}
	if guru, err = json.Marshal(rec.Guru); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode guru: %w", err)
	}
	if offers, err = json.Marshal(nonNil(rec.Offers)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode offers: %w", err)
	}
	if events, err = json.Marshal(nonNil(rec.Events)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode events: %w", err)
	}
	return player, guru, offers, events, nil
}

func decodeMonth(rec *MonthRecord, player, guru, offers, events []byte) error {
	if err := json.Unmarshal(player, &rec.Player); err != nil {
		return fmt.Errorf("player: %w", err)
	}
	if err := json.Unmarshal(guru, &rec.Guru); err != nil {
		return fmt.Errorf("guru: %w", err)
	}
	if err := json.Unmarshal(offers, &rec.Offers); err != nil {
		return fmt.Errorf("offers: %w", err)
	}
	if err := json.Unmarshal(events, &rec.Events); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
