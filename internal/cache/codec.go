package cache

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// storedEntry is the serialized form used by out-of-process backends.
type storedEntry struct {
	Payload    model.ResultSet `json:"payload"`
	InsertedAt time.Time       `json:"insertedAt"`
}

func encodeEntry(rs model.ResultSet, at time.Time) ([]byte, error) {
	return json.Marshal(storedEntry{Payload: rs, InsertedAt: at})
}

func decodeEntry(data []byte) (storedEntry, error) {
	var e storedEntry
	err := json.Unmarshal(data, &e)
	return e, err
}
